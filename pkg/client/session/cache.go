package session

import (
	"sync"
	"time"

	"github.com/printdock/printdock-backend/pkg/client"
)

// DefaultCheckWindow is how long a verified auth check is reused.
const DefaultCheckWindow = 5 * time.Minute

// CheckCache remembers the outcome of the last auth check. A nil user means
// the check resolved unauthenticated.
type CheckCache struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time

	valid bool
	at    time.Time
	user  *client.User
}

func NewCheckCache(window time.Duration) *CheckCache {
	if window <= 0 {
		window = DefaultCheckWindow
	}
	return &CheckCache{window: window, now: time.Now}
}

// Get returns the cached result if it is still inside the window.
func (c *CheckCache) Get() (*client.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.now().Sub(c.at) >= c.window {
		return nil, false
	}
	return c.user, true
}

func (c *CheckCache) Put(user *client.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = true
	c.at = c.now()
	c.user = user
}

func (c *CheckCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.user = nil
	c.at = time.Time{}
}
