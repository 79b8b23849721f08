package session

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/printdock/printdock-backend/pkg/client"
)

// ErrOffline aborts a retry loop without further attempts.
var ErrOffline = errors.New("session: client is offline")

// OnlineFunc reports network reachability. Nil means always online.
type OnlineFunc func() bool

type RetryPolicy struct {
	Attempts uint64
	Base     time.Duration
}

// DefaultRetryPolicy is three attempts with exponential backoff from 1.5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Base: 1500 * time.Millisecond}
}

func (p RetryPolicy) backoff() retry.Backoff {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	base := p.Base
	if base <= 0 {
		base = DefaultRetryPolicy().Base
	}
	return retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
}

// withRetry runs fn until it succeeds, fails with a non-transient error,
// runs out of attempts or ctx is cancelled.
func withRetry(ctx context.Context, policy RetryPolicy, online OnlineFunc, fn func(context.Context) error) error {
	return retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		if online != nil && !online() {
			return ErrOffline
		}
		err := fn(ctx)
		if err != nil && client.Classify(err) == client.KindTransient {
			return retry.RetryableError(err)
		}
		return err
	})
}
