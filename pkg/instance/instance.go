package instance

import (
	"os"
	"strings"
)

// GetID identifies the running process in logs and lock ownership.
// PRINTDOCK_INSTANCE_ID wins, then the platform dyno name, then the hostname.
func GetID(kind string) string {
	for _, key := range []string{"PRINTDOCK_INSTANCE_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return kind + "@" + host
	}
	return kind + "-0"
}
