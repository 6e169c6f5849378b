package instance

import (
	"os"
	"strings"
)

const fallbackID = "worker-0"

// GetID identifies this process in logs. STOREFRONT_INSTANCE_ID wins, then
// the host name, then a fixed default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("STOREFRONT_INSTANCE_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
