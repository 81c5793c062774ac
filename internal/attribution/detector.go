// Package attribution identifies the local device so that memory items can be
// traced back to where they were written.
package attribution

import (
	"os"
	"strings"
	"sync"
)

// FallbackDevice is used when no better identity is available.
const FallbackDevice = "local"

var (
	cachedDevice string
	once         sync.Once
)

// DetectDevice returns the local device id.
// Checks in order: VENGEANCE_DEVICE_ID env, the hostname, "local".
// The result is cached after first call.
func DetectDevice() string {
	once.Do(func() {
		cachedDevice = detectDeviceUncached()
	})
	return cachedDevice
}

// detectDeviceUncached performs detection without caching. Used for testing.
func detectDeviceUncached() string {
	if id := strings.TrimSpace(os.Getenv("VENGEANCE_DEVICE_ID")); id != "" {
		return id
	}
	if host := hostDevice(); host != "" {
		return host
	}
	return FallbackDevice
}

// hostDevice returns the short, lowercased hostname, or "" on error.
func hostDevice() string {
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return host
}
