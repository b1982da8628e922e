// Package hostutil provides shared utilities for backend host URL handling.
package hostutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize converts a host string to a full URL.
// - Empty string returns empty
// - localhost/127.0.0.1 defaults to http://
// - Other bare hostnames default to https://
// - Full URLs are used as-is, minus any trailing slash
func Normalize(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	host = strings.TrimSuffix(host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	if IsLocalhost(host) {
		return "http://" + host
	}
	return "https://" + host
}

// IsLocalhost returns true if host is localhost, a .localhost subdomain,
// 127.0.0.1, or [::1] (with optional port).
func IsLocalhost(host string) bool {
	hostWithoutPort := host
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		if !strings.HasPrefix(host, "[") || strings.HasPrefix(host, "[::1]:") {
			hostWithoutPort = host[:idx]
		}
	}

	switch {
	case hostWithoutPort == "localhost", strings.HasSuffix(hostWithoutPort, ".localhost"):
		return true
	case hostWithoutPort == "127.0.0.1", hostWithoutPort == "[::1]":
		return true
	}
	return false
}

// RequireSecureURL rejects plain-http URLs that point anywhere but the local
// machine. Bearer tokens are only ever sent over https or to a dev proxy.
func RequireSecureURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if IsLocalhost(u.Host) {
			return nil
		}
		return fmt.Errorf("refusing to send credentials over plain http to %s", u.Host)
	default:
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
}
