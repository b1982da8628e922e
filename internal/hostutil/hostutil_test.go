package hostutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},

		// Full URLs passed through
		{"http://example.com", "http://example.com"},
		{"https://example.com/", "https://example.com"},
		{"http://localhost:5173", "http://localhost:5173"},

		// Localhost variants → http
		{"localhost", "http://localhost"},
		{"localhost:8080", "http://localhost:8080"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080"},
		{"[::1]:8080", "http://[::1]:8080"},
		{"app.localhost", "http://app.localhost"},

		// Everything else → https
		{"studysync.app", "https://studysync.app"},
		{"api.studysync.app:8443", "https://api.studysync.app:8443"},
		{"localhost.example.com", "https://localhost.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestRequireSecureURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://api.studysync.app", false},
		{"http://localhost:8080", false},
		{"http://127.0.0.1:3000/api", false},
		{"http://api.studysync.app", true},
		{"ftp://studysync.app", true},
		{"://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := RequireSecureURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
