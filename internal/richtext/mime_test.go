package richtext

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"lecture.pdf", "application/pdf"},
		{"diagram.PNG", "image/png"},
		{"notes.md", "text/markdown"},
		{"slides.pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
		{"style.css", "application/octet-stream"}, // not in our map, file doesn't exist
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DetectMIME(tt.path); got != tt.want {
				t.Errorf("DetectMIME(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDetectMIMEFromContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mystery")
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		t.Fatal(err)
	}

	if got := DetectMIME(path); got != "image/png" {
		t.Errorf("DetectMIME(PNG bytes) = %q, want image/png", got)
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(valid, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateFile(valid, 0); err != nil {
		t.Errorf("ValidateFile(valid) = %v, want nil", err)
	}

	if err := ValidateFile(valid, 4); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("ValidateFile(too large) = %v, want size error", err)
	}

	if err := ValidateFile(filepath.Join(dir, "nope.txt"), 0); err == nil {
		t.Error("ValidateFile(nonexistent) = nil, want error")
	}

	if err := ValidateFile(dir, 0); err == nil {
		t.Error("ValidateFile(dir) = nil, want error")
	}

	if os.Geteuid() == 0 {
		return // root can read anything
	}
	unreadable := filepath.Join(dir, "noperm.txt")
	if err := os.WriteFile(unreadable, []byte("x"), 0o000); err != nil {
		t.Fatal(err)
	}
	if err := ValidateFile(unreadable, 0); err == nil {
		t.Error("ValidateFile(unreadable) = nil, want error")
	}
}
