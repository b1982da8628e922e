package richtext

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// mimeByExt maps the study material types the backend accepts.
var mimeByExt = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".zip":  "application/zip",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
}

// DetectMIME returns the MIME type for a file path. It uses the extension
// map first, then sniffs the first 512 bytes.
func DetectMIME(path string) string {
	if mime, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}

	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(buf[:n])
}

// ValidateFile checks that path is an existing, regular, readable file no
// larger than maxSize bytes. A maxSize of zero disables the size check.
func ValidateFile(path string, maxSize int64) error {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", name)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("%s exceeds maximum size of %d MB", name, maxSize>>20)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", name, err)
	}
	f.Close()
	return nil
}
