package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
)

// MaxUploadSize is the largest file the backend accepts.
const MaxUploadSize = 25 << 20

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Files covers documents shared in groups.
type Files struct {
	client *api.Client
}

// List returns the files shared in a group.
func (s *Files) List(ctx context.Context, groupID string) ([]models.File, error) {
	if err := requireID("group", groupID); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, "/groups"+path(groupID, "files"), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.File](resp, "files")
}

// Upload sends r as a multipart upload named name. The body is buffered
// so the request can be replayed after a token refresh.
func (s *Files) Upload(ctx context.Context, groupID, name string, r io.Reader) (*models.File, error) {
	return s.UploadAs(ctx, groupID, name, "", r)
}

// UploadAs is Upload with an explicit part content type. An empty
// contentType sends application/octet-stream.
func (s *Files) UploadAs(ctx context.Context, groupID, name, contentType string, r io.Reader) (*models.File, error) {
	if err := requireID("group", groupID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, output.ErrUsage("file name is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	n, err := io.Copy(part, io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if n > MaxUploadSize {
		return nil, output.ErrUsageHint(
			fmt.Sprintf("%s is larger than %d MB", name, MaxUploadSize>>20),
			"Compress or split the file before uploading")
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	resp, err := s.client.Request(ctx, http.MethodPost, "/groups"+path(groupID, "files"), &api.RequestOptions{
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}
	var f models.File
	if err := decode(resp, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Download writes the file's content to w and returns the byte count.
func (s *Files) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	if err := requireID("file", fileID); err != nil {
		return 0, err
	}
	resp, err := s.client.Get(ctx, "/files"+path(fileID, "download"), nil)
	if err != nil {
		return 0, err
	}
	if err := resp.Err(); err != nil {
		return 0, err
	}
	n, err := io.Copy(w, bytes.NewReader(resp.Body))
	if err != nil {
		return n, fmt.Errorf("failed to write download: %w", err)
	}
	return n, nil
}

// Delete removes a file.
func (s *Files) Delete(ctx context.Context, fileID string) error {
	if err := requireID("file", fileID); err != nil {
		return err
	}
	resp, err := s.client.Delete(ctx, "/files"+path(fileID))
	if err != nil {
		return err
	}
	return decode(resp, nil)
}
