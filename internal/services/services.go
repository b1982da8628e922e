// Package services wraps the StudySync backend endpoints in typed calls.
// Every call goes through the authenticated client, so a 401 triggers the
// refresh protocol transparently.
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/output"
)

// Services groups the domain services over one client.
type Services struct {
	Users    *Users
	Groups   *Groups
	Files    *Files
	Chat     *Chat
	AIChat   *AIChat
	Payments *Payments
	Reviews  *Reviews
	Admin    *Admin
}

// New returns every service bound to c.
func New(c *api.Client) *Services {
	return &Services{
		Users:    &Users{client: c},
		Groups:   &Groups{client: c},
		Files:    &Files{client: c},
		Chat:     &Chat{client: c},
		AIChat:   &AIChat{client: c},
		Payments: NewPayments(c),
		Reviews:  &Reviews{client: c},
		Admin:    &Admin{client: c},
	}
}

// envelope is the backend's success wrapper. Older endpoints reply with
// the bare payload instead.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// unwrap returns the payload of a response body, with any {"data": ...}
// wrapper removed.
func unwrap(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env envelope
	if json.Unmarshal(trimmed, &env) == nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		return env.Data
	}
	return trimmed
}

// decode converts a non-2xx response to its error and otherwise unwraps
// the body into v. A nil v only checks the status.
func decode(resp *api.Response, v any) error {
	if err := resp.Err(); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	payload := unwrap(resp.Body)
	if len(payload) == 0 {
		return output.ErrAPI(resp.StatusCode, "empty response body")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// decodeList accepts a bare array, or an object holding the array under
// key or "items".
func decodeList[T any](resp *api.Response, key string) ([]T, error) {
	if err := resp.Err(); err != nil {
		return nil, err
	}
	payload := unwrap(resp.Body)
	if len(payload) > 0 && payload[0] == '[' {
		var items []T
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return items, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	for _, k := range []string{key, "items"} {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", k, err)
		}
		return items, nil
	}
	return []T{}, nil
}

// path joins escaped segments under a resource prefix.
func path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return output.ErrUsage(kind + " ID is required")
	}
	return nil
}
