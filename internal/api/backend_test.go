package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studysync/studysync-cli/internal/session"
)

// fakeBackend accepts exactly one access token at a time and swaps it on
// refresh.
type fakeBackend struct {
	srv *httptest.Server

	mu            sync.Mutex
	valid         string
	refreshToken  string
	nextAccess    string
	refreshStatus int
	freezeValid   bool
	authHeaders   []string
	bodies        map[string]string

	refreshes    atomic.Int32
	rejected     atomic.Int32
	logouts      atomic.Int32
	expectReject int32
	allRejected  chan struct{}
	rejectOnce   sync.Once
	holdRefresh  chan struct{}
	onReject     func(r *http.Request)
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		valid:         "A1",
		refreshToken:  "R1",
		nextAccess:    "A2",
		refreshStatus: http.StatusOK,
		bodies:        make(map[string]string),
		allRejected:   make(chan struct{}),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

// waitForRejections makes the refresh endpoint wait until n requests were
// rejected, so every caller observes its 401 while the refresh is in flight.
func (b *fakeBackend) waitForRejections(n int32) {
	b.expectReject = n
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/refresh-token":
		b.refreshes.Add(1)
		if b.expectReject > 0 {
			select {
			case <-b.allRejected:
			case <-time.After(5 * time.Second):
			}
		}
		if b.holdRefresh != nil {
			<-b.holdRefresh
		}

		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.refreshStatus != http.StatusOK {
			w.WriteHeader(b.refreshStatus)
			_, _ = w.Write([]byte(`{"message":"refresh failed"}`))
			return
		}
		if req.RefreshToken != b.refreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !b.freezeValid {
			b.valid = b.nextAccess
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": b.nextAccess})

	case "/api/auth/login":
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Wrong credentials"})
			return
		}
		b.mu.Lock()
		access := b.valid
		refresh := b.refreshToken
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"accessToken":  access,
				"refreshToken": refresh,
				"user":         map[string]any{"id": 42, "email": req.Email, "role": "student"},
			},
		})

	case "/api/auth/logout":
		b.logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)

	default:
		auth := r.Header.Get("Authorization")
		body := readAll(r)

		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, auth)
		valid := b.valid
		b.mu.Unlock()

		if auth != "Bearer "+valid {
			if b.onReject != nil {
				b.onReject(r)
			}
			w.WriteHeader(http.StatusUnauthorized)
			if b.rejected.Add(1) == b.expectReject {
				b.rejectOnce.Do(func() { close(b.allRejected) })
			}
			return
		}

		switch {
		case strings.HasPrefix(r.URL.Path, "/api/status/"):
			code := strings.TrimPrefix(r.URL.Path, "/api/status/")
			status := map[string]int{"404": 404, "500": 500, "429": 429, "403": 403}[code]
			w.Header().Set("Retry-After", "7")
			writeJSON(w, status, map[string]string{"message": "status " + code})
		default:
			b.mu.Lock()
			b.bodies[r.URL.Path] = body
			b.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]string{"path": r.URL.Path, "token": valid})
		}
	}
}

func (b *fakeBackend) setValid(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.valid = token
}

func (b *fakeBackend) setRefreshStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshStatus = status
}

func (b *fakeBackend) headers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders...)
}

func (b *fakeBackend) body(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[path]
}

func (b *fakeBackend) url() string {
	return b.srv.URL + "/api"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readAll(r *http.Request) string {
	data, _ := io.ReadAll(r.Body)
	return string(data)
}

// newTestSession returns a session holding access/refresh in memory.
func newTestSession(t testing.TB, access, refresh string) *session.Session {
	t.Helper()
	s := session.New("test", session.NewMemoryStore(), session.NewMemoryStore())
	if access != "" {
		require.NoError(t, s.Save(&session.Credentials{AccessToken: access, RefreshToken: refresh}, true))
	}
	return s
}
