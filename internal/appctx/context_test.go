package appctx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studysync/studysync-cli/internal/config"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/session"
)

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	t.Setenv("STUDYSYNC_DEBUG", "")
	cfg := config.Default()
	cfg.APIURL = apiURL
	cfg.CacheDir = t.TempDir()
	cfg.NoKeyring = true
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(cfg,
		WithCredentialStores(session.NewMemoryStore(), session.NewMemoryStore()),
		WithWriters(&stdout, &stderr))
	return app, &stdout, &stderr
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t, "https://api.example.com")
	app, _, _ := newTestApp(t, cfg)

	require.NotNil(t, app)
	assert.Same(t, cfg, app.Config)
	assert.NotNil(t, app.Session)
	assert.NotNil(t, app.Client)
	assert.NotNil(t, app.Services)
	assert.NotNil(t, app.Output)
	assert.NotNil(t, app.Gate, "resilience is on by default")
	assert.Equal(t, "https://api.example.com", app.Client.BaseURL())
	assert.Equal(t, "https://api.example.com", app.Session.Origin())
}

func TestNewAppWithoutResilience(t *testing.T) {
	cfg := testConfig(t, "https://api.example.com")
	cfg.Resilience = false
	app, _, _ := newTestApp(t, cfg)
	assert.Nil(t, app.Gate)
}

func TestNewAppWarnsOnUnreadableCredentials(t *testing.T) {
	cfg := testConfig(t, "https://api.example.com")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"), []byte("{nope"), 0600))

	ephemeral := session.NewMemoryStore()
	require.NoError(t, ephemeral.Save(cfg.Origin(), &session.Credentials{AccessToken: "A1", RefreshToken: "R1"}))

	var stdout, stderr bytes.Buffer
	app := NewApp(cfg,
		WithCredentialStores(session.NewFileStore(dir, "credentials.json"), ephemeral),
		WithWriters(&stdout, &stderr))

	assert.Contains(t, stderr.String(), "warning: loading durable credentials")
	assert.True(t, app.Session.IsAuthenticated())
}

func TestWithAppAndFromContext(t *testing.T) {
	app, _, _ := newTestApp(t, testConfig(t, "https://api.example.com"))
	ctx := WithApp(context.Background(), app)
	assert.Same(t, app, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestApplyFlagsFormat(t *testing.T) {
	tests := []struct {
		name  string
		flags GlobalFlags
		want  output.Format
	}{
		{"json", GlobalFlags{JSON: true}, output.FormatJSON},
		{"yaml", GlobalFlags{YAML: true}, output.FormatYAML},
		{"quiet", GlobalFlags{Quiet: true}, output.FormatQuiet},
		{"ids", GlobalFlags{IDsOnly: true}, output.FormatIDs},
		{"count", GlobalFlags{Count: true}, output.FormatCount},
		{"md", GlobalFlags{MD: true}, output.FormatMarkdown},
		{"styled", GlobalFlags{Styled: true}, output.FormatStyled},
		{"ids beats json", GlobalFlags{IDsOnly: true, JSON: true}, output.FormatIDs},
		{"none on a pipe", GlobalFlags{}, output.FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := newTestApp(t, testConfig(t, "https://api.example.com"))
			app.Flags = tt.flags
			app.ApplyFlags()
			assert.Equal(t, tt.want, app.Output.Format())
		})
	}
}

func TestNewAppWithFormatConfig(t *testing.T) {
	cfg := testConfig(t, "https://api.example.com")
	cfg.Format = "yaml"
	app, _, _ := newTestApp(t, cfg)
	assert.Equal(t, output.FormatYAML, app.Output.Format())
}

func TestVerboseLevel(t *testing.T) {
	app, _, _ := newTestApp(t, testConfig(t, "https://api.example.com"))

	app.Flags.Verbose = 1
	assert.Equal(t, 1, app.verboseLevel())

	t.Setenv("STUDYSYNC_DEBUG", "true")
	assert.Equal(t, 2, app.verboseLevel())

	t.Setenv("STUDYSYNC_DEBUG", "7")
	assert.Equal(t, 2, app.verboseLevel(), "clamped")

	t.Setenv("STUDYSYNC_DEBUG", "")
	three := 3
	app.Config.Verbose = &three
	assert.Equal(t, 2, app.verboseLevel())
}

func TestApplyFlagsVerboseTracesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Resilience = false
	app, _, stderr := newTestApp(t, cfg)
	app.Flags.Verbose = 2
	app.ApplyFlags()

	_, err := app.Client.Get(context.Background(), "/users/me", nil)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "/users/me")
}

func TestPresentPicksRowsForHumans(t *testing.T) {
	app, stdout, _ := newTestApp(t, testConfig(t, "https://api.example.com"))

	app.Flags.JSON = true
	app.ApplyFlags()
	require.NoError(t, app.Present(map[string]string{"raw": "model"}, map[string]string{"row": "display"}))

	var resp output.Response
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, map[string]any{"raw": "model"}, resp.Data)
	assert.False(t, app.Human())

	app.Flags = GlobalFlags{MD: true}
	app.ApplyFlags()
	assert.True(t, app.Human())
}

func TestAppOKWithStats(t *testing.T) {
	app, stdout, _ := newTestApp(t, testConfig(t, "https://api.example.com"))
	app.Flags.JSON = true
	app.Flags.Stats = true
	app.ApplyFlags()

	require.NoError(t, app.OK(map[string]string{"a": "b"}))

	var resp output.Response
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	stats, ok := resp.Meta["stats"].(map[string]any)
	require.True(t, ok, "stats in meta")
	assert.Contains(t, stats, "requests")
}

func TestAppErrPrintsStatsToStderr(t *testing.T) {
	app, stdout, stderr := newTestApp(t, testConfig(t, "https://api.example.com"))
	app.Flags.JSON = true
	app.Flags.Stats = true
	app.ApplyFlags()

	require.NoError(t, app.Err(output.ErrUsage("bad")))
	assert.Contains(t, stdout.String(), `"code": "usage"`)
	assert.Contains(t, stderr.String(), "Stats:")
}

func TestAppErrMachineOutputNoStats(t *testing.T) {
	app, _, stderr := newTestApp(t, testConfig(t, "https://api.example.com"))
	app.Flags.Quiet = true
	app.Flags.Stats = true
	app.ApplyFlags()

	require.NoError(t, app.Err(output.ErrUsage("bad")))
	assert.Empty(t, stderr.String())
}

func TestIsMachineOutput(t *testing.T) {
	app, _, _ := newTestApp(t, testConfig(t, "https://api.example.com"))
	assert.False(t, app.isMachineOutput())

	for _, flags := range []GlobalFlags{{Quiet: true}, {IDsOnly: true}, {Count: true}} {
		app.Flags = flags
		assert.True(t, app.isMachineOutput(), "%+v", flags)
	}

	app.Flags = GlobalFlags{}
	app.Config.Format = "quiet"
	assert.True(t, app.isMachineOutput())
}

func TestIsInteractiveFalseForBuffers(t *testing.T) {
	app, _, _ := newTestApp(t, testConfig(t, "https://api.example.com"))
	assert.False(t, app.IsInteractive())
}

func TestSessionExpiredCallbackSilentOffTTY(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Resilience = false
	app, _, stderr := newTestApp(t, cfg)
	require.NoError(t, app.Session.Save(&session.Credentials{AccessToken: "A1", RefreshToken: "R1"}, true))

	_, err := app.Client.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)
	assert.True(t, output.IsSessionExpired(err))
	assert.False(t, app.Session.IsAuthenticated())
	assert.Empty(t, stderr.String())
}
