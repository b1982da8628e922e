package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://studysync.app", cfg.BaseURL)
	assert.Equal(t, "/api", cfg.APIPath)
	assert.Equal(t, "/auth/refresh-token", cfg.RefreshPath)
	assert.Equal(t, 30*time.Second, cfg.RefreshSkew)
	assert.Equal(t, "auto", cfg.Format)
	assert.True(t, cfg.Resilience)
	assert.NotNil(t, cfg.Sources)
}

func TestResolvedAPIURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://studysync.app/api", cfg.ResolvedAPIURL())

	cfg.BaseURL = "http://localhost:8080/"
	cfg.APIPath = "v2"
	assert.Equal(t, "http://localhost:8080/v2", cfg.ResolvedAPIURL())

	cfg.APIURL = "https://api.example.test/root/"
	assert.Equal(t, "https://api.example.test/root", cfg.ResolvedAPIURL())
	assert.Equal(t, cfg.ResolvedAPIURL(), cfg.Origin())
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	content := `{
		"base_url": "https://staging.studysync.app",
		"refresh_skew": "2m",
		"no_keyring": true,
		"verbose": 1,
		"format": "json"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)

	assert.Equal(t, "https://staging.studysync.app", cfg.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.RefreshSkew)
	assert.True(t, cfg.NoKeyring)
	require.NotNil(t, cfg.Verbose)
	assert.Equal(t, 1, *cfg.Verbose)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "global", cfg.Sources["base_url"])
	assert.Equal(t, "global", cfg.Sources["refresh_skew"])
}

func TestLoadFromFileSkipsInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)

	assert.Equal(t, "https://studysync.app", cfg.BaseURL)
	assert.Empty(t, cfg.Sources)
}

func TestLoadFromFileSkipsMissingFile(t *testing.T) {
	cfg := Default()
	loadFromFile(cfg, filepath.Join(t.TempDir(), "missing.json"), SourceGlobal)
	assert.Empty(t, cfg.Sources)
}

func TestLoadFromFileRejectsOutOfRangeVerbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"verbose": 7}`), 0600))

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)
	assert.Nil(t, cfg.Verbose)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STUDYSYNC_API_URL", "http://localhost:5000/api")
	t.Setenv("STUDYSYNC_NO_KEYRING", "yes")
	t.Setenv("STUDYSYNC_REFRESH_SKEW", "45s")
	t.Setenv("STUDYSYNC_LOCALE", "vi-VN")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, "http://localhost:5000/api", cfg.APIURL)
	assert.True(t, cfg.NoKeyring)
	assert.Equal(t, 45*time.Second, cfg.RefreshSkew)
	assert.Equal(t, "vi-VN", cfg.Locale)
	assert.Equal(t, "env", cfg.Sources["api_url"])
}

func TestLoadFromEnvIgnoresInvalidBool(t *testing.T) {
	t.Setenv("STUDYSYNC_NO_KEYRING", "maybe")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.False(t, cfg.NoKeyring)
	_, ok := cfg.Sources["no_keyring"]
	assert.False(t, ok)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "STUDYSYNC_API_URL=http://localhost:4000/api\nSTUDYSYNC_LOCALE=en-GB\nUNRELATED=1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("STUDYSYNC_LOCALE", "fr-FR")

	cfg := Default()
	require.NoError(t, LoadDotEnv(cfg, path))

	assert.Equal(t, "http://localhost:4000/api", cfg.APIURL)
	assert.Equal(t, "dotenv", cfg.Sources["api_url"])
	// Set in the real environment, so the .env value is ignored here.
	assert.Empty(t, cfg.Locale)
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	cfg := Default()
	assert.NoError(t, LoadDotEnv(cfg, filepath.Join(t.TempDir(), ".env")))
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.APIURL = "https://from-env.test/api"

	ApplyOverrides(cfg, FlagOverrides{
		Host:         "https://flag.test",
		Format:       "yaml",
		NoResilience: true,
	})

	assert.Equal(t, "https://flag.test", cfg.BaseURL)
	assert.Empty(t, cfg.APIURL)
	assert.Equal(t, "https://flag.test/api", cfg.ResolvedAPIURL())
	assert.Equal(t, "yaml", cfg.Format)
	assert.False(t, cfg.Resilience)
	assert.Equal(t, "flag", cfg.Sources["base_url"])
}

func TestLoadPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Chdir(t.TempDir())

	require.NoError(t, os.MkdirAll(filepath.Join(home, "studysync"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(home, "studysync", "config.json"),
		[]byte(`{"base_url": "https://global.test", "format": "markdown"}`), 0600))
	t.Setenv("STUDYSYNC_BASE_URL", "https://env.test")

	cfg, err := Load(FlagOverrides{Format: "json"})
	require.NoError(t, err)

	assert.Equal(t, "https://env.test", cfg.BaseURL)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "env", cfg.Sources["base_url"])
}

func TestGlobalConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/studysync", GlobalConfigDir())
}

func TestRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/studysync", RuntimeDir())
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://a.test", NormalizeBaseURL("https://a.test/"))
	assert.Equal(t, "https://a.test", NormalizeBaseURL("https://a.test"))
}
