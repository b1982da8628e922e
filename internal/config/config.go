// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the resolved configuration.
type Config struct {
	// Backend settings
	BaseURL string `json:"base_url"`
	APIPath string `json:"api_path"`
	// APIURL, when set, replaces BaseURL+APIPath entirely.
	APIURL string `json:"api_url,omitempty"`

	// Auth endpoints, relative to the API URL
	LoginPath   string `json:"login_path"`
	RefreshPath string `json:"refresh_path"`
	LogoutPath  string `json:"logout_path"`

	// RefreshSkew is how close to a JWT's exp the client refreshes proactively.
	RefreshSkew time.Duration `json:"-"`

	// Local state
	CacheDir   string `json:"cache_dir"`
	NoKeyring  bool   `json:"no_keyring"`
	Resilience bool   `json:"resilience"`

	// Output settings
	Format string `json:"format"`
	Locale string `json:"locale,omitempty"`

	// Error reporting
	SentryDSN   string `json:"sentry_dsn,omitempty"`
	Environment string `json:"environment,omitempty"`

	Verbose *int `json:"verbose,omitempty"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceGlobal  Source = "global"
	SourceDotEnv  Source = "dotenv"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	Host         string
	CacheDir     string
	Format       string
	NoResilience bool
}

// Default returns the default configuration.
func Default() *Config {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}

	return &Config{
		BaseURL:     "https://studysync.app",
		APIPath:     "/api",
		LoginPath:   "/auth/login",
		RefreshPath: "/auth/refresh-token",
		LogoutPath:  "/auth/logout",
		RefreshSkew: 30 * time.Second,
		CacheDir:    filepath.Join(cacheDir, "studysync"),
		Resilience:  true,
		Format:      "auto",
		Environment: "production",
		Sources:     make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > .env > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemConfigPath(), SourceSystem)
	loadFromFile(cfg, globalConfigPath(), SourceGlobal)

	if err := LoadDotEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

// ResolvedAPIURL returns the URL every backend-relative path is joined onto.
func (cfg *Config) ResolvedAPIURL() string {
	if cfg.APIURL != "" {
		return NormalizeBaseURL(cfg.APIURL)
	}
	path := cfg.APIPath
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return NormalizeBaseURL(NormalizeBaseURL(cfg.BaseURL) + path)
}

// Origin identifies the credential namespace; one token pair per origin.
func (cfg *Config) Origin() string {
	return cfg.ResolvedAPIURL()
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	setString := func(key string, dst *string) {
		if v, ok := fileCfg[key].(string); ok && v != "" {
			*dst = v
			cfg.Sources[key] = string(source)
		}
	}
	setString("base_url", &cfg.BaseURL)
	setString("api_path", &cfg.APIPath)
	setString("api_url", &cfg.APIURL)
	setString("login_path", &cfg.LoginPath)
	setString("refresh_path", &cfg.RefreshPath)
	setString("logout_path", &cfg.LogoutPath)
	setString("cache_dir", &cfg.CacheDir)
	setString("format", &cfg.Format)
	setString("locale", &cfg.Locale)
	setString("sentry_dsn", &cfg.SentryDSN)
	setString("environment", &cfg.Environment)

	if v, ok := fileCfg["refresh_skew"].(string); ok {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.RefreshSkew = d
			cfg.Sources["refresh_skew"] = string(source)
		}
	}
	if v, ok := fileCfg["no_keyring"].(bool); ok {
		cfg.NoKeyring = v
		cfg.Sources["no_keyring"] = string(source)
	}
	if v, ok := fileCfg["resilience"].(bool); ok {
		cfg.Resilience = v
		cfg.Sources["resilience"] = string(source)
	}
	if v, ok := fileCfg["verbose"].(float64); ok {
		iv := int(v)
		if iv >= 0 && iv <= 2 && v == float64(iv) {
			cfg.Verbose = &iv
			cfg.Sources["verbose"] = string(source)
		}
	}
}

// envKeys maps environment variables to the config keys they set.
var envKeys = []struct {
	env string
	key string
}{
	{"STUDYSYNC_API_URL", "api_url"},
	{"STUDYSYNC_BASE_URL", "base_url"},
	{"STUDYSYNC_API_PATH", "api_path"},
	{"STUDYSYNC_CACHE_DIR", "cache_dir"},
	{"STUDYSYNC_NO_KEYRING", "no_keyring"},
	{"STUDYSYNC_LOCALE", "locale"},
	{"STUDYSYNC_SENTRY_DSN", "sentry_dsn"},
	{"STUDYSYNC_ENV", "environment"},
	{"STUDYSYNC_REFRESH_SKEW", "refresh_skew"},
}

// LoadDotEnv applies variables from a dotenv file that are not already set
// in the process environment. A missing file is not an error.
func LoadDotEnv(cfg *Config, path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	for _, e := range envKeys {
		v, ok := vars[e.env]
		if !ok || v == "" {
			continue
		}
		if _, set := os.LookupEnv(e.env); set {
			continue
		}
		applyKey(cfg, e.key, v, SourceDotEnv)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	for _, e := range envKeys {
		if v := os.Getenv(e.env); v != "" {
			applyKey(cfg, e.key, v, SourceEnv)
		}
	}
}

func applyKey(cfg *Config, key, v string, source Source) {
	switch key {
	case "api_url":
		cfg.APIURL = v
	case "base_url":
		cfg.BaseURL = v
	case "api_path":
		cfg.APIPath = v
	case "cache_dir":
		cfg.CacheDir = v
	case "no_keyring":
		b, ok := parseEnvBool(v)
		if !ok {
			return
		}
		cfg.NoKeyring = b
	case "locale":
		cfg.Locale = v
	case "sentry_dsn":
		cfg.SentryDSN = v
	case "environment":
		cfg.Environment = v
	case "refresh_skew":
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return
		}
		cfg.RefreshSkew = d
	default:
		return
	}
	cfg.Sources[key] = string(source)
}

// parseEnvBool parses a boolean environment variable strictly.
func parseEnvBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.Host != "" {
		cfg.BaseURL = o.Host
		cfg.APIURL = ""
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.CacheDir != "" {
		cfg.CacheDir = o.CacheDir
		cfg.Sources["cache_dir"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
	if o.NoResilience {
		cfg.Resilience = false
		cfg.Sources["resilience"] = string(SourceFlag)
	}
}

// Path helpers

func systemConfigPath() string {
	return "/etc/studysync/config.json"
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "studysync")
}

// RuntimeDir returns the directory for session-scoped state. It lives on
// a tmpfs on most systems and is wiped on reboot.
func RuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "studysync")
	}
	return filepath.Join(os.TempDir(), "studysync-"+strconv.Itoa(os.Getuid()))
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
