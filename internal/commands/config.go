package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/config"
	"github.com/studysync/studysync-cli/internal/output"
)

// NewConfigCmd creates the config command for managing configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage studysync configuration.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > .env > global > system > defaults

Config locations:
  - System: /etc/studysync/config.json
  - Global: ~/.config/studysync/config.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
		newConfigResilienceCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Display the current effective configuration with source information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	cfg := app.Config

	keys := []struct {
		key   string
		value string
	}{
		{"api_url", cfg.ResolvedAPIURL()},
		{"base_url", cfg.BaseURL},
		{"api_path", cfg.APIPath},
		{"login_path", cfg.LoginPath},
		{"refresh_path", cfg.RefreshPath},
		{"logout_path", cfg.LogoutPath},
		{"refresh_skew", cfg.RefreshSkew.String()},
		{"cache_dir", cfg.CacheDir},
		{"no_keyring", strconv.FormatBool(cfg.NoKeyring)},
		{"resilience", strconv.FormatBool(cfg.Resilience)},
		{"format", cfg.Format},
		{"locale", app.Presenter.Locale.Tag().String()},
		{"environment", cfg.Environment},
		{"sentry", strconv.FormatBool(app.SentryEnabled)},
		{"verbose", strconv.Itoa(derefInt(cfg.Verbose))},
	}

	configData := make(map[string]any, len(keys))
	for _, k := range keys {
		source := cfg.Sources[k.key]
		if source == "" {
			source = string(config.SourceDefault)
		}
		configData[k.key] = map[string]string{
			"value":  k.value,
			"source": source,
		}
	}

	return app.OK(configData,
		output.WithSummary("Effective configuration"),
		output.WithMeta("path", globalConfigFile()),
		output.WithBreadcrumbs(
			output.Breadcrumb{
				Action:      "set",
				Cmd:         "studysync config set <key> <value>",
				Description: "Set config value",
			},
		),
	)
}

// settableKeys are the keys config set accepts, with a validator that
// returns the JSON value to store.
var settableKeys = map[string]func(string) (any, error){
	"base_url":     nonEmpty,
	"api_path":     nonEmpty,
	"api_url":      nonEmpty,
	"login_path":   nonEmpty,
	"refresh_path": nonEmpty,
	"logout_path":  nonEmpty,
	"cache_dir":    nonEmpty,
	"locale":       nonEmpty,
	"sentry_dsn":   nonEmpty,
	"environment":  nonEmpty,
	"format": func(v string) (any, error) {
		switch v {
		case "auto", "json", "yaml", "markdown", "md", "styled", "quiet":
			return v, nil
		}
		return nil, fmt.Errorf("format must be one of auto, json, yaml, markdown, styled, quiet")
	},
	"refresh_skew": func(v string) (any, error) {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("refresh_skew must be a duration such as 30s")
		}
		return d.String(), nil
	},
	"no_keyring": boolValue("no_keyring"),
	"resilience": boolValue("resilience"),
	"verbose": func(v string) (any, error) {
		level, err := strconv.Atoi(v)
		if err != nil || level < 0 || level > 2 {
			return nil, fmt.Errorf("verbose must be 0, 1, or 2")
		}
		return level, nil
	},
}

func nonEmpty(v string) (any, error) {
	if strings.TrimSpace(v) == "" {
		return nil, fmt.Errorf("value cannot be empty")
	}
	return v, nil
}

func boolValue(key string) func(string) (any, error) {
	return func(v string) (any, error) {
		b, ok := parseBoolFlag(v)
		if !ok {
			return nil, fmt.Errorf("%s must be true/false (or 1/0)", key)
		}
		return b, nil
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a value in the global config file.

Valid keys: ` + strings.Join(sortedSettableKeys(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			key, value := args[0], args[1]
			validate, ok := settableKeys[key]
			if !ok {
				return output.ErrUsage(fmt.Sprintf("Invalid config key %q. Valid keys: %s",
					key, strings.Join(sortedSettableKeys(), ", ")))
			}
			stored, err := validate(value)
			if err != nil {
				return output.ErrUsage(err.Error())
			}

			path := globalConfigFile()
			configData, err := readConfigFile(path)
			if err != nil {
				return err
			}
			configData[key] = stored

			if err := writeConfigFile(path, configData); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"value":  stored,
				"path":   path,
				"status": "set",
			},
				output.WithSummary(fmt.Sprintf("Set %s = %v", key, stored)),
				output.WithBreadcrumbs(configShowCrumb),
			)
		},
	}
}

func newConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Unset a configuration value",
		Long:  "Remove a value from the global config file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			key := args[0]
			path := globalConfigFile()
			configData, err := readConfigFile(path)
			if err != nil {
				return err
			}

			if _, exists := configData[key]; !exists {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_set",
				}, output.WithSummary(fmt.Sprintf("Key not set: %s", key)))
			}
			delete(configData, key)

			if err := writeConfigFile(path, configData); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"status": "unset",
			},
				output.WithSummary(fmt.Sprintf("Unset %s", key)),
				output.WithBreadcrumbs(configShowCrumb),
			)
		},
	}
}

var configShowCrumb = output.Breadcrumb{
	Action:      "show",
	Cmd:         "studysync config show",
	Description: "View config",
}

func newConfigResilienceCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "resilience",
		Short: "Show or reset the request gate",
		Long: `Show the shared circuit breaker, rate limiter, and bulkhead state
for the configured backend. --reset closes the circuit and refills the limiter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if app.Gate == nil {
				return app.OK(map[string]any{"enabled": false},
					output.WithSummary("Resilience is disabled"))
			}

			if reset {
				if err := app.Gate.Reset(); err != nil {
					return fmt.Errorf("failed to reset resilience state: %w", err)
				}
			}

			st := app.Gate.Status()
			data := map[string]any{
				"enabled":   true,
				"circuit":   st.Circuit,
				"tokens":    st.Tokens,
				"in_flight": st.InFlight,
			}
			if st.BlockedFor > 0 {
				data["blocked_for"] = st.BlockedFor.Round(time.Second).String()
			}
			if st.CircuitRetry > 0 {
				data["circuit_retry_in"] = st.CircuitRetry.Round(time.Second).String()
			}

			summary := "Circuit " + st.Circuit
			if reset {
				summary = "Reset; circuit " + st.Circuit
			}
			return app.OK(data, output.WithSummary(summary))
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Close the circuit and refill the rate limiter")
	return cmd
}

func sortedSettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func globalConfigFile() string {
	return filepath.Join(config.GlobalConfigDir(), "config.json")
}

func readConfigFile(path string) (map[string]any, error) {
	configData := make(map[string]any)
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config location
	if err != nil {
		if os.IsNotExist(err) {
			return configData, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &configData); err != nil {
		return nil, output.ErrUsageHint(fmt.Sprintf("Malformed config at %s", path), err.Error())
	}
	return configData, nil
}

func writeConfigFile(path string, configData map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(configData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomicWriteFile(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func parseBoolFlag(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// atomicWriteFile writes data to a file atomically using temp+rename.
// Files are always created with 0600 permissions.
func atomicWriteFile(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	// Windows: rename fails when the destination exists.
	if err := os.Rename(tmpPath, path); err != nil && runtime.GOOS == "windows" {
		_ = os.Remove(path)
		return os.Rename(tmpPath, path)
	} else { //nolint:revive // two-branch rename pattern
		return err
	}
}
