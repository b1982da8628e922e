// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/getsentry/sentry-go"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/config"
	"github.com/studysync/studysync-cli/internal/observability"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/presenter"
	"github.com/studysync/studysync-cli/internal/resilience"
	"github.com/studysync/studysync-cli/internal/services"
	"github.com/studysync/studysync-cli/internal/session"
	"github.com/studysync/studysync-cli/internal/tui"
	"github.com/studysync/studysync-cli/internal/version"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config    *config.Config
	Session   *session.Session
	Client    *api.Client
	Services  *services.Services
	Output    *output.Writer
	Presenter *presenter.Presenter

	// Gate is nil when resilience is disabled.
	Gate *resilience.Gate

	// Observability
	Collector     *observability.SessionCollector
	Hooks         *observability.CLIHooks
	SentryEnabled bool

	// Flags holds the global flag values
	Flags GlobalFlags

	Stdout io.Writer
	Stderr io.Writer
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON    bool
	Quiet   bool
	YAML    bool
	MD      bool // Literal Markdown syntax output
	Styled  bool // Force ANSI styled output (even when piped)
	IDsOnly bool
	Count   bool

	// Context flags
	Host     string
	CacheDir string

	// Behavior flags
	Verbose      int // 0=off, 1=refresh traces, 2=every request (stacks with -v -v or -vv)
	Stats        bool
	NoResilience bool
}

// Option customizes NewApp. Tests use it to substitute stores.
type Option func(*appOptions)

type appOptions struct {
	durable   session.CredentialStore
	ephemeral session.CredentialStore
	stdout    io.Writer
	stderr    io.Writer
}

// WithCredentialStores replaces the keyring and runtime-dir stores.
func WithCredentialStores(durable, ephemeral session.CredentialStore) Option {
	return func(o *appOptions) {
		o.durable = durable
		o.ephemeral = ephemeral
	}
}

// WithWriters replaces stdout and stderr.
func WithWriters(stdout, stderr io.Writer) Option {
	return func(o *appOptions) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, opts ...Option) *App {
	o := appOptions{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	if o.durable == nil {
		o.durable = session.NewKeyringStore(config.GlobalConfigDir(), cfg.NoKeyring)
	}
	if o.ephemeral == nil {
		o.ephemeral = session.NewFileStore(config.RuntimeDir(), "session.json")
	}

	sess := session.New(cfg.Origin(), o.durable, o.ephemeral)
	if err := sess.Load(); err != nil {
		fmt.Fprintf(o.stderr, "warning: %v\n", err)
	}

	// Collector always runs to gather stats; hooks control output verbosity.
	// Level 0 initially; ApplyFlags sets the actual level from -v flags.
	collector := observability.NewSessionCollector()
	traceWriter := observability.NewTraceWriterTo(o.stderr)
	hooks := observability.NewCLIHooks(0, collector, traceWriter)

	clientOpts := []api.Option{
		api.WithHooks(hooks),
		api.WithEndpoints(api.Endpoints{
			Login:   cfg.LoginPath,
			Refresh: cfg.RefreshPath,
			Logout:  cfg.LogoutPath,
		}),
		api.WithProactiveRefresh(cfg.RefreshSkew),
	}

	sentryEnabled, err := observability.InitSentry(cfg.SentryDSN, cfg.Environment, version.Version)
	if err != nil {
		fmt.Fprintf(o.stderr, "warning: error reporting disabled: %v\n", err)
	}
	if sentryEnabled {
		clientOpts = append(clientOpts, api.WithHooks(observability.NewSentryHooks(sentry.CurrentHub())))
	}

	var gate *resilience.Gate
	if cfg.Resilience {
		gate = resilience.NewGateFromConfig(resilience.NewStore(cfg.CacheDir), cfg.Origin(), nil)
		clientOpts = append(clientOpts, api.WithGate(gate))
	}

	client := api.NewClient(api.Config{BaseURL: cfg.ResolvedAPIURL()}, sess, clientOpts...)

	app := &App{
		Config:        cfg,
		Session:       sess,
		Client:        client,
		Services:      services.New(client),
		Presenter:     presenter.New(presenter.DetectLocale(cfg.Locale)),
		Gate:          gate,
		Collector:     collector,
		Hooks:         hooks,
		SentryEnabled: sentryEnabled,
		Stdout:        o.stdout,
		Stderr:        o.stderr,
		Output: output.New(output.Options{
			Format: formatFromConfig(cfg.Format),
			Writer: o.stdout,
		}),
	}
	client.OnSessionExpired(app.sessionExpired)
	return app
}

func formatFromConfig(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "yaml":
		return output.FormatYAML
	case "markdown", "md":
		return output.FormatMarkdown
	case "styled":
		return output.FormatStyled
	case "quiet":
		return output.FormatQuiet
	default:
		return output.FormatAuto
	}
}

// sessionExpired runs once per failed refresh after the credentials have
// been destroyed. The error itself still reaches every caller; this only
// tells a human at a terminal why they are being signed out.
func (a *App) sessionExpired(err error) {
	if a.isMachineOutput() || !output.IsTTY(a.Stderr) {
		return
	}
	styles := tui.NewStyles()
	fmt.Fprintln(a.Stderr, styles.Warning.Render("Your StudySync session has expired and you have been signed out."))
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	// Order matters: specific modes first
	format := output.FormatAuto
	switch {
	case a.Flags.IDsOnly:
		format = output.FormatIDs
	case a.Flags.Count:
		format = output.FormatCount
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.YAML:
		format = output.FormatYAML
	case a.Flags.Styled:
		format = output.FormatStyled
	case a.Flags.MD:
		format = output.FormatMarkdown
	}
	if format != output.FormatAuto {
		a.Output = output.New(output.Options{Format: format, Writer: a.Stdout})
	}

	level := a.verboseLevel()
	if a.Hooks != nil {
		a.Hooks.SetLevel(level)
	}
	if level > 0 {
		a.Client.SetLogger(slog.New(slog.NewTextHandler(a.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
}

// verboseLevel combines -v flags, the config file and STUDYSYNC_DEBUG.
func (a *App) verboseLevel() int {
	level := a.Flags.Verbose
	if a.Config != nil && a.Config.Verbose != nil && *a.Config.Verbose > level {
		level = *a.Config.Verbose
	}
	if debugEnv := os.Getenv("STUDYSYNC_DEBUG"); debugEnv != "" {
		// "1", "2", or "true" (full debug)
		if n, err := strconv.Atoi(debugEnv); err == nil {
			level = max(level, n)
		} else if debugEnv == "true" {
			level = 2
		}
	}
	return min(level, 2)
}

// Human reports whether output is rendered for people, in which case
// commands pass presenter rows instead of raw models.
func (a *App) Human() bool {
	switch a.Output.Format() {
	case output.FormatStyled, output.FormatMarkdown:
		return true
	}
	return false
}

// OK outputs a success response, automatically including stats if --stats flag is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		stats := a.Collector.Summary()
		opts = append(opts, output.WithMeta("stats", stats.Stats()))
	}
	return a.Output.OK(data, opts...)
}

// Present outputs rows for humans and data for machines.
func (a *App) Present(data, rows any, opts ...output.ResponseOption) error {
	if a.Human() {
		return a.OK(rows, opts...)
	}
	return a.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats flag is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}

	// Not in machine-consumable modes
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		stats := a.Collector.Summary()
		a.printStatsToStderr(&stats)
	}
	return nil
}

// MachineOutput reports whether stdout is consumed by a program, in which
// case commands keep stderr free of progress chatter.
func (a *App) MachineOutput() bool {
	return a.isMachineOutput()
}

// isMachineOutput returns true if the output mode is intended for programmatic consumption.
func (a *App) isMachineOutput() bool {
	if a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count {
		return true
	}
	return a.Config != nil && a.Config.Format == "quiet"
}

// printStatsToStderr outputs a compact stats line to stderr.
func (a *App) printStatsToStderr(stats *observability.SessionMetrics) {
	var parts []string

	duration := stats.EndTime.Sub(stats.StartTime)
	if duration < time.Second {
		parts = append(parts, fmt.Sprintf("%dms", duration.Milliseconds()))
	} else {
		parts = append(parts, fmt.Sprintf("%.1fs", duration.Seconds()))
	}

	switch stats.TotalRequests {
	case 0:
	case 1:
		parts = append(parts, "1 request")
	default:
		parts = append(parts, fmt.Sprintf("%d requests", stats.TotalRequests))
	}
	if stats.Refreshes > 0 {
		parts = append(parts, fmt.Sprintf("%d refresh", stats.Refreshes))
	}
	if stats.Replays > 0 {
		parts = append(parts, fmt.Sprintf("%d replayed", stats.Replays))
	}
	if stats.FailedRequests > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", stats.FailedRequests))
	}

	fmt.Fprintf(a.Stderr, "\nStats: %s\n", strings.Join(parts, " | "))
}

// IsInteractive returns true if prompts can be shown.
func (a *App) IsInteractive() bool {
	if a.Flags.JSON || a.Flags.YAML || a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count {
		return false
	}
	f, ok := a.Stdout.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(f.Fd()) && term.IsTerminal(os.Stdin.Fd())
}

// Close flushes pending error reports.
func (a *App) Close() {
	if a.SentryEnabled {
		observability.FlushSentry()
	}
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	if ctx == nil {
		return nil
	}
	app, _ := ctx.Value(appKey).(*App)
	return app
}
