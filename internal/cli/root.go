// Package cli wires the root command and process exit handling.
package cli

import (
	"context"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/studysync/studysync-cli/internal/appctx"
	"github.com/studysync/studysync-cli/internal/commands"
	"github.com/studysync/studysync-cli/internal/config"
	"github.com/studysync/studysync-cli/internal/hostutil"
	"github.com/studysync/studysync-cli/internal/observability"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/version"
)

// NewRootCmd creates the root cobra command. opts are passed to every
// App the command builds.
func NewRootCmd(opts ...appctx.Option) *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "studysync",
		Short:         "Command-line interface for StudySync",
		Long:          "studysync is a CLI for StudySync study groups, shared files, chat, and subscriptions.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and completion
			if cmd.Name() == "help" || cmd.Name() == cobra.ShellCompRequestCmd {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				Host:         hostutil.Normalize(flags.Host),
				CacheDir:     flags.CacheDir,
				NoResilience: flags.NoResilience,
			})
			if err != nil {
				return err
			}
			if err := hostutil.RequireSecureURL(cfg.ResolvedAPIURL()); err != nil {
				return output.ErrUsageHint(err.Error(), "Use an https:// host, or http:// only for localhost")
			}

			app := appctx.NewApp(cfg, opts...)
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVar(&flags.YAML, "yaml", false, "Output as YAML")
	cmd.PersistentFlags().BoolVarP(&flags.MD, "md", "m", false, "Output as Markdown (portable)")
	cmd.PersistentFlags().BoolVar(&flags.MD, "markdown", false, "Output as Markdown (portable)")
	cmd.PersistentFlags().BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	cmd.PersistentFlags().BoolVar(&flags.IDsOnly, "ids-only", false, "Output only IDs")
	cmd.PersistentFlags().BoolVar(&flags.Count, "count", false, "Output only count")

	// Context flags
	cmd.PersistentFlags().StringVar(&flags.Host, "host", "", "StudySync host (e.g., localhost:5000, staging.studysync.app)")
	cmd.PersistentFlags().StringVar(&flags.CacheDir, "cache-dir", "", "Cache directory")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for token refreshes, -vv for every request)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Show session statistics")
	cmd.PersistentFlags().BoolVar(&flags.NoResilience, "no-resilience", false, "Bypass the circuit breaker and rate limiter")

	cmd.AddCommand(commands.All()...)

	return cmd
}

// Execute runs the root command and exits with the error's exit code.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout))
}

// Run executes args and returns the process exit code. Errors are written
// to stdout as an envelope, like every other result.
func Run(ctx context.Context, args []string, stdout io.Writer, opts ...appctx.Option) int {
	cmd := NewRootCmd(opts...)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteContextC(ctx)
	app := appctx.FromContext(executedCmd.Context())
	if app != nil {
		defer app.Close()
	}
	if err == nil {
		return output.ExitOK
	}

	err = transformCobraError(err)
	apiErr := output.AsError(err)

	if observability.ShouldReport(err) {
		observability.CaptureError(err, executedCmd.CommandPath())
	}

	// Try to use app.Err() if app is available (for --stats support)
	if app != nil {
		_ = app.Err(err)
		return apiErr.ExitCode()
	}

	// Fallback: setup failed before an app existed
	writer := output.New(output.Options{
		Format: fallbackFormat(cmd.PersistentFlags()),
		Writer: stdout,
	})
	_ = writer.Err(err)
	return apiErr.ExitCode()
}

// fallbackFormat reads the output flags straight off the parsed flag set.
func fallbackFormat(pf *pflag.FlagSet) output.Format {
	quiet, _ := pf.GetBool("quiet")
	idsOnly, _ := pf.GetBool("ids-only")
	count, _ := pf.GetBool("count")
	yamlFlag, _ := pf.GetBool("yaml")
	styled, _ := pf.GetBool("styled")
	md, _ := pf.GetBool("md")
	jsonFlag, _ := pf.GetBool("json")

	switch {
	case quiet:
		return output.FormatQuiet
	case idsOnly:
		return output.FormatIDs
	case count:
		return output.FormatCount
	case jsonFlag:
		return output.FormatJSON
	case yamlFlag:
		return output.FormatYAML
	case styled:
		return output.FormatStyled
	case md:
		return output.FormatMarkdown
	default:
		return output.FormatAuto
	}
}

var (
	shorthandFlagRe = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)
	requiredFlagRe  = regexp.MustCompile(`required flag\(s\) "([\w-]+)" not set`)
)

// transformCobraError turns cobra's parse errors into usage errors with
// consistent wording.
func transformCobraError(err error) error {
	msg := err.Error()

	if flag, ok := strings.CutPrefix(msg, "flag needs an argument: "); ok {
		return output.ErrUsage(flag + " requires a value")
	}

	if flag, ok := strings.CutPrefix(msg, "unknown flag: "); ok {
		return output.ErrUsage("Unknown option: " + flag)
	}

	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		if matches := shorthandFlagRe.FindStringSubmatch(msg); len(matches) > 1 {
			return output.ErrUsage("Unknown option: " + matches[1])
		}
	}

	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(msg, "Run 'studysync --help' for a list of commands")
	}

	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}

	// Arity errors from cobra.ExactArgs and friends
	if strings.Contains(msg, "arg(s)") {
		return output.ErrUsage(msg)
	}

	if matches := requiredFlagRe.FindStringSubmatch(msg); len(matches) > 1 {
		return output.ErrUsage("--" + matches[1] + " is required")
	}

	return err
}
