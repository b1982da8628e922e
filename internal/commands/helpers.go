// Package commands implements the CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/appctx"
	"github.com/studysync/studysync-cli/internal/completion"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/tui"
)

// All returns every top-level command in display order.
func All() []*cobra.Command {
	return []*cobra.Command{
		NewAuthCmd(),
		NewMeCmd(),
		NewGroupsCmd(),
		NewFilesCmd(),
		NewChatCmd(),
		NewAICmd(),
		NewPlansCmd(),
		NewSubscribeCmd(),
		NewSubscriptionCmd(),
		NewReviewsCmd(),
		NewAdminCmd(),
		NewAPICmd(),
		NewConfigCmd(),
		NewVersionCmd(),
	}
}

// appFrom returns the app for cmd or an error when setup was skipped.
func appFrom(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

// authedApp is appFrom plus a local check for stored credentials, so a
// signed-out user gets a login hint without a round trip.
func authedApp(cmd *cobra.Command) (*appctx.App, error) {
	app, err := appFrom(cmd)
	if err != nil {
		return nil, err
	}
	if !app.Session.IsAuthenticated() {
		return nil, output.ErrAuth("Not signed in")
	}
	return app, nil
}

// groupCache is the completion cache for app's cache directory. Writes to
// it are best-effort.
func groupCache(app *appctx.App) *completion.Store {
	return completion.NewStore(app.Config.CacheDir)
}

// completeGroupArgs offers cached group IDs for each command's first
// positional argument.
func completeGroupArgs(cmds ...*cobra.Command) {
	complete := completion.NewCompleter(nil).GroupCompletion()
	for _, c := range cmds {
		c.ValidArgsFunction = complete
	}
}

// confirmDestructive asks before deleting unless --yes was passed or no
// terminal is attached.
func confirmDestructive(app *appctx.App, yes bool, what string) error {
	if yes || !app.IsInteractive() {
		return nil
	}
	ok, err := tui.ConfirmDangerous("Delete " + what + "?")
	if err != nil {
		return err
	}
	if !ok {
		return output.ErrUsage("Cancelled")
	}
	return nil
}

// readSecret reads a single line from r, for --password-stdin.
func readSecret(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimRight(line, "\r"), nil
}

// readPasswordPair reads the current and new password from the first two
// lines of stdin.
func readPasswordPair(cmd *cobra.Command) (string, string, error) {
	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 8192))
	if err != nil {
		return "", "", fmt.Errorf("reading stdin: %w", err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 2 || lines[0] == "" || lines[1] == "" {
		return "", "", output.ErrUsage("expected the current and new password on separate lines")
	}
	if err := tui.ValidatePassword(lines[1]); err != nil {
		return "", "", output.ErrUsage(err.Error())
	}
	return lines[0], lines[1], nil
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
