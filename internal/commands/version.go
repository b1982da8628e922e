package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/appctx"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
				return err
			}
			return app.OK(version.Current(), output.WithSummary(version.Full()))
		},
	}
}
