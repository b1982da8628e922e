package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
)

// NewAdminCmd creates the admin command group.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer the platform",
		Long:  "Platform statistics and account management. Requires an admin account.",
	}

	cmd.AddCommand(
		newAdminStatsCmd(),
		newAdminUsersCmd(),
		newAdminSetStatusCmd("activate", true),
		newAdminSetStatusCmd("deactivate", false),
	)
	return cmd
}

func newAdminStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			stats, err := app.Services.Admin.Stats(cmd.Context())
			if err != nil {
				return err
			}

			return app.Present(stats, app.Presenter.Stats(stats),
				output.WithSummary(fmt.Sprintf("%d users in %d groups", stats.Users, stats.Groups)))
		},
	}
}

func newAdminUsersCmd() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.Services.Admin.Users(cmd.Context(), page)
			if err != nil {
				return err
			}

			opts := []output.ResponseOption{
				output.WithSummary(fmt.Sprintf("%s (page %d of %d)",
					pluralize(result.Total, "user", "users"), result.Page, max(result.Pages, 1))),
				output.WithMeta("page", result.Page),
				output.WithMeta("pages", result.Pages),
			}
			if result.HasNext() {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "next",
					Cmd:         "studysync admin users --page " + result.NextPage(),
					Description: "Next page",
				}))
			}
			return app.Present(result.Items, app.Presenter.Users(result.Items), opts...)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func newAdminSetStatusCmd(verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <user-id>",
		Short: map[bool]string{true: "Reactivate an account", false: "Deactivate an account"}[active],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			user, err := app.Services.Admin.SetUserStatus(cmd.Context(), args[0], active)
			if err != nil {
				return err
			}

			return app.Present(user, app.Presenter.Users([]models.User{*user})[0],
				output.WithSummary(fmt.Sprintf("%s %sd", user.Email, verb)))
		},
	}
}
