package commands

import (
	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/tui"
)

// NewMeCmd creates the me command for the signed-in profile.
func NewMeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show your profile",
		Long:  "Show the profile of the signed-in user. Subcommands edit it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			user, err := app.Services.Users.Me(cmd.Context())
			if err != nil {
				return err
			}

			return app.Present(user, app.Presenter.User(user),
				output.WithSummary(user.Name+" <"+user.Email+">"),
			)
		},
	}

	cmd.AddCommand(newMeUpdateCmd(), newMePasswordCmd())
	return cmd
}

func newMeUpdateCmd() *cobra.Command {
	var in models.ProfileUpdate

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your profile",
		Long: `Update profile fields. Only the flags you pass are changed.

Examples:
  studysync me update --name "Ada Lovelace"
  studysync me update --bio "Calculus TA"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			user, err := app.Services.Users.UpdateProfile(cmd.Context(), in)
			if err != nil {
				return err
			}

			return app.Present(user, app.Presenter.User(user),
				output.WithSummary("Profile updated"),
			)
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Bio, "bio", "", "Short bio")
	cmd.Flags().StringVar(&in.Avatar, "avatar", "", "Avatar URL")

	return cmd
}

func newMePasswordCmd() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Long: `Change the account password.

Interactively, both passwords are prompted for. With --stdin the current
and new passwords are read from the first two lines of stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			var current, next string
			switch {
			case fromStdin:
				current, next, err = readPasswordPair(cmd)
				if err != nil {
					return err
				}
			case app.IsInteractive():
				if current, next, err = tui.PasswordChangeForm(); err != nil {
					return err
				}
			default:
				return output.ErrUsageHint("Passwords are required",
					"Pipe the current and new password on two lines with --stdin")
			}

			if err := app.Services.Users.ChangePassword(cmd.Context(), current, next); err != nil {
				return err
			}
			return app.OK(map[string]string{"status": "password_changed"},
				output.WithSummary("Password changed"))
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read current and new password from stdin")
	return cmd
}
