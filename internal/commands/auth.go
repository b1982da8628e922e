package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/session"
	"github.com/studysync/studysync-cli/internal/tui"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  "Sign in to StudySync, inspect the stored session, and sign out.",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
		newAuthRefreshCmd(),
		newAuthTokenCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var email string
	var passwordStdin bool
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in and store the token pair.

With --remember the tokens are kept in the system keyring (or the config
directory when no keyring is available) and survive restarts. Without it
they live in the per-user runtime directory and are gone after a reboot.

Examples:
  studysync auth login
  studysync auth login --email ada@example.com --remember
  echo "$PASSWORD" | studysync auth login --email ada@example.com --password-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			creds := tui.Credentials{Email: email, Remember: remember}
			if passwordStdin {
				if creds.Password, err = readSecret(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			if creds.Email == "" || creds.Password == "" {
				if !app.IsInteractive() {
					return output.ErrUsageHint("Email and password are required",
						"Use --email with --password-stdin when not running in a terminal")
				}
				if err := tui.LoginForm(&creds); err != nil {
					return err
				}
			}

			result, err := app.Client.Login(cmd.Context(), api.LoginRequest{
				Email:      creds.Email,
				Password:   creds.Password,
				RememberMe: creds.Remember,
			})
			if err != nil {
				return err
			}
			if result.Scope == session.ScopeDurable {
				if err := app.Session.MigrateDurable(); err != nil {
					fmt.Fprintf(app.Stderr, "warning: %v\n", err)
				}
			}

			data := map[string]any{
				"status": "logged_in",
				"scope":  string(result.Scope),
				"origin": app.Session.Origin(),
			}
			if len(result.User) > 0 {
				data["user"] = json.RawMessage(result.User)
			}

			summary := "Signed in as " + creds.Email
			if result.Scope == session.ScopeSession {
				summary += " for this session"
			}
			return app.OK(data,
				output.WithSummary(summary),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "groups",
					Cmd:         "studysync groups list --joined",
					Description: "List your study groups",
				}),
			)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().BoolVarP(&remember, "remember", "r", false, "Stay signed in across restarts")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored credentials",
		Long:  "Tell the backend to revoke the session, then remove the stored tokens from both scopes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if err := app.Client.Logout(cmd.Context()); err != nil {
				return err
			}

			return app.OK(map[string]string{
				"status": "logged_out",
			}, output.WithSummary("Signed out"))
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display the stored session: scope, identity, and access token expiry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			origin := app.Session.Origin()
			creds := app.Session.Credentials()
			if creds == nil || creds.AccessToken == "" {
				return app.OK(map[string]any{
					"authenticated": false,
					"origin":        origin,
					"storage":       app.Session.Storage(),
				}, output.WithSummary("Not signed in"))
			}

			status := map[string]any{
				"authenticated": true,
				"origin":        origin,
				"scope":         string(creds.Scope),
				"refreshable":   creds.RefreshToken != "",
				"storage":       app.Session.Storage(),
			}
			if creds.Email != "" {
				status["email"] = creds.Email
			}
			if creds.UserID != "" {
				status["user_id"] = creds.UserID
			}
			if creds.Role != "" {
				status["role"] = creds.Role
			}
			if exp, ok := session.TokenExpiry(creds.AccessToken); ok {
				expiresIn := time.Until(exp)
				status["expires_in"] = expiresIn.Round(time.Second).String()
				status["expired"] = expiresIn < 0
			}

			summary := "Signed in"
			if creds.Email != "" {
				summary += " as " + creds.Email
			}
			summary += fmt.Sprintf(" (%s)", creds.Scope)
			return app.OK(status, output.WithSummary(summary))
		},
	}
}

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token",
		Long:  "Exchange the refresh token for a new access token now, instead of waiting for a 401.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if _, err := app.Client.Refresh(cmd.Context()); err != nil {
				return err
			}

			return app.OK(map[string]string{
				"status": "refreshed",
			}, output.WithSummary("Access token refreshed"))
		},
	}
}

func newAuthTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the access token",
		Long: `Print the current access token to stdout for use with other tools.

Examples:
  curl -H "Authorization: Bearer $(studysync auth token)" https://studysync.app/api/users/me

Output modes:
  studysync auth token           # Raw token (for shell substitution)
  studysync auth token --json    # JSON envelope with token in data field`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			token := app.Session.AccessToken()
			if app.Flags.JSON || app.Flags.YAML || app.Flags.Quiet {
				return app.OK(map[string]string{"access_token": token})
			}
			_, err = fmt.Fprintln(app.Stdout, token)
			return err
		},
	}
}
