package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/richtext"
)

// NewAICmd creates the ai command group for assistant history.
func NewAICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Browse study assistant conversations",
	}

	cmd.AddCommand(newAISessionsCmd(), newAIShowCmd(), newAIDeleteCmd())
	return cmd
}

func newAISessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List assistant sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			sessions, err := app.Services.AIChat.Sessions(cmd.Context())
			if err != nil {
				return err
			}

			return app.Present(sessions, app.Presenter.AISessions(sessions),
				output.WithSummary(pluralize(len(sessions), "session", "sessions")),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "show",
					Cmd:         "studysync ai show <id>",
					Description: "Read a conversation",
				}),
			)
		},
	}
}

func newAIShowCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a conversation",
		Long: `Show every turn of an assistant session. In a terminal the answers are
rendered as Markdown; --md prints the Markdown source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			msgs, err := app.Services.AIChat.Messages(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !app.Human() {
				return app.OK(msgs, output.WithSummary(pluralize(len(msgs), "message", "messages")))
			}

			md := richtext.Transcript(title, transcriptTurns(msgs))
			if app.Output.Format() == output.FormatMarkdown {
				_, err = fmt.Fprint(app.Stdout, md)
				return err
			}
			rendered, err := richtext.RenderMarkdown(md)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(app.Stdout, rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Heading for the transcript")
	return cmd
}

func transcriptTurns(msgs []models.AIMessage) []richtext.Turn {
	turns := make([]richtext.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = richtext.Turn{Role: m.Role, Content: m.Content, At: m.CreatedAt}
	}
	return turns
}

func newAIDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if err := confirmDestructive(app, yes, "session "+args[0]); err != nil {
				return err
			}
			if err := app.Services.AIChat.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}

			return app.OK(map[string]string{"id": args[0], "status": "deleted"},
				output.WithSummary("Deleted session "+args[0]))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
