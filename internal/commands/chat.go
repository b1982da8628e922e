package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/services"
)

// NewChatCmd creates the chat command group.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read and send group chat messages",
	}

	history, send := newChatHistoryCmd(), newChatSendCmd()
	completeGroupArgs(history, send)

	cmd.AddCommand(history, send)
	return cmd
}

func newChatHistoryCmd() *cobra.Command {
	var limit int
	var before string

	cmd := &cobra.Command{
		Use:   "history <group-id>",
		Short: "Show recent messages",
		Long: `Show a page of chat history, oldest first. Pass --before with the
oldest message ID of a page to fetch the page before it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			msgs, err := app.Services.Chat.History(cmd.Context(), args[0], before, limit)
			if err != nil {
				return err
			}

			opts := []output.ResponseOption{
				output.WithSummary(pluralize(len(msgs), "message", "messages")),
			}
			if len(msgs) > 0 && len(msgs) >= limit {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "older",
					Cmd:         fmt.Sprintf("studysync chat history %s --before %s", args[0], msgs[0].ID),
					Description: "Load older messages",
				}))
			}
			return app.Present(msgs, app.Presenter.Messages(msgs), opts...)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", services.DefaultHistoryLimit, "Messages per page")
	cmd.Flags().StringVar(&before, "before", "", "Only messages older than this message ID")

	return cmd
}

func newChatSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <group-id> <message...>",
		Short: "Send a message",
		Long: `Send a message to a group chat. Use - as the message to read it from stdin.

Examples:
  studysync chat send 64f0c2 "Meeting at 7 in the library"
  git log -1 --format=%B | studysync chat send 64f0c2 -`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			text := strings.Join(args[1:], " ")
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = strings.TrimRight(string(data), "\n")
			}

			msg, err := app.Services.Chat.Send(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}

			return app.Present(msg, app.Presenter.Messages([]models.Message{*msg})[0],
				output.WithSummary("Message sent"))
		},
	}
}
