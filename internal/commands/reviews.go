package commands

import (
	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
)

// NewReviewsCmd creates the reviews command group for moderators.
func NewReviewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Moderate uploaded content",
		Long:  "List, approve, and reject content reviews. Requires a moderator or admin account.",
	}

	cmd.AddCommand(
		newReviewsListCmd(),
		newReviewsDecideCmd("approve"),
		newReviewsDecideCmd("reject"),
		newReviewsDeleteCmd(),
	)
	return cmd
}

func newReviewsListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			switch status {
			case "", "pending", "approved", "rejected":
			default:
				return output.ErrUsageHint("Unknown status "+status, "Use pending, approved, or rejected")
			}

			reviews, err := app.Services.Reviews.List(cmd.Context(), status)
			if err != nil {
				return err
			}

			return app.Present(reviews, app.Presenter.Reviews(reviews),
				output.WithSummary(pluralize(len(reviews), "review", "reviews")))
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, approved, rejected)")
	return cmd
}

func newReviewsDecideCmd(action string) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   action + " <review-id>",
		Short: map[string]string{"approve": "Approve a review", "reject": "Reject a review"}[action],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			var review *models.Review
			if action == "approve" {
				review, err = app.Services.Reviews.Approve(cmd.Context(), args[0])
			} else {
				review, err = app.Services.Reviews.Reject(cmd.Context(), args[0], reason)
			}
			if err != nil {
				return err
			}

			return app.Present(review, app.Presenter.Reviews([]models.Review{*review})[0],
				output.WithSummary("Review "+args[0]+" "+review.Status))
		},
	}

	if action == "reject" {
		cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the uploader (required)")
	}
	return cmd
}

func newReviewsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <review-id>",
		Short: "Delete a review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			if err := confirmDestructive(app, yes, "review "+args[0]); err != nil {
				return err
			}
			if err := app.Services.Reviews.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			return app.OK(map[string]string{"id": args[0], "status": "deleted"},
				output.WithSummary("Deleted review "+args[0]))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
