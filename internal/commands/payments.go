package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/presenter"
	"github.com/studysync/studysync-cli/internal/services"
	"github.com/studysync/studysync-cli/internal/tui"
)

// NewPlansCmd creates the plans command.
func NewPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List subscription plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			plans, err := app.Services.Payments.Plans(cmd.Context())
			if err != nil {
				return err
			}

			return app.Present(plans, app.Presenter.Plans(plans),
				output.WithSummary(pluralize(len(plans), "plan", "plans")),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "subscribe",
					Cmd:         "studysync subscribe <plan-id> --wait",
					Description: "Buy a plan",
				}),
			)
		},
	}
}

// NewSubscribeCmd creates the subscribe command.
func NewSubscribeCmd() *cobra.Command {
	var wait bool
	var timeout, interval time.Duration

	cmd := &cobra.Command{
		Use:   "subscribe <plan-id>",
		Short: "Start a checkout for a plan",
		Long: `Start a checkout and print the payment link. With --wait the command
keeps polling the order until it is paid, cancelled, or expired.

If the order is still pending when --timeout runs out, the command exits
with code 10 (error code "pending"). Network failures exit with 6.

Examples:
  studysync subscribe 65ab01
  studysync subscribe 65ab01 --wait --timeout 10m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			checkout, err := app.Services.Payments.Subscribe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !wait {
				return app.OK(checkout,
					output.WithSummary("Open "+checkout.CheckoutURL+" to pay"),
					output.WithBreadcrumbs(output.Breadcrumb{
						Action:      "status",
						Cmd:         "studysync subscription status " + checkout.OrderCode,
						Description: "Check payment status",
					}),
				)
			}

			styles := tui.NewStyles()
			if !app.MachineOutput() {
				fmt.Fprintln(app.Stderr, styles.KeyValue("checkout", checkout.CheckoutURL))
				fmt.Fprintln(app.Stderr, styles.Muted.Render("Waiting for payment confirmation..."))
			}

			var lastStatus string
			tx, err := app.Services.Payments.WaitForTransaction(cmd.Context(), checkout.OrderCode, services.PollOptions{
				Interval: interval,
				Timeout:  timeout,
				OnPoll: func(t *models.Transaction) {
					if t.Status != lastStatus && !app.MachineOutput() {
						fmt.Fprintln(app.Stderr, styles.KeyValue("status", presenter.StatusLabel(t.Status)))
					}
					lastStatus = t.Status
				},
			})
			if err != nil {
				return err
			}

			return app.Present(tx, app.Presenter.Transaction(tx),
				output.WithSummary(fmt.Sprintf("Order %s %s", tx.OrderCode, presenter.StatusLabel(tx.Status))))
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the payment to complete")
	cmd.Flags().DurationVar(&timeout, "timeout", services.DefaultPollTimeout, "How long to wait with --wait")
	cmd.Flags().DurationVar(&interval, "interval", services.DefaultPollInterval, "Polling interval with --wait")

	return cmd
}

// NewSubscriptionCmd creates the subscription command.
func NewSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Show your current subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			sub, err := app.Services.Payments.MySubscription(cmd.Context())
			if err != nil {
				var e *output.Error
				if errors.As(err, &e) && e.Code == output.CodeNotFound {
					return app.OK(map[string]any{"status": "none"},
						output.WithSummary("No active subscription"),
						output.WithBreadcrumbs(output.Breadcrumb{
							Action:      "plans",
							Cmd:         "studysync plans",
							Description: "See available plans",
						}))
				}
				return err
			}

			summary := "Subscription " + sub.Status
			if sub.Plan != nil {
				summary = sub.Plan.Name + ": " + sub.Status
			}
			return app.Present(sub, app.Presenter.Subscription(sub), output.WithSummary(summary))
		},
	}

	cmd.AddCommand(newSubscriptionStatusCmd())
	return cmd
}

func newSubscriptionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <order-code>",
		Short: "Show the status of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := authedApp(cmd)
			if err != nil {
				return err
			}

			tx, err := app.Services.Payments.Transaction(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return app.Present(tx, app.Presenter.Transaction(tx),
				output.WithSummary(fmt.Sprintf("Order %s %s", tx.OrderCode, presenter.StatusLabel(tx.Status))))
		},
	}
}
