package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
)

// Polling defaults for WaitForTransaction.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)

// ErrPaymentPending is the cause of the error WaitForTransaction returns
// when the transaction is still pending at the deadline.
var ErrPaymentPending = errors.New("payment still pending")

// PollOptions tune WaitForTransaction.
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	// OnPoll, if set, sees every transaction fetched while waiting.
	OnPoll func(*models.Transaction)
}

// Payments covers plans, checkout and subscription status.
type Payments struct {
	client *api.Client
}

// NewPayments returns the payments service for c.
func NewPayments(c *api.Client) *Payments {
	return &Payments{client: c}
}

// Plans lists purchasable plans.
func (s *Payments) Plans(ctx context.Context) ([]models.Plan, error) {
	resp, err := s.client.Get(ctx, "/payments/plans", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Plan](resp, "plans")
}

// Subscribe starts a checkout for planID.
func (s *Payments) Subscribe(ctx context.Context, planID string) (*models.Checkout, error) {
	if err := requireID("plan", planID); err != nil {
		return nil, err
	}
	resp, err := s.client.Post(ctx, "/payments/checkout", map[string]string{"planId": planID})
	if err != nil {
		return nil, err
	}
	var c models.Checkout
	if err := decode(resp, &c); err != nil {
		return nil, err
	}
	if c.OrderCode == "" {
		return nil, output.ErrAPI(resp.StatusCode, "checkout response has no order code")
	}
	return &c, nil
}

// Transaction returns the current state of an order.
func (s *Payments) Transaction(ctx context.Context, orderCode string) (*models.Transaction, error) {
	if err := requireID("order", orderCode); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, "/payments/transactions"+path(orderCode), nil)
	if err != nil {
		return nil, err
	}
	var t models.Transaction
	if err := decode(resp, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// WaitForTransaction polls an order until it reaches a terminal status.
// When the timeout elapses first it returns the last transaction seen
// together with an error wrapping ErrPaymentPending.
func (s *Payments) WaitForTransaction(ctx context.Context, orderCode string, opts PollOptions) (*models.Transaction, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPollTimeout
	}

	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(opts.Interval), 1)
	var last *models.Transaction
	for {
		if err := limiter.Wait(pollCtx); err != nil {
			// Wait also fails early when the next tick would land past the deadline.
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, pendingError(orderCode, opts.Timeout)
		}

		tx, err := s.Transaction(pollCtx, orderCode)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return last, pendingError(orderCode, opts.Timeout)
			}
			return last, err
		}
		last = tx
		if opts.OnPoll != nil {
			opts.OnPoll(tx)
		}
		if tx.Terminal() {
			return tx, nil
		}
	}
}

func pendingError(orderCode string, timeout time.Duration) error {
	e := output.ErrPending(
		fmt.Sprintf("Payment %s not confirmed after %s", orderCode, timeout),
		"Check again: studysync subscription status "+orderCode)
	e.Cause = ErrPaymentPending
	return e
}

// MySubscription returns the caller's current subscription.
func (s *Payments) MySubscription(ctx context.Context) (*models.Subscription, error) {
	resp, err := s.client.Get(ctx, "/payments/subscription", nil)
	if err != nil {
		return nil, err
	}
	var sub models.Subscription
	if err := decode(resp, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}
