package services

import (
	"context"
	"net/url"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
)

// Reviews covers moderation of uploaded content.
type Reviews struct {
	client *api.Client
}

// List returns reviews, optionally filtered by status (pending, approved, rejected).
func (s *Reviews) List(ctx context.Context, status string) ([]models.Review, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	resp, err := s.client.Get(ctx, "/reviews", q)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Review](resp, "reviews")
}

// Approve marks a review approved.
func (s *Reviews) Approve(ctx context.Context, id string) (*models.Review, error) {
	return s.decide(ctx, id, "approve", nil)
}

// Reject marks a review rejected with a reason shown to the uploader.
func (s *Reviews) Reject(ctx context.Context, id, reason string) (*models.Review, error) {
	if reason == "" {
		return nil, output.ErrUsage("a rejection reason is required")
	}
	return s.decide(ctx, id, "reject", map[string]string{"reason": reason})
}

func (s *Reviews) decide(ctx context.Context, id, action string, body any) (*models.Review, error) {
	if err := requireID("review", id); err != nil {
		return nil, err
	}
	resp, err := s.client.Put(ctx, "/reviews"+path(id, action), body)
	if err != nil {
		return nil, err
	}
	var r models.Review
	if err := decode(resp, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Delete removes a review.
func (s *Reviews) Delete(ctx context.Context, id string) error {
	if err := requireID("review", id); err != nil {
		return err
	}
	resp, err := s.client.Delete(ctx, "/reviews"+path(id))
	if err != nil {
		return err
	}
	return decode(resp, nil)
}
