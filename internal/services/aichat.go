package services

import (
	"context"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/models"
)

// AIChat covers the study assistant's conversation history.
type AIChat struct {
	client *api.Client
}

// Sessions lists the caller's assistant sessions.
func (s *AIChat) Sessions(ctx context.Context) ([]models.AISession, error) {
	resp, err := s.client.Get(ctx, "/ai/sessions", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.AISession](resp, "sessions")
}

// Messages returns the turns of one session, oldest first.
func (s *AIChat) Messages(ctx context.Context, sessionID string) ([]models.AIMessage, error) {
	if err := requireID("session", sessionID); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, "/ai/sessions"+path(sessionID, "messages"), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.AIMessage](resp, "messages")
}

// DeleteSession removes a session and its messages.
func (s *AIChat) DeleteSession(ctx context.Context, sessionID string) error {
	if err := requireID("session", sessionID); err != nil {
		return err
	}
	resp, err := s.client.Delete(ctx, "/ai/sessions"+path(sessionID))
	if err != nil {
		return err
	}
	return decode(resp, nil)
}
