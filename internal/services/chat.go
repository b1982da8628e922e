package services

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
)

// DefaultHistoryLimit is the page size for chat history.
const DefaultHistoryLimit = 50

// Chat covers group chat messages.
type Chat struct {
	client *api.Client
}

// History returns up to limit messages older than the message ID before.
// An empty before starts from the newest message.
func (s *Chat) History(ctx context.Context, groupID, before string, limit int) ([]models.Message, error) {
	if err := requireID("group", groupID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if before != "" {
		q.Set("before", before)
	}
	resp, err := s.client.Get(ctx, "/groups"+path(groupID, "messages"), q)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Message](resp, "messages")
}

// Send posts a message to a group.
func (s *Chat) Send(ctx context.Context, groupID, text string) (*models.Message, error) {
	if err := requireID("group", groupID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, output.ErrUsage("message text is required")
	}
	resp, err := s.client.Post(ctx, "/groups"+path(groupID, "messages"), map[string]string{"content": text})
	if err != nil {
		return nil, err
	}
	var m models.Message
	if err := decode(resp, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
