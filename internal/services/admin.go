package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/models"
)

// Admin covers the administrator dashboard.
type Admin struct {
	client *api.Client
}

// Stats returns platform totals.
func (s *Admin) Stats(ctx context.Context) (*models.AdminStats, error) {
	resp, err := s.client.Get(ctx, "/admin/stats", nil)
	if err != nil {
		return nil, err
	}
	var st models.AdminStats
	if err := decode(resp, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Users returns one page of accounts. Pages start at 1.
func (s *Admin) Users(ctx context.Context, page int) (*models.Page[models.User], error) {
	if page < 1 {
		page = 1
	}
	resp, err := s.client.Get(ctx, "/admin/users", url.Values{"page": {strconv.Itoa(page)}})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	// The backend reports {users, page, pages, total}; a bare array is a single page.
	payload := unwrap(resp.Body)
	if len(payload) > 0 && payload[0] == '[' {
		var users []models.User
		if err := json.Unmarshal(payload, &users); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &models.Page[models.User]{Items: users, Page: 1, Pages: 1, Total: len(users)}, nil
	}
	var raw struct {
		models.Page[models.User]
		Users []models.User `json:"users"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	p := raw.Page
	if p.Items == nil {
		p.Items = raw.Users
	}
	if p.Page == 0 {
		p.Page = page
	}
	return &p, nil
}

// SetUserStatus activates or deactivates an account.
func (s *Admin) SetUserStatus(ctx context.Context, id string, active bool) (*models.User, error) {
	if err := requireID("user", id); err != nil {
		return nil, err
	}
	resp, err := s.client.Patch(ctx, "/admin/users"+path(id, "status"), map[string]bool{"isActive": active})
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := decode(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
