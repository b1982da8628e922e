package services

import (
	"context"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
)

// Users covers the caller's profile and user lookups.
type Users struct {
	client *api.Client
}

// Me returns the authenticated user.
func (s *Users) Me(ctx context.Context) (*models.User, error) {
	resp, err := s.client.Get(ctx, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := decode(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile changes the caller's editable profile fields.
func (s *Users) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.User, error) {
	if in == (models.ProfileUpdate{}) {
		return nil, output.ErrUsage("nothing to update")
	}
	resp, err := s.client.Put(ctx, "/users/profile", in)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := decode(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword replaces the caller's password.
func (s *Users) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" || next == "" {
		return output.ErrUsage("current and new password are required")
	}
	resp, err := s.client.Put(ctx, "/users/change-password", map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	})
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// Get returns a user by ID.
func (s *Users) Get(ctx context.Context, id string) (*models.User, error) {
	if err := requireID("user", id); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, "/users"+path(id), nil)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := decode(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
