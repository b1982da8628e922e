package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/models"
	"github.com/studysync/studysync-cli/internal/output"
)

// GroupFilter selects which groups List returns.
type GroupFilter string

const (
	GroupsAll    GroupFilter = ""
	GroupsJoined GroupFilter = "joined"
	GroupsOwned  GroupFilter = "owned"
)

// Groups covers study group management and membership.
type Groups struct {
	client *api.Client
}

// List returns groups visible to the caller.
func (s *Groups) List(ctx context.Context, filter GroupFilter) ([]models.Group, error) {
	var q url.Values
	if filter != GroupsAll {
		q = url.Values{"filter": {string(filter)}}
	}
	resp, err := s.client.Get(ctx, "/groups", q)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Group](resp, "groups")
}

// Search finds public groups by name or subject.
func (s *Groups) Search(ctx context.Context, query string) ([]models.Group, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, output.ErrUsage("search query is required")
	}
	resp, err := s.client.Get(ctx, "/groups/search", url.Values{"q": {query}})
	if err != nil {
		return nil, err
	}
	return decodeList[models.Group](resp, "groups")
}

// Get returns one group.
func (s *Groups) Get(ctx context.Context, id string) (*models.Group, error) {
	if err := requireID("group", id); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, "/groups"+path(id), nil)
	if err != nil {
		return nil, err
	}
	var g models.Group
	if err := decode(resp, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Create makes a new group owned by the caller.
func (s *Groups) Create(ctx context.Context, in models.GroupInput) (*models.Group, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, output.ErrUsage("group name is required")
	}
	resp, err := s.client.Post(ctx, "/groups", in)
	if err != nil {
		return nil, err
	}
	var g models.Group
	if err := decode(resp, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Update changes a group's details.
func (s *Groups) Update(ctx context.Context, id string, in models.GroupInput) (*models.Group, error) {
	if err := requireID("group", id); err != nil {
		return nil, err
	}
	resp, err := s.client.Put(ctx, "/groups"+path(id), in)
	if err != nil {
		return nil, err
	}
	var g models.Group
	if err := decode(resp, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Delete removes a group.
func (s *Groups) Delete(ctx context.Context, id string) error {
	if err := requireID("group", id); err != nil {
		return err
	}
	resp, err := s.client.Delete(ctx, "/groups"+path(id))
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// Join adds the caller to a group.
func (s *Groups) Join(ctx context.Context, id string) error {
	return s.membership(ctx, id, "join")
}

// Leave removes the caller from a group.
func (s *Groups) Leave(ctx context.Context, id string) error {
	return s.membership(ctx, id, "leave")
}

func (s *Groups) membership(ctx context.Context, id, action string) error {
	if err := requireID("group", id); err != nil {
		return err
	}
	resp, err := s.client.Post(ctx, "/groups"+path(id, action), nil)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// Members lists a group's members.
func (s *Groups) Members(ctx context.Context, id string) ([]models.Member, error) {
	if err := requireID("group", id); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, "/groups"+path(id, "members"), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Member](resp, "members")
}
