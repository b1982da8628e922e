// Package models provides type definitions for StudySync API entities.
// These types are used by the services and the CLI to decode responses.
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ID is a backend identifier. The backend emits Mongo-style string IDs
// in most places and numeric IDs in a few legacy payloads.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// User is a StudySync account.
type User struct {
	ID        ID        `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	IsActive  *bool     `json:"isActive,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Name   string `json:"name,omitempty"`
	Bio    string `json:"bio,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Group is a study group.
type Group struct {
	ID          ID        `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	IsPrivate   bool      `json:"isPrivate"`
	MemberCount int       `json:"memberCount,omitempty"`
	Owner       *User     `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// GroupInput is the body for creating or updating a group.
type GroupInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Subject     string `json:"subject,omitempty"`
	IsPrivate   *bool  `json:"isPrivate,omitempty"`
}

// Member is a group membership.
type Member struct {
	User     User      `json:"user"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt,omitzero"`
}

// File is a document shared in a group.
type File struct {
	ID         ID        `json:"_id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType,omitempty"`
	URL        string    `json:"url,omitempty"`
	GroupID    ID        `json:"group,omitempty"`
	UploadedBy *User     `json:"uploadedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
}

// Message is a group chat message.
type Message struct {
	ID        ID        `json:"_id"`
	GroupID   ID        `json:"group,omitempty"`
	Sender    *User     `json:"sender,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// AISession is a conversation with the study assistant.
type AISession struct {
	ID        ID        `json:"_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// AIMessage is one turn of an AI session. Content is Markdown.
type AIMessage struct {
	ID        ID        `json:"_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Plan is a purchasable subscription plan.
type Plan struct {
	ID           ID       `json:"_id"`
	Name         string   `json:"name"`
	Price        int64    `json:"price"`
	Currency     string   `json:"currency,omitempty"`
	DurationDays int      `json:"durationDays,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// Checkout is the result of starting a subscription purchase.
type Checkout struct {
	OrderCode   string `json:"orderCode"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Transaction statuses. Every status but pending is terminal.
const (
	TransactionPending   = "PENDING"
	TransactionPaid      = "PAID"
	TransactionCancelled = "CANCELLED"
	TransactionExpired   = "EXPIRED"
	TransactionFailed    = "FAILED"
)

// Transaction is the payment record behind a checkout.
type Transaction struct {
	OrderCode string     `json:"orderCode"`
	Status    string     `json:"status"`
	Amount    int64      `json:"amount"`
	Plan      *Plan      `json:"plan,omitempty"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}

// Terminal reports whether the transaction will not change status again.
func (t *Transaction) Terminal() bool {
	switch t.Status {
	case TransactionPaid, TransactionCancelled, TransactionExpired, TransactionFailed:
		return true
	}
	return false
}

// Subscription is the caller's active plan.
type Subscription struct {
	Plan      *Plan     `json:"plan,omitempty"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"startDate,omitzero"`
	EndDate   time.Time `json:"endDate,omitzero"`
}

// Review is a moderation item for uploaded content.
type Review struct {
	ID        ID        `json:"_id"`
	Status    string    `json:"status"`
	File      *File     `json:"file,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// AdminStats are platform totals shown on the admin dashboard.
type AdminStats struct {
	Users         int   `json:"users"`
	Groups        int   `json:"groups"`
	Files         int   `json:"files"`
	Subscriptions int   `json:"subscriptions"`
	Revenue       int64 `json:"revenue"`
}

// Page is one page of a paginated list.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
}

// HasNext reports whether another page follows.
func (p *Page[T]) HasNext() bool {
	return p.Page < p.Pages
}

// NextPage returns the next page number as a query value.
func (p *Page[T]) NextPage() string {
	return strconv.Itoa(p.Page + 1)
}
