// Package store holds the client collection counted against plan limits.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/otiai10/consultbase/internal/plan"
)

var (
	// ErrNotFound is returned when a client is not found
	ErrNotFound = errors.New("client not found")

	// ErrInvalidClient is returned when a new client lacks a name or email
	ErrInvalidClient = errors.New("client name and email are required")
)

// Status of a client engagement
type Status string

// Status constants
const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Client is one consulting client of the account
type Client struct {
	ID             string    `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Email          string    `json:"email" yaml:"email"`
	Company        string    `json:"company,omitempty" yaml:"company,omitempty"`
	Status         Status    `json:"status" yaml:"status"`
	EngagementName string    `json:"engagementName,omitempty" yaml:"engagementName,omitempty"`
	Notes          string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt" yaml:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt" yaml:"lastActivityAt"`
}

// CountsAgainstLimit reports whether the client occupies a plan slot.
// Archived clients free their slot; completed ones do not.
func (c Client) CountsAgainstLimit() bool {
	return c.Status != StatusArchived
}

// ClientRepository defines the interface for client storage operations
type ClientRepository interface {
	// List returns every client, archived included
	List(ctx context.Context) ([]Client, error)

	// Get returns one client or ErrNotFound
	Get(ctx context.Context, id string) (*Client, error)

	// CountActive returns the number of non-archived clients
	CountActive(ctx context.Context) (int, error)

	// Add stores a new client and returns it with ID and timestamps set
	Add(ctx context.Context, client Client) (Client, error)

	// AddWithin stores client only if the active count is below limit.
	// The count and the insert happen atomically; a refusal returns
	// (Client{}, false, nil).
	AddWithin(ctx context.Context, client Client, limit plan.Limit) (Client, bool, error)

	// Archive marks a client archived, releasing its plan slot
	Archive(ctx context.Context, id string) error
}
