// Package team defines team members (seats) and invite validation.
package team

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Role of a team member
type Role string

// Role constants
const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// ParseRole converts a wire name into a Role
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOwner, RoleMember:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Status of a seat
type Status string

// Status constants
const (
	StatusActive  Status = "active"
	StatusPending Status = "pending"
)

// Member is one seat on the team
type Member struct {
	ID        string     `json:"id" yaml:"id"`
	Email     string     `json:"email" yaml:"email"`
	Name      string     `json:"name" yaml:"name"`
	Role      Role       `json:"role" yaml:"role"`
	Status    Status     `json:"status" yaml:"status"`
	AvatarURL string     `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
	InvitedAt time.Time  `json:"invitedAt" yaml:"invitedAt"`
	JoinedAt  *time.Time `json:"joinedAt,omitempty" yaml:"joinedAt,omitempty"`
}

// Copy creates a deep copy of the Member to prevent mutation
func (m Member) Copy() Member {
	copied := m
	if m.JoinedAt != nil {
		joined := *m.JoinedAt
		copied.JoinedAt = &joined
	}
	return copied
}

// CopyRoster deep-copies a roster
func CopyRoster(roster []Member) []Member {
	out := make([]Member, len(roster))
	for i, m := range roster {
		out[i] = m.Copy()
	}
	return out
}

// FindByEmail returns the member whose email matches case-insensitively
func FindByEmail(roster []Member, email string) (Member, bool) {
	for _, m := range roster {
		if strings.EqualFold(m.Email, email) {
			return m, true
		}
	}
	return Member{}, false
}

// FindByID returns the member with the given id
func FindByID(roster []Member, id string) (Member, bool) {
	for _, m := range roster {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// DefaultRoster returns the roster every new session starts with
func DefaultRoster() []Member {
	ownerJoined := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	memberJoined := time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC)
	return []Member{
		{
			ID:        "member-1",
			Email:     "contact@vertexapps.dev",
			Name:      "Ryan Stacy",
			Role:      RoleOwner,
			Status:    StatusActive,
			InvitedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			JoinedAt:  &ownerJoined,
		},
		{
			ID:        "member-2",
			Email:     "sarah@vertexapps.dev",
			Name:      "Sarah Chen",
			Role:      RoleMember,
			Status:    StatusActive,
			InvitedAt: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
			JoinedAt:  &memberJoined,
		},
	}
}

var (
	// ErrMissingFields is returned when email or name is empty
	ErrMissingFields = errors.New("please fill in all required fields")

	// ErrInvalidEmail is returned when the email is not syntactically valid
	ErrInvalidEmail = errors.New("please enter a valid email address")

	// ErrDuplicateEmail is returned when the email is already on the team
	ErrDuplicateEmail = errors.New("this email is already on your team")

	// ErrSeatLimitReached is returned when the plan has no seat left
	ErrSeatLimitReached = errors.New("you have reached your team member limit")

	// ErrInvalidRole is returned for a role other than owner or member
	ErrInvalidRole = errors.New("invalid role")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// InviteRequest is the input of the invite form
type InviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Validate checks the request against the roster.
// Checks run in form order: required fields, email syntax, duplicate email.
// Seat availability is checked by the caller, which owns the plan.
func (r InviteRequest) Validate(roster []Member) error {
	if r.Email == "" || r.Name == "" {
		return ErrMissingFields
	}
	if !ValidEmail(r.Email) {
		return ErrInvalidEmail
	}
	if _, exists := FindByEmail(roster, r.Email); exists {
		return ErrDuplicateEmail
	}
	if r.Role != "" {
		if _, err := ParseRole(string(r.Role)); err != nil {
			return err
		}
	}
	return nil
}

// RoleOrDefault returns the requested role, defaulting to member
func (r InviteRequest) RoleOrDefault() Role {
	if r.Role == "" {
		return RoleMember
	}
	return r.Role
}
