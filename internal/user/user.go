package user

import (
	"time"

	"github.com/otiai10/consultbase/internal/plan"
	"github.com/otiai10/consultbase/internal/team"
)

// User is the signed-in account profile cached on disk between runs
type User struct {
	ID           string    `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	Email        string    `yaml:"email" json:"email"`
	BusinessName string    `yaml:"businessName" json:"businessName"`
	Tagline      string    `yaml:"tagline,omitempty" json:"tagline,omitempty"`
	LogoURL      string    `yaml:"logoUrl,omitempty" json:"logoUrl,omitempty"`
	BrandColor   string    `yaml:"brandColor" json:"brandColor"`
	CreatedAt    time.Time `yaml:"createdAt" json:"createdAt"`
	Plan         plan.Tier `yaml:"plan" json:"plan"`
	Role         team.Role `yaml:"role" json:"role"`
	TeamID       string    `yaml:"teamId" json:"teamId"`
}

// Demo returns the demo account every fresh install signs in as
func Demo() User {
	return User{
		ID:           "test-user-1",
		Name:         "Ryan Stacy",
		Email:        "contact@vertexapps.dev",
		BusinessName: "Vertex Business Solutions",
		Tagline:      "Strategic Consulting for Modern Businesses",
		BrandColor:   "#1B4D3E",
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Plan:         plan.TierTeam,
		Role:         team.RoleOwner,
		TeamID:       "team-1",
	}
}

// WithDefaults fills every empty field from the demo account.
// Profiles written by older builds may lack plan, role or team id.
func (u User) WithDefaults() User {
	d := Demo()
	if u.ID == "" {
		u.ID = d.ID
	}
	if u.Name == "" {
		u.Name = d.Name
	}
	if u.Email == "" {
		u.Email = d.Email
	}
	if u.BusinessName == "" {
		u.BusinessName = d.BusinessName
	}
	if u.Tagline == "" {
		u.Tagline = d.Tagline
	}
	if u.BrandColor == "" {
		u.BrandColor = d.BrandColor
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = d.CreatedAt
	}
	if !u.Plan.Valid() {
		u.Plan = d.Plan
	}
	if u.Role != team.RoleOwner && u.Role != team.RoleMember {
		u.Role = d.Role
	}
	if u.TeamID == "" {
		u.TeamID = d.TeamID
	}
	return u
}
