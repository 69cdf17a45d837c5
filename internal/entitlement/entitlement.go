// Package entitlement answers "may this session do X" against a plan definition.
//
// Every function is pure: the caller passes the definition and the current
// resource counts, nothing is cached.
package entitlement

import (
	"fmt"

	"github.com/otiai10/consultbase/internal/plan"
	"github.com/otiai10/consultbase/internal/team"
)

// nudgeThreshold is the number of remaining client slots at or below which
// the UI shows a "slots remaining" hint.
const nudgeThreshold = 2

// CanAddClient reports whether one more client fits within the plan.
// Over-limit counts (after a downgrade) are refused, never an error.
func CanAddClient(def plan.Definition, clientCount int) bool {
	return withinLimit(def.ClientLimit, clientCount)
}

// RemainingClients returns the free client slots, or plan.Unlimited
func RemainingClients(def plan.Definition, clientCount int) plan.Limit {
	return remaining(def.ClientLimit, clientCount)
}

// CanInviteMember reports whether one more seat fits within the plan
func CanInviteMember(def plan.Definition, memberCount int) bool {
	return withinLimit(def.UserLimit, memberCount)
}

// RemainingSeats returns the free seats, or plan.Unlimited
func RemainingSeats(def plan.Definition, memberCount int) plan.Limit {
	return remaining(def.UserLimit, memberCount)
}

// HasFeature reports whether the plan unlocks f.
// f must be one of plan.Features(); any other value panics.
func HasFeature(def plan.Definition, f plan.Feature) bool {
	enabled, err := def.Features.Lookup(f)
	if err != nil {
		panic(fmt.Sprintf("entitlement: %v", err))
	}
	return enabled
}

// IsOwner reports whether role may change the plan and manage the team
func IsOwner(role team.Role) bool {
	return role == team.RoleOwner
}

func withinLimit(limit plan.Limit, count int) bool {
	return limit.Admits(count)
}

func remaining(limit plan.Limit, count int) plan.Limit {
	if limit.IsUnlimited() {
		return plan.Unlimited
	}
	left := int(limit) - count
	if left < 0 {
		return 0
	}
	return plan.Limit(left)
}

// Usage describes one limited resource ("18 of 25 clients")
type Usage struct {
	Used      int        `json:"used"`
	Limit     plan.Limit `json:"limit"`
	Remaining plan.Limit `json:"remaining"`
	CanAdd    bool       `json:"canAdd"`
	// Nudge is set when the UI should warn about the limit
	Nudge bool `json:"nudge"`
}

// Snapshot is every entitlement of a session at one point in time
type Snapshot struct {
	Tier     plan.Tier       `json:"tier"`
	Plan     plan.Definition `json:"plan"`
	Role     team.Role       `json:"role"`
	IsOwner  bool            `json:"isOwner"`
	Clients  Usage           `json:"clients"`
	Seats    Usage           `json:"seats"`
	Features map[string]bool `json:"features"`
}

// Evaluate computes a Snapshot.
// The client nudge fires when one or two slots remain; the seat nudge fires
// when no seat remains.
func Evaluate(def plan.Definition, clientCount, memberCount int, role team.Role) Snapshot {
	clients := Usage{
		Used:      clientCount,
		Limit:     def.ClientLimit,
		Remaining: RemainingClients(def, clientCount),
		CanAdd:    CanAddClient(def, clientCount),
	}
	clients.Nudge = !clients.Remaining.IsUnlimited() &&
		clients.Remaining > 0 && clients.Remaining <= nudgeThreshold

	seats := Usage{
		Used:      memberCount,
		Limit:     def.UserLimit,
		Remaining: RemainingSeats(def, memberCount),
		CanAdd:    CanInviteMember(def, memberCount),
	}
	seats.Nudge = !seats.Remaining.IsUnlimited() && seats.Remaining == 0

	return Snapshot{
		Tier:     def.ID,
		Plan:     def,
		Role:     role,
		IsOwner:  IsOwner(role),
		Clients:  clients,
		Seats:    seats,
		Features: def.Features.Map(),
	}
}
