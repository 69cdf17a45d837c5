// Package billing builds upgrade prompts and billing dates.
//
// Payments are not processed here: accepting a prompt switches the session
// tier directly.
package billing

import (
	"fmt"
	"time"

	"github.com/otiai10/consultbase/internal/plan"
)

// Gate labels used when a limit, not a feature flag, blocks an action
const (
	GateMoreClients = "More Clients"
	GateMoreMembers = "More Team Members"
	GateTeam        = "Team Collaboration"
)

// PlanCard is one plan column of the upgrade prompt
type PlanCard struct {
	plan.Definition
	Highlights []string `json:"highlights"`
}

func cardFor(t plan.Tier) PlanCard {
	return PlanCard{
		Definition: plan.DefinitionFor(t),
		Highlights: plan.Highlights(t),
	}
}

// UpgradePrompt is the payload the UI renders when an action is refused
type UpgradePrompt struct {
	Title            string    `json:"title"`
	Message          string    `json:"message,omitempty"`
	Feature          string    `json:"feature,omitempty"`
	Current          PlanCard  `json:"current"`
	Recommended      PlanCard  `json:"recommended"`
	Alternative      *PlanCard `json:"alternative,omitempty"`
	UpgradeAvailable bool      `json:"upgradeAvailable"`
	Action           string    `json:"action"`
}

// NewUpgradePrompt builds the prompt for the session on current.
//
// Parameters:
//   - current: Tier the session is on
//   - feature: Label of what the user tried to reach; empty for a plain upgrade
//   - recommended: Tier to offer; empty selects plan.NextTier(current)
//
// Returns:
//   - The prompt
//   - Error if current or a non-empty recommended tier is unknown
func NewUpgradePrompt(current plan.Tier, feature string, recommended plan.Tier) (UpgradePrompt, error) {
	if !current.Valid() {
		return UpgradePrompt{}, fmt.Errorf("%w: %q", plan.ErrUnknownTier, current)
	}
	if recommended == "" {
		recommended = plan.NextTier(current)
	}
	if !recommended.Valid() {
		return UpgradePrompt{}, fmt.Errorf("%w: %q", plan.ErrUnknownTier, recommended)
	}

	rec := cardFor(recommended)
	p := UpgradePrompt{
		Title:            "Upgrade Your Plan",
		Feature:          feature,
		Current:          cardFor(current),
		Recommended:      rec,
		UpgradeAvailable: recommended.Rank() > current.Rank(),
		Action:           "Upgrade to " + rec.Name,
	}
	if feature != "" {
		p.Title = "Unlock " + feature
		p.Message = feature + " is available on higher tier plans. Upgrade to unlock this feature and more."
	}
	if current == plan.TierSolo && recommended == plan.TierTeam {
		alt := cardFor(plan.TierFirm)
		p.Alternative = &alt
	}
	return p, nil
}

// ForFeature builds the prompt shown when f is locked on current.
// It recommends the lowest tier that unlocks f.
func ForFeature(current plan.Tier, f plan.Feature) (UpgradePrompt, error) {
	return NewUpgradePrompt(current, f.Label(), MinimumTierFor(f))
}

// MinimumTierFor returns the lowest tier unlocking f. Unknown features
// map to the top tier.
func MinimumTierFor(f plan.Feature) plan.Tier {
	for _, def := range plan.Catalog() {
		if enabled, err := def.Features.Lookup(f); err == nil && enabled {
			return def.ID
		}
	}
	tiers := plan.Tiers()
	return tiers[len(tiers)-1]
}

// RenewalDate returns the next billing date: the 15th of the month after now
func RenewalDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 15, 0, 0, 0, 0, now.Location())
}
