package plan

import (
	"fmt"
)

var tiers = []Tier{TierSolo, TierTeam, TierFirm}

var catalog = map[Tier]Definition{
	TierSolo: {
		ID:          TierSolo,
		Name:        "Solo",
		Price:       29,
		ClientLimit: 5,
		UserLimit:   1,
		Features: FeatureSet{
			BrandedPortal: true,
		},
	},
	TierTeam: {
		ID:          TierTeam,
		Name:        "Team",
		Price:       79,
		ClientLimit: 25,
		UserLimit:   3,
		Features: FeatureSet{
			BrandedPortal:     true,
			CustomDomain:      true,
			AdvancedAnalytics: true,
		},
	},
	TierFirm: {
		ID:          TierFirm,
		Name:        "Firm",
		Price:       149,
		ClientLimit: Unlimited,
		UserLimit:   Unlimited,
		Features: FeatureSet{
			BrandedPortal:     true,
			CustomDomain:      true,
			AdvancedAnalytics: true,
			WhiteLabel:        true,
			APIAccess:         true,
		},
	},
}

var highlights = map[Tier][]string{
	TierSolo: {
		"Up to 5 clients",
		"1 team member",
		"Branded portal",
		"Basic invoicing",
		"Email support",
	},
	TierTeam: {
		"Up to 25 clients",
		"Up to 3 team members",
		"Custom domain support",
		"Advanced analytics",
		"Priority support",
	},
	TierFirm: {
		"Unlimited clients",
		"Unlimited team members",
		"White-label branding",
		"API access",
		"Dedicated success manager",
	},
}

// Tiers returns all tiers in capability order
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// DefinitionFor returns the definition of tier.
// It panics for a tier outside the catalog; use ParseTier on untrusted input.
func DefinitionFor(tier Tier) Definition {
	def, ok := catalog[tier]
	if !ok {
		panic(fmt.Sprintf("plan: no definition for tier %q", tier))
	}
	return def
}

// Lookup is the non-panicking form of DefinitionFor
func Lookup(tier Tier) (Definition, bool) {
	def, ok := catalog[tier]
	return def, ok
}

// Catalog returns every definition in capability order
func Catalog() []Definition {
	defs := make([]Definition, 0, len(tiers))
	for _, t := range tiers {
		defs = append(defs, catalog[t])
	}
	return defs
}

// NextTier returns the tier recommended when t is not enough.
// The top tier recommends itself.
func NextTier(t Tier) Tier {
	switch t {
	case TierSolo:
		return TierTeam
	case TierTeam:
		return TierFirm
	default:
		return TierFirm
	}
}

// Highlights returns the marketing bullets for tier
func Highlights(t Tier) []string {
	h := highlights[t]
	out := make([]string, len(h))
	copy(out, h)
	return out
}

// CheckMonotonic verifies that no tier revokes a feature granted by a lower tier
func CheckMonotonic(defs []Definition) error {
	for i := 1; i < len(defs); i++ {
		prev, cur := defs[i-1], defs[i]
		for _, f := range Features() {
			had, err := prev.Features.Lookup(f)
			if err != nil {
				return err
			}
			has, err := cur.Features.Lookup(f)
			if err != nil {
				return err
			}
			if had && !has {
				return fmt.Errorf("tier %s revokes %s granted by %s", cur.ID, f, prev.ID)
			}
		}
	}
	return nil
}
