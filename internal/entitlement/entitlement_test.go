package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/otiai10/consultbase/internal/plan"
	"github.com/otiai10/consultbase/internal/team"
)

func TestCanAddClient(t *testing.T) {
	tests := []struct {
		name          string
		tier          plan.Tier
		count         int
		wantCanAdd    bool
		wantRemaining plan.Limit
	}{
		{name: "solo at limit", tier: plan.TierSolo, count: 5, wantCanAdd: false, wantRemaining: 0},
		{name: "solo under limit", tier: plan.TierSolo, count: 4, wantCanAdd: true, wantRemaining: 1},
		{name: "solo empty", tier: plan.TierSolo, count: 0, wantCanAdd: true, wantRemaining: 5},
		{name: "team with room", tier: plan.TierTeam, count: 20, wantCanAdd: true, wantRemaining: 5},
		{name: "team over limit after downgrade", tier: plan.TierSolo, count: 18, wantCanAdd: false, wantRemaining: 0},
		{name: "firm small", tier: plan.TierFirm, count: 3, wantCanAdd: true, wantRemaining: plan.Unlimited},
		{name: "firm huge", tier: plan.TierFirm, count: 100000, wantCanAdd: true, wantRemaining: plan.Unlimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := plan.DefinitionFor(tt.tier)
			assert.Equal(t, tt.wantCanAdd, CanAddClient(def, tt.count))
			assert.Equal(t, tt.wantRemaining, RemainingClients(def, tt.count))
		})
	}
}

func TestCanInviteMember(t *testing.T) {
	tests := []struct {
		name          string
		tier          plan.Tier
		members       int
		wantCanInvite bool
		wantRemaining plan.Limit
	}{
		{name: "team full roster", tier: plan.TierTeam, members: 3, wantCanInvite: false, wantRemaining: 0},
		{name: "team default roster", tier: plan.TierTeam, members: 2, wantCanInvite: true, wantRemaining: 1},
		{name: "solo with two members", tier: plan.TierSolo, members: 2, wantCanInvite: false, wantRemaining: 0},
		{name: "solo owner only", tier: plan.TierSolo, members: 1, wantCanInvite: false, wantRemaining: 0},
		{name: "firm", tier: plan.TierFirm, members: 50, wantCanInvite: true, wantRemaining: plan.Unlimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := plan.DefinitionFor(tt.tier)
			assert.Equal(t, tt.wantCanInvite, CanInviteMember(def, tt.members))
			assert.Equal(t, tt.wantRemaining, RemainingSeats(def, tt.members))
		})
	}
}

func TestLimitRule_HoldsForEveryTier(t *testing.T) {
	for _, def := range plan.Catalog() {
		for count := 0; count <= 30; count++ {
			want := def.ClientLimit.IsUnlimited() || count < int(def.ClientLimit)
			assert.Equal(t, want, CanAddClient(def, count), "%s count=%d", def.ID, count)

			rem := RemainingClients(def, count)
			if def.ClientLimit.IsUnlimited() {
				assert.True(t, rem.IsUnlimited())
			} else {
				assert.GreaterOrEqual(t, int(rem), 0)
			}
		}
	}
}

func TestHasFeature(t *testing.T) {
	solo := plan.DefinitionFor(plan.TierSolo)
	teamDef := plan.DefinitionFor(plan.TierTeam)
	firm := plan.DefinitionFor(plan.TierFirm)

	assert.False(t, HasFeature(solo, plan.FeatureCustomDomain))
	assert.True(t, HasFeature(teamDef, plan.FeatureCustomDomain))

	assert.True(t, HasFeature(solo, plan.FeatureBrandedPortal))
	assert.True(t, HasFeature(teamDef, plan.FeatureAdvancedAnalytics))
	assert.False(t, HasFeature(teamDef, plan.FeatureWhiteLabel))
	assert.False(t, HasFeature(teamDef, plan.FeatureAPIAccess))

	for _, f := range plan.Features() {
		assert.True(t, HasFeature(firm, f), f.String())
	}
}

func TestHasFeature_MonotonicAcrossTiers(t *testing.T) {
	tiers := plan.Tiers()
	for i := 1; i < len(tiers); i++ {
		lower := plan.DefinitionFor(tiers[i-1])
		higher := plan.DefinitionFor(tiers[i])
		for _, f := range plan.Features() {
			if HasFeature(lower, f) {
				assert.True(t, HasFeature(higher, f), "%s loses %s", higher.ID, f)
			}
		}
	}
}

func TestHasFeature_PanicsOnUnknownFeature(t *testing.T) {
	assert.Panics(t, func() {
		HasFeature(plan.DefinitionFor(plan.TierFirm), plan.Feature(99))
	})
}

func TestIsOwner(t *testing.T) {
	assert.True(t, IsOwner(team.RoleOwner))
	assert.False(t, IsOwner(team.RoleMember))
	assert.False(t, IsOwner(team.Role("")))
}

func TestEvaluate(t *testing.T) {
	t.Run("team usage with nudge", func(t *testing.T) {
		s := Evaluate(plan.DefinitionFor(plan.TierTeam), 23, 2, team.RoleOwner)

		assert.Equal(t, plan.TierTeam, s.Tier)
		assert.True(t, s.IsOwner)
		assert.Equal(t, Usage{Used: 23, Limit: 25, Remaining: 2, CanAdd: true, Nudge: true}, s.Clients)
		assert.Equal(t, Usage{Used: 2, Limit: 3, Remaining: 1, CanAdd: true, Nudge: false}, s.Seats)
		assert.True(t, s.Features["customDomain"])
		assert.False(t, s.Features["apiAccess"])
	})

	t.Run("no nudge at limit", func(t *testing.T) {
		s := Evaluate(plan.DefinitionFor(plan.TierSolo), 5, 1, team.RoleMember)

		assert.False(t, s.IsOwner)
		assert.False(t, s.Clients.CanAdd)
		assert.False(t, s.Clients.Nudge)
		assert.True(t, s.Seats.Nudge)
	})

	t.Run("firm never nudges", func(t *testing.T) {
		s := Evaluate(plan.DefinitionFor(plan.TierFirm), 1000, 40, team.RoleOwner)

		assert.True(t, s.Clients.Remaining.IsUnlimited())
		assert.False(t, s.Clients.Nudge)
		assert.False(t, s.Seats.Nudge)
		assert.Len(t, s.Features, len(plan.Features()))
	})
}
