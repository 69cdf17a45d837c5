package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otiai10/consultbase/internal/plan"
	"github.com/otiai10/consultbase/internal/store"
	"github.com/otiai10/consultbase/internal/team"
	"github.com/otiai10/consultbase/internal/user"
)

// mockClientRepo is a mock implementation of store.ClientRepository for testing
type mockClientRepo struct {
	mu       sync.Mutex
	active   int
	added    []store.Client
	countErr error
}

func (m *mockClientRepo) List(ctx context.Context) ([]store.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Client(nil), m.added...), nil
}

func (m *mockClientRepo) Get(ctx context.Context, id string) (*store.Client, error) {
	return nil, store.ErrNotFound
}

func (m *mockClientRepo) CountActive(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.active, nil
}

func (m *mockClientRepo) Add(ctx context.Context, c store.Client) (store.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = "new"
	m.added = append(m.added, c)
	m.active++
	return c, nil
}

func (m *mockClientRepo) AddWithin(ctx context.Context, c store.Client, limit plan.Limit) (store.Client, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return store.Client{}, false, m.countErr
	}
	if !limit.Admits(m.active) {
		return store.Client{}, false, nil
	}
	c.ID = "new"
	m.added = append(m.added, c)
	m.active++
	return c, true, nil
}

func (m *mockClientRepo) Archive(ctx context.Context, id string) error {
	return nil
}

var _ store.ClientRepository = (*mockClientRepo)(nil)

func profileOn(tier plan.Tier, role team.Role) user.User {
	u := user.Demo()
	u.Plan = tier
	u.Role = role
	return u
}

func TestNew_InitialState(t *testing.T) {
	s := New(profileOn(plan.TierSolo, team.RoleMember), &mockClientRepo{})

	assert.Equal(t, plan.TierSolo, s.Tier())
	assert.Equal(t, team.RoleMember, s.Role())
	assert.False(t, s.IsOwner())
	assert.Equal(t, team.DefaultRoster(), s.Roster())
	assert.Equal(t, "Solo", s.Plan().Name)
}

func TestNew_InvalidTierFallsBackToTeam(t *testing.T) {
	s := New(profileOn(plan.Tier(""), team.RoleOwner), &mockClientRepo{})
	assert.Equal(t, plan.TierTeam, s.Tier())
}

func TestStore_ClientGate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		tier          plan.Tier
		active        int
		wantCanAdd    bool
		wantRemaining plan.Limit
	}{
		{name: "solo at limit", tier: plan.TierSolo, active: 5, wantCanAdd: false, wantRemaining: 0},
		{name: "team with room", tier: plan.TierTeam, active: 20, wantCanAdd: true, wantRemaining: 5},
		{name: "firm", tier: plan.TierFirm, active: 500, wantCanAdd: true, wantRemaining: plan.Unlimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(profileOn(tt.tier, team.RoleOwner), &mockClientRepo{active: tt.active})

			canAdd, err := s.CanAddClient(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCanAdd, canAdd)

			remaining, err := s.RemainingClients(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRemaining, remaining)
		})
	}
}

func TestStore_ClientCountIsLive(t *testing.T) {
	ctx := context.Background()
	repo := &mockClientRepo{active: 4}
	s := New(profileOn(plan.TierSolo, team.RoleOwner), repo)

	canAdd, err := s.CanAddClient(ctx)
	require.NoError(t, err)
	assert.True(t, canAdd)

	_, ok, err := s.AddClient(ctx, store.Client{Name: "Fifth", Email: "fifth@example.com"})
	require.NoError(t, err)
	assert.True(t, ok)

	canAdd, err = s.CanAddClient(ctx)
	require.NoError(t, err)
	assert.False(t, canAdd)

	_, ok, err = s.AddClient(ctx, store.Client{Name: "Sixth", Email: "sixth@example.com"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, repo.added, 1)
}

func TestStore_ClientCountError(t *testing.T) {
	boom := errors.New("boom")
	s := New(profileOn(plan.TierSolo, team.RoleOwner), &mockClientRepo{countErr: boom})

	_, err := s.CanAddClient(context.Background())
	assert.True(t, errors.Is(err, boom))

	_, err = s.Snapshot(context.Background())
	assert.True(t, errors.Is(err, boom))

	_, ok, err := s.AddClient(context.Background(), store.Client{Name: "A", Email: "a@example.com"})
	assert.True(t, errors.Is(err, boom))
	assert.False(t, ok)
}

func TestStore_ConcurrentAddClientHonorsLimit(t *testing.T) {
	ctx := context.Background()
	repo := store.NewStaticRepository(nil)
	sessions := []*Store{
		New(profileOn(plan.TierSolo, team.RoleOwner), repo),
		New(profileOn(plan.TierSolo, team.RoleMember), repo),
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(s *Store) {
			defer wg.Done()
			_, ok, err := s.AddClient(ctx, store.Client{Name: "Client", Email: "client@example.com"})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(sessions[i%len(sessions)])
	}
	wg.Wait()

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 5, accepted)
}

func TestStore_SeatsExhaustedByPendingMembers(t *testing.T) {
	owner := team.DefaultRoster()[0]
	s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{}, WithRoster([]team.Member{owner}))

	s.AddMember("a@example.com", "A", team.RoleMember)
	s.AddMember("b@example.com", "B", team.RoleMember)

	assert.False(t, s.CanInviteMember())
	assert.Equal(t, plan.Limit(0), s.RemainingSeats())
	for _, m := range s.Roster()[1:] {
		assert.Equal(t, team.StatusPending, m.Status)
	}
}

func TestStore_DowngradeKeepsMembers(t *testing.T) {
	s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{})
	require.Len(t, s.Roster(), 2)
	assert.True(t, s.CanInviteMember())

	require.NoError(t, s.SwitchTier(plan.TierSolo))

	assert.False(t, s.CanInviteMember())
	assert.Equal(t, plan.Limit(0), s.RemainingSeats())
	assert.Len(t, s.Roster(), 2)
}

func TestStore_SwitchTierRejectsUnknown(t *testing.T) {
	s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{})

	err := s.SwitchTier(plan.Tier("enterprise"))
	assert.True(t, errors.Is(err, plan.ErrUnknownTier))
	assert.Equal(t, plan.TierTeam, s.Tier())
}

func TestStore_HasFeatureFollowsTier(t *testing.T) {
	s := New(profileOn(plan.TierSolo, team.RoleOwner), &mockClientRepo{})
	assert.False(t, s.HasFeature(plan.FeatureCustomDomain))

	require.NoError(t, s.SwitchTier(plan.TierTeam))
	assert.True(t, s.HasFeature(plan.FeatureCustomDomain))
	assert.False(t, s.HasFeature(plan.FeatureAPIAccess))

	require.NoError(t, s.SwitchTier(plan.TierFirm))
	assert.True(t, s.HasFeature(plan.FeatureAPIAccess))
}

func TestStore_AddMemberRoundTrip(t *testing.T) {
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New(profileOn(plan.TierFirm, team.RoleOwner), &mockClientRepo{}, WithClock(func() time.Time { return fixed }))
	before := len(s.Roster())

	m := s.AddMember("new@example.com", "New Person", team.RoleMember)

	roster := s.Roster()
	require.Len(t, roster, before+1)
	got := roster[len(roster)-1]
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "New Person", got.Name)
	assert.Equal(t, team.RoleMember, got.Role)
	assert.Equal(t, team.StatusPending, got.Status)
	assert.Equal(t, fixed, got.InvitedAt)
	assert.Nil(t, got.JoinedAt)

	other := s.AddMember("other@example.com", "Other", team.RoleMember)
	assert.NotEqual(t, m.ID, other.ID)
}

func TestStore_RemoveMemberIsIdempotent(t *testing.T) {
	s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{})

	assert.False(t, s.RemoveMember("does-not-exist"))
	assert.Len(t, s.Roster(), 2)

	assert.True(t, s.RemoveMember("member-2"))
	assert.False(t, s.RemoveMember("member-2"))

	roster := s.Roster()
	require.Len(t, roster, 1)
	assert.Equal(t, "member-1", roster[0].ID)
}

func TestStore_UpdateMemberRole(t *testing.T) {
	s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{})

	assert.True(t, s.UpdateMemberRole("member-2", team.RoleOwner))
	m, ok := team.FindByID(s.Roster(), "member-2")
	require.True(t, ok)
	assert.Equal(t, team.RoleOwner, m.Role)

	assert.False(t, s.UpdateMemberRole("missing", team.RoleOwner))
	assert.Len(t, s.Roster(), 2)
}

func TestStore_RosterIsACopy(t *testing.T) {
	s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{})

	roster := s.Roster()
	roster[0].Name = "mutated"
	*roster[0].JoinedAt = time.Time{}

	fresh := s.Roster()
	assert.Equal(t, "Ryan Stacy", fresh[0].Name)
	assert.False(t, fresh[0].JoinedAt.IsZero())
}

func TestStore_IsSelf(t *testing.T) {
	s := New(user.Demo(), &mockClientRepo{})

	assert.True(t, s.IsSelf("member-1"))
	assert.False(t, s.IsSelf("member-2"))
	assert.False(t, s.IsSelf("missing"))
}

func TestStore_Invite(t *testing.T) {
	ctx := context.Background()

	t.Run("adds pending member", func(t *testing.T) {
		s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{})

		m, err := s.Invite(ctx, team.InviteRequest{Email: "third@example.com", Name: "Third"})
		require.NoError(t, err)
		assert.Equal(t, team.RoleMember, m.Role)
		assert.Equal(t, team.StatusPending, m.Status)
		assert.Len(t, s.Roster(), 3)
	})

	t.Run("seat limit reached", func(t *testing.T) {
		s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{})
		_, err := s.Invite(ctx, team.InviteRequest{Email: "third@example.com", Name: "Third"})
		require.NoError(t, err)

		_, err = s.Invite(ctx, team.InviteRequest{Email: "fourth@example.com", Name: "Fourth"})
		assert.True(t, errors.Is(err, team.ErrSeatLimitReached))
		assert.Len(t, s.Roster(), 3)
	})

	t.Run("duplicate reported before seat limit", func(t *testing.T) {
		s := New(profileOn(plan.TierSolo, team.RoleOwner), &mockClientRepo{})

		_, err := s.Invite(ctx, team.InviteRequest{Email: "SARAH@vertexapps.dev", Name: "Sarah"})
		assert.True(t, errors.Is(err, team.ErrDuplicateEmail))
	})

	t.Run("invalid email", func(t *testing.T) {
		s := New(profileOn(plan.TierFirm, team.RoleOwner), &mockClientRepo{})

		_, err := s.Invite(ctx, team.InviteRequest{Email: "nope", Name: "Nope"})
		assert.True(t, errors.Is(err, team.ErrInvalidEmail))
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := New(profileOn(plan.TierFirm, team.RoleOwner), &mockClientRepo{})
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.Invite(cctx, team.InviteRequest{Email: "x@example.com", Name: "X"})
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Len(t, s.Roster(), 2)
	})
}

func TestStore_Snapshot(t *testing.T) {
	s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{active: 18})

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, plan.TierTeam, snap.Tier)
	assert.True(t, snap.IsOwner)
	assert.Equal(t, 18, snap.Clients.Used)
	assert.Equal(t, plan.Limit(25), snap.Clients.Limit)
	assert.Equal(t, plan.Limit(7), snap.Clients.Remaining)
	assert.Equal(t, 2, snap.Seats.Used)
	assert.Equal(t, plan.Limit(1), snap.Seats.Remaining)
}

func TestStore_InviteAndAddMemberBuildTheSameMember(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := New(profileOn(plan.TierFirm, team.RoleOwner), &mockClientRepo{}, WithClock(func() time.Time { return at }))

	added := s.AddMember("direct@example.com", "Direct", team.RoleMember)
	invited, err := s.Invite(context.Background(), team.InviteRequest{Email: "invited@example.com", Name: "Invited"})
	require.NoError(t, err)

	for _, m := range []team.Member{added, invited} {
		assert.Equal(t, team.StatusPending, m.Status)
		assert.Equal(t, team.RoleMember, m.Role)
		assert.Equal(t, at, m.InvitedAt)
		assert.NotEmpty(t, m.ID)
	}
	assert.NotEqual(t, added.ID, invited.ID)

	roster := s.Roster()
	assert.Equal(t, added, roster[len(roster)-2])
	assert.Equal(t, invited, roster[len(roster)-1])
}

func TestStore_SubscribeReceivesMutations(t *testing.T) {
	s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{})
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	require.NoError(t, s.SwitchTier(plan.TierFirm))

	select {
	case ev := <-events:
		assert.Equal(t, EventTierSwitched, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected tier switch event")
	}

	s.RemoveMember("missing")
	select {
	case ev := <-events:
		t.Fatalf("unexpected event for no-op remove: %v", ev.Kind)
	default:
	}
}

func TestStore_UnsubscribeClosesChannel(t *testing.T) {
	s := New(profileOn(plan.TierTeam, team.RoleOwner), &mockClientRepo{})
	events, unsubscribe := s.Subscribe()

	unsubscribe()
	unsubscribe()

	_, open := <-events
	assert.False(t, open)

	// mutations after unsubscribe must not panic
	s.AddMember("late@example.com", "Late", team.RoleMember)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New(profileOn(plan.TierFirm, team.RoleOwner), &mockClientRepo{active: 3})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddMember("c@example.com", "C", team.RoleMember)
			_ = s.CanInviteMember()
			_, _ = s.Snapshot(ctx)
			_ = s.SwitchTier(plan.TierFirm)
		}()
	}
	wg.Wait()

	assert.Len(t, s.Roster(), 22)
}
