// Package session owns the plan state of one signed-in session:
// the current tier, the team roster and the viewer's role.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/otiai10/consultbase/internal/entitlement"
	"github.com/otiai10/consultbase/internal/logging"
	"github.com/otiai10/consultbase/internal/plan"
	"github.com/otiai10/consultbase/internal/store"
	"github.com/otiai10/consultbase/internal/team"
	"github.com/otiai10/consultbase/internal/user"
)

// EventKind names the mutation that produced an Event
type EventKind string

// EventKind constants
const (
	EventTierSwitched  EventKind = "tier_switched"
	EventMemberAdded   EventKind = "member_added"
	EventMemberRemoved EventKind = "member_removed"
	EventRoleUpdated   EventKind = "role_updated"
	EventClientAdded   EventKind = "client_added"
)

// Event is delivered to subscribers after every mutation
type Event struct {
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`
}

// Store holds (tier, roster, role) for one session.
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tier    plan.Tier
	roster  []team.Member
	role    team.Role
	profile user.User
	clients store.ClientRepository

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int

	now   func() time.Time
	newID func() string
}

// Option customizes a Store
type Option func(*Store)

// WithRoster replaces the default roster
func WithRoster(roster []team.Member) Option {
	return func(s *Store) {
		s.roster = team.CopyRoster(roster)
	}
}

// WithClock sets the time source used for invitedAt and events
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store for the profile u.
// The initial tier and role come from the profile; the roster starts as
// team.DefaultRoster().
func New(u user.User, clients store.ClientRepository, opts ...Option) *Store {
	s := &Store{
		tier:    u.Plan,
		roster:  team.DefaultRoster(),
		role:    u.Role,
		profile: u,
		clients: clients,
		subs:    make(map[int]chan Event),
		now:     time.Now,
		newID:   func() string { return "member-" + uuid.NewString() },
	}
	if !s.tier.Valid() {
		s.tier = plan.TierTeam
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tier returns the current tier
func (s *Store) Tier() plan.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tier
}

// Plan returns the definition of the current tier
func (s *Store) Plan() plan.Definition {
	return plan.DefinitionFor(s.Tier())
}

// Role returns the viewer's role
func (s *Store) Role() team.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Profile returns the profile the session was opened with
func (s *Store) Profile() user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Roster returns a copy of the team roster
func (s *Store) Roster() []team.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return team.CopyRoster(s.roster)
}

// IsSelf reports whether the member with id is the signed-in user
func (s *Store) IsSelf(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := team.FindByID(s.roster, id)
	return ok && strings.EqualFold(m.Email, s.profile.Email)
}

// SwitchTier replaces the tier. Existing clients and members are kept even
// when they exceed the new limits.
func (s *Store) SwitchTier(tier plan.Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: %q", plan.ErrUnknownTier, tier)
	}

	s.mu.Lock()
	prev := s.tier
	s.tier = tier
	members := len(s.roster)
	s.mu.Unlock()

	logger := logging.For("session")
	logger.Info().
		Str("from", string(prev)).
		Str("to", string(tier)).
		Int("members", members).
		Msg("plan tier switched")

	s.notify(EventTierSwitched)
	return nil
}

// AddMember appends a pending member. It does not validate; use Invite
// for input coming from a user.
func (s *Store) AddMember(email, name string, role team.Role) team.Member {
	s.mu.Lock()
	m := s.appendMember(email, name, role)
	s.mu.Unlock()

	s.notify(EventMemberAdded)
	return m.Copy()
}

// appendMember adds a pending member; s.mu must be held
func (s *Store) appendMember(email, name string, role team.Role) team.Member {
	m := team.Member{
		ID:        s.newID(),
		Email:     email,
		Name:      name,
		Role:      role,
		Status:    team.StatusPending,
		InvitedAt: s.now(),
	}
	s.roster = append(s.roster, m)
	return m
}

// Invite validates req and adds the member.
// Errors are checked in order: required fields, email syntax, duplicate
// email, seat availability.
func (s *Store) Invite(ctx context.Context, req team.InviteRequest) (team.Member, error) {
	if err := ctx.Err(); err != nil {
		return team.Member{}, err
	}

	s.mu.Lock()
	if err := req.Validate(s.roster); err != nil {
		s.mu.Unlock()
		return team.Member{}, err
	}
	if !entitlement.CanInviteMember(plan.DefinitionFor(s.tier), len(s.roster)) {
		s.mu.Unlock()
		return team.Member{}, team.ErrSeatLimitReached
	}
	m := s.appendMember(req.Email, req.Name, req.RoleOrDefault())
	s.mu.Unlock()

	s.notify(EventMemberAdded)
	return m.Copy(), nil
}

// RemoveMember removes the member with id; unknown ids are ignored.
// It reports whether a member was removed.
func (s *Store) RemoveMember(id string) bool {
	s.mu.Lock()
	kept := s.roster[:0:0]
	for _, m := range s.roster {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	removed := len(kept) != len(s.roster)
	s.roster = kept
	s.mu.Unlock()

	if removed {
		s.notify(EventMemberRemoved)
	}
	return removed
}

// UpdateMemberRole sets the role of the member with id; unknown ids are
// ignored. It reports whether a member was updated.
func (s *Store) UpdateMemberRole(id string, role team.Role) bool {
	s.mu.Lock()
	updated := false
	for i := range s.roster {
		if s.roster[i].ID == id {
			s.roster[i].Role = role
			updated = true
		}
	}
	s.mu.Unlock()

	if updated {
		s.notify(EventRoleUpdated)
	}
	return updated
}

// ClientCount returns the live number of non-archived clients
func (s *Store) ClientCount(ctx context.Context) (int, error) {
	count, err := s.clients.CountActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}

// AddClient stores c when the plan has a free client slot.
// It returns (client, false, nil) when the plan refuses the add.
// The repository checks the limit and inserts in one step, so concurrent
// adds across sessions sharing a repository cannot overshoot it.
func (s *Store) AddClient(ctx context.Context, c store.Client) (store.Client, bool, error) {
	added, ok, err := s.clients.AddWithin(ctx, c, s.Plan().ClientLimit)
	if err != nil {
		return store.Client{}, false, fmt.Errorf("failed to add client: %w", err)
	}
	if !ok {
		return store.Client{}, false, nil
	}
	s.notify(EventClientAdded)
	return added, true, nil
}

// Clients returns the client collection
func (s *Store) Clients(ctx context.Context) ([]store.Client, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// CanAddClient reports whether the plan allows one more client
func (s *Store) CanAddClient(ctx context.Context) (bool, error) {
	count, err := s.ClientCount(ctx)
	if err != nil {
		return false, err
	}
	return entitlement.CanAddClient(s.Plan(), count), nil
}

// RemainingClients returns the free client slots, or plan.Unlimited
func (s *Store) RemainingClients(ctx context.Context) (plan.Limit, error) {
	count, err := s.ClientCount(ctx)
	if err != nil {
		return 0, err
	}
	return entitlement.RemainingClients(s.Plan(), count), nil
}

// CanInviteMember reports whether the plan allows one more seat
func (s *Store) CanInviteMember() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entitlement.CanInviteMember(plan.DefinitionFor(s.tier), len(s.roster))
}

// RemainingSeats returns the free seats, or plan.Unlimited
func (s *Store) RemainingSeats() plan.Limit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entitlement.RemainingSeats(plan.DefinitionFor(s.tier), len(s.roster))
}

// HasFeature reports whether the current tier unlocks f
func (s *Store) HasFeature(f plan.Feature) bool {
	return entitlement.HasFeature(s.Plan(), f)
}

// IsOwner reports whether the viewer is an owner
func (s *Store) IsOwner() bool {
	return entitlement.IsOwner(s.Role())
}

// Snapshot evaluates every entitlement at once
func (s *Store) Snapshot(ctx context.Context) (entitlement.Snapshot, error) {
	count, err := s.ClientCount(ctx)
	if err != nil {
		return entitlement.Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return entitlement.Evaluate(plan.DefinitionFor(s.tier), count, len(s.roster), s.role), nil
}

// Subscribe registers for change events. The returned function
// unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Event, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
}

// closeSubscribers ends every subscription
func (s *Store) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// notify delivers an event without blocking. A full buffer already holds
// an undelivered event, so dropping the new one loses nothing.
func (s *Store) notify(kind EventKind) {
	ev := Event{Kind: kind, At: s.now()}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
