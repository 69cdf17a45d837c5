package store

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/otiai10/consultbase/internal/plan"
)

//go:embed fixtures/clients.yaml
var defaultFixtures []byte

type fixtureFile struct {
	Clients []Client `yaml:"clients"`
}

// StaticRepository is an in-memory client collection seeded from YAML fixtures.
// Changes live for the process lifetime only.
type StaticRepository struct {
	mu      sync.RWMutex
	clients []Client
	now     func() time.Time
}

// Ensure StaticRepository implements ClientRepository interface
var _ ClientRepository = (*StaticRepository)(nil)

// NewStaticRepository creates a repository holding a copy of clients
func NewStaticRepository(clients []Client) *StaticRepository {
	seeded := make([]Client, len(clients))
	copy(seeded, clients)
	for i := range seeded {
		if seeded[i].LastActivityAt.IsZero() {
			seeded[i].LastActivityAt = seeded[i].CreatedAt
		}
	}
	return &StaticRepository{clients: seeded, now: time.Now}
}

// LoadFixtures parses a fixture document
//
// Parameters:
//   - data: YAML document with a top-level "clients" list
//
// Returns:
//   - Parsed clients
//   - Error if the YAML is malformed
func LoadFixtures(data []byte) ([]Client, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse client fixtures: %w", err)
	}
	return f.Clients, nil
}

// NewRepositoryFromFile creates a StaticRepository from a fixture file.
// An empty path selects the built-in fixtures.
func NewRepositoryFromFile(path string) (*StaticRepository, error) {
	data := defaultFixtures
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read client fixtures: %w", err)
		}
	}

	clients, err := LoadFixtures(data)
	if err != nil {
		return nil, err
	}
	return NewStaticRepository(clients), nil
}

// List returns a copy of all clients
func (r *StaticRepository) List(ctx context.Context) ([]Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Client, len(r.clients))
	copy(result, r.clients)
	return result, nil
}

// Get returns the client with id
func (r *StaticRepository) Get(ctx context.Context, id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.clients {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// CountActive returns the number of clients that occupy a plan slot
func (r *StaticRepository) CountActive(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.countActiveLocked(), nil
}

func (r *StaticRepository) countActiveLocked() int {
	count := 0
	for _, c := range r.clients {
		if c.CountsAgainstLimit() {
			count++
		}
	}
	return count
}

// Add appends a client without a limit check; use AddWithin for plan-gated adds.
func (r *StaticRepository) Add(ctx context.Context, client Client) (Client, error) {
	if client.Name == "" || client.Email == "" {
		return Client{}, ErrInvalidClient
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appendLocked(client), nil
}

// AddWithin appends client when the active count is below limit
func (r *StaticRepository) AddWithin(ctx context.Context, client Client, limit plan.Limit) (Client, bool, error) {
	if client.Name == "" || client.Email == "" {
		return Client{}, false, ErrInvalidClient
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !limit.Admits(r.countActiveLocked()) {
		return Client{}, false, nil
	}
	return r.appendLocked(client), true, nil
}

func (r *StaticRepository) appendLocked(client Client) Client {
	now := r.now()
	client.ID = uuid.NewString()
	if client.Status == "" {
		client.Status = StatusActive
	}
	client.CreatedAt = now
	client.LastActivityAt = now

	r.clients = append(r.clients, client)
	return client
}

// Archive marks the client archived
func (r *StaticRepository) Archive(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.clients {
		if r.clients[i].ID == id {
			r.clients[i].Status = StatusArchived
			r.clients[i].LastActivityAt = r.now()
			return nil
		}
	}
	return ErrNotFound
}
