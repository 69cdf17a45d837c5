package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/otiai10/consultbase/internal/plan"
)

func TestNewRepositoryFromFile_DefaultFixtures(t *testing.T) {
	repo, err := NewRepositoryFromFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clients, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clients) != 7 {
		t.Fatalf("Expected 7 fixture clients, got %d", len(clients))
	}

	count, err := repo.CountActive(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// completed clients still count, archived do not
	if count != 6 {
		t.Errorf("Expected 6 clients against the limit, got %d", count)
	}

	for _, c := range clients {
		if c.LastActivityAt.IsZero() {
			t.Errorf("Client %s has zero LastActivityAt", c.ID)
		}
	}
}

func TestNewRepositoryFromFile_CustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.yaml")
	content := `clients:
  - id: a
    name: Alpha
    email: alpha@example.com
    status: active
    createdAt: 2024-01-01T00:00:00Z
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	repo, err := NewRepositoryFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := repo.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "Alpha" {
		t.Errorf("Expected name 'Alpha', got '%s'", c.Name)
	}
}

func TestNewRepositoryFromFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := NewRepositoryFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		if _, err := LoadFixtures([]byte("clients: [")); err == nil {
			t.Error("Expected error for malformed YAML")
		}
	})
}

func TestStaticRepository_Add(t *testing.T) {
	repo := NewStaticRepository(nil)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	added, err := repo.Add(context.Background(), Client{Name: "New Co", Email: "hello@newco.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added.ID == "" {
		t.Error("Expected generated ID")
	}
	if added.Status != StatusActive {
		t.Errorf("Expected status active, got %s", added.Status)
	}
	if !added.CreatedAt.Equal(fixed) {
		t.Errorf("Expected CreatedAt %v, got %v", fixed, added.CreatedAt)
	}

	count, _ := repo.CountActive(context.Background())
	if count != 1 {
		t.Errorf("Expected count 1, got %d", count)
	}

	if _, err := repo.Add(context.Background(), Client{Name: "No Email"}); !errors.Is(err, ErrInvalidClient) {
		t.Errorf("Expected ErrInvalidClient, got %v", err)
	}
}

func TestStaticRepository_AddWithin(t *testing.T) {
	tests := []struct {
		name      string
		seeded    []Client
		limit     plan.Limit
		wantAdded bool
	}{
		{"below limit", []Client{{ID: "1", Name: "A", Status: StatusActive}}, 2, true},
		{"at limit", []Client{{ID: "1", Name: "A", Status: StatusActive}, {ID: "2", Name: "B", Status: StatusCompleted}}, 2, false},
		{"archived frees slot", []Client{{ID: "1", Name: "A", Status: StatusActive}, {ID: "2", Name: "B", Status: StatusArchived}}, 2, true},
		{"over limit after downgrade", []Client{{ID: "1", Status: StatusActive}, {ID: "2", Status: StatusActive}, {ID: "3", Status: StatusActive}}, 2, false},
		{"unlimited", []Client{{ID: "1", Status: StatusActive}, {ID: "2", Status: StatusActive}}, plan.Unlimited, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewStaticRepository(tt.seeded)
			before, _ := repo.CountActive(context.Background())

			added, ok, err := repo.AddWithin(context.Background(), Client{Name: "New Co", Email: "hello@newco.com"}, tt.limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantAdded {
				t.Errorf("Expected added=%v, got %v", tt.wantAdded, ok)
			}
			if ok && added.ID == "" {
				t.Error("Expected generated ID")
			}

			after, _ := repo.CountActive(context.Background())
			want := before
			if tt.wantAdded {
				want++
			}
			if after != want {
				t.Errorf("Expected count %d, got %d", want, after)
			}
		})
	}
}

func TestStaticRepository_AddWithinInvalid(t *testing.T) {
	repo := NewStaticRepository(nil)
	if _, ok, err := repo.AddWithin(context.Background(), Client{Name: "No Email"}, 5); !errors.Is(err, ErrInvalidClient) || ok {
		t.Errorf("Expected ErrInvalidClient, got ok=%v err=%v", ok, err)
	}
}

func TestStaticRepository_AddWithinConcurrent(t *testing.T) {
	repo := NewStaticRepository(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = repo.AddWithin(context.Background(), Client{Name: "C", Email: "c@example.com"}, 25)
		}()
	}
	wg.Wait()

	count, _ := repo.CountActive(context.Background())
	if count != 25 {
		t.Errorf("Expected count capped at 25, got %d", count)
	}
}

func TestStaticRepository_Archive(t *testing.T) {
	repo := NewStaticRepository([]Client{
		{ID: "1", Name: "A", Status: StatusActive},
		{ID: "2", Name: "B", Status: StatusCompleted},
	})

	if err := repo.Archive(context.Background(), "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count, _ := repo.CountActive(context.Background())
	if count != 1 {
		t.Errorf("Expected count 1 after archive, got %d", count)
	}

	if err := repo.Archive(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStaticRepository_ListReturnsCopy(t *testing.T) {
	repo := NewStaticRepository([]Client{{ID: "1", Name: "A"}})

	list, _ := repo.List(context.Background())
	list[0].Name = "mutated"

	c, err := repo.Get(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "A" {
		t.Errorf("Expected name 'A', got '%s'", c.Name)
	}
}
