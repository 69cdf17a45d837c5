package user

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileRepository implements Repository with a single YAML file
type FileRepository struct {
	mu   sync.Mutex
	path string
}

// Ensure FileRepository implements Repository interface
var _ Repository = (*FileRepository)(nil)

// NewFileRepository creates a FileRepository backed by path
//
// Parameters:
//   - path: Location of the profile file; its directory is created on first save
//
// Returns:
//   - FileRepository instance
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the backing file location
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the profile. A missing file yields (nil, nil).
func (r *FileRepository) Load(ctx context.Context) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var u User
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", r.path, err)
	}
	return &u, nil
}

// Save writes the profile through a temp file and rename
func (r *FileRepository) Save(ctx context.Context, u User) error {
	data, err := yaml.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".profile-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp profile: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace profile: %w", err)
	}
	return nil
}

// Clear deletes the profile file
func (r *FileRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove profile: %w", err)
	}
	return nil
}

// Restore loads the cached profile and merges defaults into it.
// Without a cache it returns the demo account. The merged profile is
// written back so the next run reads a complete record.
func Restore(ctx context.Context, repo Repository) (User, error) {
	stored, err := repo.Load(ctx)
	if err != nil {
		return User{}, err
	}

	u := Demo()
	if stored != nil {
		u = stored.WithDefaults()
	}
	if err := repo.Save(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}
