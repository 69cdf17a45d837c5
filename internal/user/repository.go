package user

import (
	"context"
)

// Repository defines the interface for the cached profile
type Repository interface {
	// Load reads the cached profile
	//
	// Parameters:
	//   - ctx: Context for cancellation control
	//
	// Returns:
	//   - Pointer to the user (nil if nothing is cached)
	//   - Error if the cache exists but cannot be read
	Load(ctx context.Context) (*User, error)

	// Save replaces the cached profile
	//
	// Parameters:
	//   - ctx: Context for cancellation control
	//   - user: Profile to cache
	//
	// Returns:
	//   - Error if the cache cannot be written
	Save(ctx context.Context, user User) error

	// Clear removes the cached profile. Clearing an empty cache is not an error.
	Clear(ctx context.Context) error
}
