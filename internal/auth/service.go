// Package auth signs users in, tracks their session token and guards
// routes that need a session or an owner.
//
// Sign-in is simulated: any non-empty email and password are accepted.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/consultbase/internal/logging"
	"github.com/otiai10/consultbase/internal/session"
	"github.com/otiai10/consultbase/internal/user"
)

// ErrInvalidCredentials is returned when email or password is empty
var ErrInvalidCredentials = errors.New("email and password are required")

// Service opens and closes sessions backed by the cached profile
type Service struct {
	users    user.Repository
	sessions *session.Manager
}

// NewService creates a new Service
func NewService(users user.Repository, sessions *session.Manager) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
	}
}

// Login signs in with email and password.
// A cached profile with the same email is reused; otherwise the demo
// profile is adopted under the given email.
func (s *Service) Login(ctx context.Context, email, password string) (string, *session.Store, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	stored, err := s.users.Load(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load profile: %w", err)
	}

	u := user.Demo()
	u.Email = email
	if stored != nil && strings.EqualFold(stored.Email, email) {
		u = stored.WithDefaults()
	}
	return s.open(ctx, u)
}

// LoginDemo signs in as the demo account
func (s *Service) LoginDemo(ctx context.Context) (string, *session.Store, error) {
	return s.open(ctx, user.Demo())
}

// Resume opens a session from the cached profile, merging defaults
func (s *Service) Resume(ctx context.Context) (string, *session.Store, error) {
	u, err := user.Restore(ctx, s.users)
	if err != nil {
		return "", nil, fmt.Errorf("failed to restore profile: %w", err)
	}
	token, st := s.sessions.Open(u)
	return token, st, nil
}

// Logout closes the session and clears the cached profile
func (s *Service) Logout(ctx context.Context, token string) error {
	s.sessions.Close(token)
	if err := s.users.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear profile: %w", err)
	}

	logger := logging.FromContext(ctx, "auth")
	logger.Info().Msg("session closed")
	return nil
}

func (s *Service) open(ctx context.Context, u user.User) (string, *session.Store, error) {
	if err := s.users.Save(ctx, u); err != nil {
		return "", nil, fmt.Errorf("failed to save profile: %w", err)
	}
	token, st := s.sessions.Open(u)

	logger := logging.FromContext(ctx, "auth")
	logger.Info().
		Str("email", u.Email).
		Str("plan", string(u.Plan)).
		Str("role", string(u.Role)).
		Msg("session opened")
	return token, st, nil
}
