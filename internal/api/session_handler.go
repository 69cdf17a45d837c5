package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/otiai10/consultbase/internal/auth"
	"github.com/otiai10/consultbase/internal/billing"
	"github.com/otiai10/consultbase/internal/entitlement"
	"github.com/otiai10/consultbase/internal/plan"
	"github.com/otiai10/consultbase/internal/session"
	"github.com/otiai10/consultbase/internal/team"
	"github.com/otiai10/consultbase/internal/user"
)

// LoginRequest represents the request body for POST /api/session
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PlanRequest represents the request body for PUT /api/session/plan
type PlanRequest struct {
	Tier string `json:"tier"`
}

// SessionView is everything the dashboard needs to render the session.
// Token is only set on the login responses.
type SessionView struct {
	Token        string               `json:"token,omitempty"`
	Profile      user.User            `json:"profile"`
	Roster       []team.Member        `json:"roster"`
	Entitlements entitlement.Snapshot `json:"entitlements"`
	RenewsAt     time.Time            `json:"renewsAt"`
}

// Login handles POST /api/session
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, s, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeOpened(w, r, token, s, err)
}

// LoginDemo handles POST /api/session/demo
func (h *Handler) LoginDemo(w http.ResponseWriter, r *http.Request) {
	token, s, err := h.auth.LoginDemo(r.Context())
	h.writeOpened(w, r, token, s, err)
}

// Resume handles POST /api/session/resume
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	token, s, err := h.auth.Resume(r.Context())
	h.writeOpened(w, r, token, s, err)
}

func (h *Handler) writeOpened(w http.ResponseWriter, r *http.Request, token string, s *session.Store, err error) {
	if err != nil {
		h.internalError(w, r, "failed to open session", err)
		return
	}
	h.metrics.SessionOpened()

	view, err := h.view(r.Context(), s)
	if err != nil {
		h.internalError(w, r, "failed to evaluate plan", err)
		return
	}
	view.Token = token
	writeJSON(w, view, http.StatusCreated)
}

// GetSession handles GET /api/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())

	view, err := h.view(r.Context(), s)
	if err != nil {
		h.internalError(w, r, "failed to evaluate plan", err)
		return
	}
	writeJSON(w, view, http.StatusOK)
}

// Logout handles DELETE /api/session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.GetToken(r.Context())

	if err := h.auth.Logout(r.Context(), token); err != nil {
		h.internalError(w, r, "failed to sign out", err)
		return
	}
	h.metrics.SessionClosed()
	w.WriteHeader(http.StatusNoContent)
}

// SwitchPlan handles PUT /api/session/plan
func (h *Handler) SwitchPlan(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tier, err := plan.ParseTier(req.Tier)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	prev := s.Tier()
	if err := s.SwitchTier(tier); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.metrics.PlanSwitched(string(prev), string(tier))

	view, err := h.view(r.Context(), s)
	if err != nil {
		h.internalError(w, r, "failed to evaluate plan", err)
		return
	}
	writeJSON(w, view, http.StatusOK)
}

func (h *Handler) view(ctx context.Context, s *session.Store) (SessionView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return SessionView{}, err
	}
	return SessionView{
		Profile:      s.Profile(),
		Roster:       s.Roster(),
		Entitlements: snap,
		RenewsAt:     billing.RenewalDate(h.now()),
	}, nil
}
