package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/otiai10/consultbase/internal/auth"
	"github.com/otiai10/consultbase/internal/billing"
	"github.com/otiai10/consultbase/internal/entitlement"
	"github.com/otiai10/consultbase/internal/metrics"
	"github.com/otiai10/consultbase/internal/plan"
	"github.com/otiai10/consultbase/internal/team"
)

// Invite results recorded in metrics
const (
	inviteOK        = "ok"
	inviteInvalid   = "invalid"
	inviteDuplicate = "duplicate"
	inviteNoSeat    = "seat_limit"
)

// MembersResponse is the roster with seat usage
type MembersResponse struct {
	Members []team.Member     `json:"members"`
	Seats   entitlement.Usage `json:"seats"`
}

// RoleRequest represents the request body for PUT /api/team/members/{id}/role
type RoleRequest struct {
	Role string `json:"role"`
}

// ListMembers handles GET /api/team/members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())

	snap, err := s.Snapshot(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to evaluate plan", err)
		return
	}
	writeJSON(w, MembersResponse{Members: s.Roster(), Seats: snap.Seats}, http.StatusOK)
}

// InviteMember handles POST /api/team/members
func (h *Handler) InviteMember(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())

	var req team.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	m, err := s.Invite(r.Context(), req)
	switch {
	case err == nil:
		h.metrics.Invited(inviteOK)
		writeJSON(w, m, http.StatusCreated)
	case errors.Is(err, team.ErrDuplicateEmail):
		h.metrics.Invited(inviteDuplicate)
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, team.ErrSeatLimitReached):
		h.metrics.Invited(inviteNoSeat)
		h.metrics.GateRefused(metrics.GateSeatLimit, string(s.Tier()))
		// A single-seat plan has no team at all
		gate, recommended := billing.GateMoreMembers, plan.TierFirm
		if s.Plan().UserLimit == 1 {
			gate, recommended = billing.GateTeam, plan.TierTeam
		}
		h.writeGated(w, s.Tier(), err.Error(), gate, recommended)
	case errors.Is(err, team.ErrMissingFields),
		errors.Is(err, team.ErrInvalidEmail),
		errors.Is(err, team.ErrInvalidRole):
		h.metrics.Invited(inviteInvalid)
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		h.internalError(w, r, "failed to invite member", err)
	}
}

// RemoveMember handles DELETE /api/team/members/{id}.
// Unknown ids succeed with 204.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request, id string) {
	s := auth.MustGetSession(r.Context())

	if s.IsSelf(id) {
		writeError(w, "you cannot remove yourself from the team", http.StatusForbidden)
		return
	}
	s.RemoveMember(id)
	w.WriteHeader(http.StatusNoContent)
}

// UpdateMemberRole handles PUT /api/team/members/{id}/role.
// Unknown ids succeed with 204.
func (h *Handler) UpdateMemberRole(w http.ResponseWriter, r *http.Request, id string) {
	s := auth.MustGetSession(r.Context())

	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	role, err := team.ParseRole(req.Role)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.IsSelf(id) {
		writeError(w, "you cannot change your own role", http.StatusForbidden)
		return
	}
	s.UpdateMemberRole(id, role)
	w.WriteHeader(http.StatusNoContent)
}

// ownerOnly wraps next with auth.RequireOwner and records refusals
func (h *Handler) ownerOnly(next http.HandlerFunc) http.Handler {
	guarded := auth.RequireOwner(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := auth.GetSession(r.Context()); ok && !s.IsOwner() {
			h.metrics.GateRefused(metrics.GateOwnerOnly, string(s.Tier()))
		}
		guarded.ServeHTTP(w, r)
	})
}
