package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/otiai10/consultbase/internal/auth"
	"github.com/otiai10/consultbase/internal/billing"
	"github.com/otiai10/consultbase/internal/entitlement"
	"github.com/otiai10/consultbase/internal/logging"
	"github.com/otiai10/consultbase/internal/metrics"
	"github.com/otiai10/consultbase/internal/plan"
	"github.com/otiai10/consultbase/internal/session"
	"github.com/otiai10/consultbase/internal/store"
	"github.com/otiai10/consultbase/internal/team"
)

// ErrorResponse represents an error response.
// Upgrade is set when the plan refused the action.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Upgrade *billing.UpgradePrompt `json:"upgrade,omitempty"`
}

// FeaturesResponse lists every flag of the session's tier
type FeaturesResponse struct {
	Tier     plan.Tier       `json:"tier"`
	Features map[string]bool `json:"features"`
}

// FeatureResponse is a single flag
type FeatureResponse struct {
	Feature plan.Feature           `json:"feature"`
	Label   string                 `json:"label"`
	Enabled bool                   `json:"enabled"`
	Upgrade *billing.UpgradePrompt `json:"upgrade,omitempty"`
}

// ClientRequest represents the request body for adding a client
type ClientRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Company        string `json:"company,omitempty"`
	EngagementName string `json:"engagementName,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// ClientsResponse is the client list with the limit usage
type ClientsResponse struct {
	Clients []store.Client    `json:"clients"`
	Usage   entitlement.Usage `json:"usage"`
}

// AnalyticsReport summarizes clients and team for the analytics page
type AnalyticsReport struct {
	TotalClients     int       `json:"totalClients"`
	ActiveClients    int       `json:"activeClients"`
	CompletedClients int       `json:"completedClients"`
	ArchivedClients  int       `json:"archivedClients"`
	TeamMembers      int       `json:"teamMembers"`
	PendingInvites   int       `json:"pendingInvites"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// Handler contains the HTTP handlers for the API
type Handler struct {
	sessions *session.Manager
	auth     *auth.Service
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewHandler creates a new Handler instance.
// A nil m gets a private metrics registry.
func NewHandler(sessions *session.Manager, authService *auth.Service, m *metrics.Metrics) *Handler {
	if m == nil {
		m = metrics.New()
	}
	return &Handler{
		sessions: sessions,
		auth:     authService,
		metrics:  m,
		now:      time.Now,
	}
}

// ListPlans handles GET /api/plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, plan.Catalog(), http.StatusOK)
}

// ListFeatures handles GET /api/features
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())
	def := s.Plan()
	writeJSON(w, FeaturesResponse{Tier: def.ID, Features: def.Features.Map()}, http.StatusOK)
}

// GetFeature handles GET /api/features/{name}
func (h *Handler) GetFeature(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())

	name := strings.TrimPrefix(r.URL.Path, "/api/features/")
	f, err := plan.ParseFeature(name)
	if err != nil {
		writeError(w, "unknown feature: "+name, http.StatusNotFound)
		return
	}

	enabled := s.HasFeature(f)
	h.metrics.FeatureChecked(f.String(), enabled)

	resp := FeatureResponse{Feature: f, Label: f.Label(), Enabled: enabled}
	if !enabled {
		prompt, err := billing.ForFeature(s.Tier(), f)
		if err != nil {
			writeError(w, "failed to build upgrade prompt", http.StatusInternalServerError)
			return
		}
		resp.Upgrade = &prompt
	}
	writeJSON(w, resp, http.StatusOK)
}

// ListClients handles GET /api/clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())

	clients, err := s.Clients(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to list clients", err)
		return
	}
	snap, err := s.Snapshot(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to evaluate plan", err)
		return
	}

	writeJSON(w, ClientsResponse{Clients: clients, Usage: snap.Clients}, http.StatusOK)
}

// CreateClient handles POST /api/clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())

	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, "name and email are required", http.StatusBadRequest)
		return
	}

	added, ok, err := s.AddClient(r.Context(), store.Client{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Company:        req.Company,
		EngagementName: req.EngagementName,
		Notes:          req.Notes,
	})
	switch {
	case errors.Is(err, store.ErrInvalidClient):
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.internalError(w, r, "failed to add client", err)
		return
	case !ok:
		h.metrics.GateRefused(metrics.GateClientLimit, string(s.Tier()))
		h.writeGated(w, s.Tier(), "client limit reached for the "+s.Plan().Name+" plan", billing.GateMoreClients, "")
		return
	}

	writeJSON(w, added, http.StatusCreated)
}

// GetAnalytics handles GET /api/analytics
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())

	enabled := s.HasFeature(plan.FeatureAdvancedAnalytics)
	h.metrics.FeatureChecked(plan.FeatureAdvancedAnalytics.String(), enabled)
	if !enabled {
		prompt, err := billing.ForFeature(s.Tier(), plan.FeatureAdvancedAnalytics)
		if err != nil {
			writeError(w, "failed to build upgrade prompt", http.StatusInternalServerError)
			return
		}
		writeJSON(w, ErrorResponse{Error: "advanced analytics is not included in your plan", Upgrade: &prompt}, http.StatusForbidden)
		return
	}

	clients, err := s.Clients(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to list clients", err)
		return
	}

	report := AnalyticsReport{TotalClients: len(clients), GeneratedAt: h.now().UTC()}
	for _, c := range clients {
		switch c.Status {
		case store.StatusActive:
			report.ActiveClients++
		case store.StatusCompleted:
			report.CompletedClients++
		case store.StatusArchived:
			report.ArchivedClients++
		}
	}
	for _, m := range s.Roster() {
		report.TeamMembers++
		if m.Status == team.StatusPending {
			report.PendingInvites++
		}
	}

	writeJSON(w, report, http.StatusOK)
}

// GetUpgrade handles GET /api/upgrade?feature=&recommended=
func (h *Handler) GetUpgrade(w http.ResponseWriter, r *http.Request) {
	s := auth.MustGetSession(r.Context())

	feature := r.URL.Query().Get("feature")
	recommended := plan.Tier(r.URL.Query().Get("recommended"))

	// A known flag name selects the tier that unlocks it
	if f, err := plan.ParseFeature(feature); err == nil {
		feature = f.Label()
		if recommended == "" {
			recommended = billing.MinimumTierFor(f)
		}
	}

	prompt, err := billing.NewUpgradePrompt(s.Tier(), feature, recommended)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, prompt, http.StatusOK)
}

// writeGated writes a 403 carrying the upgrade prompt for gate
func (h *Handler) writeGated(w http.ResponseWriter, current plan.Tier, message, gate string, recommended plan.Tier) {
	prompt, err := billing.NewUpgradePrompt(current, gate, recommended)
	if err != nil {
		writeError(w, message, http.StatusForbidden)
		return
	}
	writeJSON(w, ErrorResponse{Error: message, Upgrade: &prompt}, http.StatusForbidden)
}

// internalError logs err and writes a 500 with message
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	logger := logging.FromContext(r.Context(), "api")
	logger.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	writeError(w, message, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Already wrote headers, can only log
		return
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
