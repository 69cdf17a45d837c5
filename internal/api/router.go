package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/otiai10/consultbase/internal/auth"
	"github.com/otiai10/consultbase/internal/config"
	"github.com/otiai10/consultbase/internal/metrics"
	"github.com/otiai10/consultbase/internal/session"
	"github.com/otiai10/consultbase/internal/version"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	Sessions       *session.Manager
	Auth           *auth.Service
	Metrics        *metrics.Metrics       // nil creates a private registry
	SecurityConfig *config.SecurityConfig // nil allows any origin
}

// NewRouter creates a new HTTP router with all API routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	h := NewHandler(cfg.Sessions, cfg.Auth, cfg.Metrics)
	withSession := auth.Middleware(cfg.Sessions)
	origins := cfg.SecurityConfig.GetCORSAllowedOrigins()

	mux := http.NewServeMux()
	registerPublicRoutes(mux, h)
	registerSessionRoutes(mux, h, withSession, NewStreamHandler(h, origins))
	registerFeatureRoutes(mux, h, withSession)
	registerClientRoutes(mux, h, withSession)
	registerTeamRoutes(mux, h, withSession)

	return applyMiddlewareChain(mux, h.metrics, origins)
}

// registerPublicRoutes registers routes that don't require a session
func registerPublicRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(fmt.Sprintf(`{"status":"ok","hash":"%s"}`, version.CommitHash)))
	})

	mux.Handle("/metrics", h.metrics.Handler())

	mux.HandleFunc("/api/plans", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListPlans(w, r)
		default:
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// registerSessionRoutes registers sign-in, the session resource and its stream
func registerSessionRoutes(mux *http.ServeMux, h *Handler, withSession func(http.Handler) http.Handler, stream http.Handler) {
	getSession := withSession(http.HandlerFunc(h.GetSession))
	logout := withSession(http.HandlerFunc(h.Logout))
	switchPlan := withSession(h.ownerOnly(h.SwitchPlan))

	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.Login(w, r)
		case http.MethodGet:
			getSession.ServeHTTP(w, r)
		case http.MethodDelete:
			logout.ServeHTTP(w, r)
		default:
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/session/demo", postOnly(h.LoginDemo))
	mux.HandleFunc("/api/session/resume", postOnly(h.Resume))

	mux.HandleFunc("/api/session/plan", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			switchPlan.ServeHTTP(w, r)
		default:
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/session/stream", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			stream.ServeHTTP(w, r)
		default:
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// registerFeatureRoutes registers feature flag and upgrade routes
func registerFeatureRoutes(mux *http.ServeMux, h *Handler, withSession func(http.Handler) http.Handler) {
	mux.Handle("/api/features", withSession(getOnly(h.ListFeatures)))

	mux.Handle("/api/features/", withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/api/features/")
		if name == "" || strings.Contains(name, "/") {
			writeError(w, "invalid path", http.StatusBadRequest)
			return
		}
		getOnly(h.GetFeature).ServeHTTP(w, r)
	})))

	mux.Handle("/api/analytics", withSession(getOnly(h.GetAnalytics)))
	mux.Handle("/api/upgrade", withSession(getOnly(h.GetUpgrade)))
}

// registerClientRoutes registers client resource routes
func registerClientRoutes(mux *http.ServeMux, h *Handler, withSession func(http.Handler) http.Handler) {
	mux.Handle("/api/clients", withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListClients(w, r)
		case http.MethodPost:
			h.CreateClient(w, r)
		default:
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))
}

// registerTeamRoutes registers roster routes. Removing members and
// changing roles is reserved to owners.
func registerTeamRoutes(mux *http.ServeMux, h *Handler, withSession func(http.Handler) http.Handler) {
	mux.Handle("/api/team/members", withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListMembers(w, r)
		case http.MethodPost:
			h.InviteMember(w, r)
		default:
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/team/members/", withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/team/members/")
		id, sub, _ := strings.Cut(rest, "/")
		if id == "" {
			writeError(w, "invalid path", http.StatusBadRequest)
			return
		}

		switch {
		case sub == "" && r.Method == http.MethodDelete:
			h.ownerOnly(func(w http.ResponseWriter, r *http.Request) {
				h.RemoveMember(w, r, id)
			}).ServeHTTP(w, r)
		case sub == "role" && r.Method == http.MethodPut:
			h.ownerOnly(func(w http.ResponseWriter, r *http.Request) {
				h.UpdateMemberRole(w, r, id)
			}).ServeHTTP(w, r)
		case sub == "" || sub == "role":
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		default:
			writeError(w, "not found", http.StatusNotFound)
		}
	})))
}

func getOnly(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}

func postOnly(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}

// knownRoutes are recorded in metrics by path; everything else collapses
var knownRoutes = map[string]bool{
	"/health":             true,
	"/metrics":            true,
	"/api/plans":          true,
	"/api/session":        true,
	"/api/session/demo":   true,
	"/api/session/resume": true,
	"/api/session/plan":   true,
	"/api/session/stream": true,
	"/api/features":       true,
	"/api/analytics":      true,
	"/api/upgrade":        true,
	"/api/clients":        true,
	"/api/team/members":   true,
}

// routeLabel maps a request path to a bounded metrics label
func routeLabel(path string) string {
	switch {
	case knownRoutes[path]:
		return path
	case strings.HasPrefix(path, "/api/features/"):
		return "/api/features/{name}"
	case strings.HasPrefix(path, "/api/team/members/") && strings.HasSuffix(path, "/role"):
		return "/api/team/members/{id}/role"
	case strings.HasPrefix(path, "/api/team/members/"):
		return "/api/team/members/{id}"
	default:
		return "other"
	}
}

// applyMiddlewareChain wraps a handler with the standard middleware stack
func applyMiddlewareChain(h http.Handler, m *metrics.Metrics, origins []string) http.Handler {
	cors := CORSMiddleware
	if len(origins) > 0 {
		cors = NewCORSMiddleware(CORSConfig{AllowedOrigins: origins})
	}

	return Chain(
		RequestIDMiddleware,
		RecoveryMiddleware,
		NewLoggingMiddleware(m),
		cors,
		JSONContentTypeMiddleware,
	)(h)
}
