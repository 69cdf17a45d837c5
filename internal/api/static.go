package api

import (
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// StaticFileServer serves the dashboard build with SPA fallback.
// It returns index.html for any non-file request to support client-side routing.
type StaticFileServer struct {
	root       fs.FS
	fileServer http.Handler
}

// NewStaticFileServer creates a static file server rooted at root
func NewStaticFileServer(root fs.FS) *StaticFileServer {
	return &StaticFileServer{
		root:       root,
		fileServer: http.FileServer(http.FS(root)),
	}
}

// NewStaticDirServer serves files from dir on disk
func NewStaticDirServer(dir string) (*StaticFileServer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: dir, Err: fs.ErrInvalid}
	}
	return NewStaticFileServer(os.DirFS(dir)), nil
}

// ServeHTTP implements http.Handler.
// It serves static files and falls back to index.html for SPA routing.
func (s *StaticFileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}

	if _, err := fs.Stat(s.root, path); err == nil {
		s.fileServer.ServeHTTP(w, r)
		return
	}

	content, err := fs.ReadFile(s.root, "index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// WithStaticFiles wraps an API router with static file serving.
// /api, /health and /metrics go to apiHandler; everything else to the
// static server.
func WithStaticFiles(apiHandler http.Handler, staticServer *StaticFileServer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if strings.HasPrefix(path, "/api") || path == "/health" || path == "/metrics" {
			apiHandler.ServeHTTP(w, r)
			return
		}

		staticServer.ServeHTTP(w, r)
	})
}
