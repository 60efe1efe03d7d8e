package invoice

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DocumentOpener turns an uploaded file into a page source. The returned
// cleanup function releases any temporary artifacts created while opening
// and must be called once extraction finishes.
type DocumentOpener func(data []byte, contentType string) (Document, func(), error)

// IDGenerator generates unique IDs for extraction runs
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// Server handles HTTP requests for invoice extraction
type Server struct {
	pipeline    *Pipeline
	db          DB // nil disables run history
	open        DocumentOpener
	basicAuth   BasicAuth
	mux         *http.ServeMux
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewServer creates a new Server with default mux
func NewServer(pipeline *Pipeline, db DB, open DocumentOpener, basicAuth BasicAuth) *Server {
	return NewServerWithMux(pipeline, db, open, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(pipeline *Pipeline, db DB, open DocumentOpener, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		pipeline:    pipeline,
		db:          db,
		open:        open,
		basicAuth:   basicAuth,
		mux:         mux,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Invoice Extractor"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes wires up the HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/extract", s.corsMiddleware(s.requireAuth(s.handleExtract)))
	s.mux.HandleFunc("/api/runs", s.corsMiddleware(s.requireAuth(s.handleListRuns)))
	s.mux.HandleFunc("/api/runs/", s.corsMiddleware(s.requireAuth(s.handleRun)))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.mux)
}
