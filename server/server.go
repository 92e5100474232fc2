// Package server exposes the editor binder as a JSON API and serves the
// embedded editor page.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/sparqled/editor"
	"github.com/c360studio/sparqled/metrics"
)

// DefaultBasePath is where the JSON API is mounted.
const DefaultBasePath = "/api/editor/"

//go:embed static
var staticFiles embed.FS

var indexTemplate = template.Must(template.ParseFS(staticFiles, "static/index.html"))

// pageData is rendered into the editor page.
type pageData struct {
	BasePath string
}

// Server serves the editor API.
type Server struct {
	binder   *editor.Binder
	metrics  *metrics.Metrics
	basePath string
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithBasePath mounts the API under path.
func WithBasePath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.basePath = path
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server for binder.
func New(binder *editor.Binder, opts ...Option) *Server {
	s := &Server{
		binder:   binder,
		basePath: DefaultBasePath,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !strings.HasPrefix(s.basePath, "/") {
		s.basePath = "/" + s.basePath
	}
	if !strings.HasSuffix(s.basePath, "/") {
		s.basePath += "/"
	}
	return s
}

// BasePath returns the API mount point.
func (s *Server) BasePath() string {
	return s.basePath
}

// Handler returns the complete handler: the API, /health, /metrics when
// metrics are configured, and the editor page on /.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterHTTPHandlers(s.basePath, mux)

	mux.HandleFunc("/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// The embedded tree is fixed at build time.
		panic(err)
	}
	files := http.FileServer(http.FS(static))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			files.ServeHTTP(w, r)
			return
		}
		s.handleIndex(w, r)
	})

	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, when non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready chan<- net.Addr) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		s.logger.Info("Editor server listening",
			"address", ln.Addr().String(),
			"base_path", s.basePath,
			"endpoint", s.binder.Client().Endpoint())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case <-ctx.Done():
		s.logger.Info("Editor server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIndex renders the editor page with the API base path.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, pageData{BasePath: s.basePath}); err != nil {
		s.logger.Warn("Failed to render editor page", "error", err)
	}
}
