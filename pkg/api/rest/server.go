// Package rest exposes the search library over HTTP: datasets are built
// from uploaded vectors and queried with any of the search algorithms.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mehulsinghal/entropic/pkg/api/rest/middleware"
	"github.com/mehulsinghal/entropic/pkg/config"
	"github.com/mehulsinghal/entropic/pkg/observability"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// builtDataset is one built tree together with its build metadata.
type builtDataset struct {
	tree       *tree.Tree[[]float64, float64]
	metricName string
	dimension  int
	maxDepth   int
	createdAt  time.Time
}

// Server is the REST API server.
type Server struct {
	cfg        *config.Config
	logger     *observability.Logger
	metrics    *observability.Metrics
	registry   *prometheus.Registry
	mux        *http.ServeMux
	httpServer *http.Server

	mu       sync.RWMutex
	datasets map[string]*builtDataset
	cache    *lru.Cache // search response cache, keyed by request digest
}

// NewServer creates a REST server from the given configuration.
func NewServer(cfg *config.Config, logger *observability.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		metrics:  observability.NewMetrics(registry),
		registry: registry,
		mux:      http.NewServeMux(),
		datasets: make(map[string]*builtDataset),
	}

	if cfg.Cache.Enabled {
		cache, err := lru.New(cfg.Cache.Capacity)
		if err != nil {
			return nil, fmt.Errorf("creating search cache: %w", err)
		}
		s.cache = cache
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.withMiddleware(s.mux),
		ReadTimeout:  cfg.Server.RequestTimeout.Std(),
		WriteTimeout: cfg.Server.RequestTimeout.Std(),
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /v1/datasets", s.handleBuild)
	s.mux.HandleFunc("GET /v1/datasets", s.handleListDatasets)
	s.mux.HandleFunc("GET /v1/datasets/{name}/stats", s.handleStats)
	s.mux.HandleFunc("GET /v1/datasets/{name}/tree.csv", s.handleTreeCSV)
	s.mux.HandleFunc("POST /v1/datasets/{name}/search", s.handleSearch)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

func (s *Server) withMiddleware(h http.Handler) http.Handler {
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Enabled:        s.cfg.RateLimit.Enabled,
		RequestsPerSec: s.cfg.RateLimit.RequestsPerSec,
		Burst:          s.cfg.RateLimit.Burst,
		PerIP:          s.cfg.RateLimit.PerIP,
	})
	auth := middleware.Auth(middleware.AuthConfig{
		Enabled:     s.cfg.Auth.Enabled,
		JWTSecret:   s.cfg.Auth.JWTSecret,
		PublicPaths: []string{"/v1/health", "/metrics"},
	})

	return s.logRequests(middleware.RateLimit(limiter)(auth(h)))
}

// logRequests logs every request with its duration and status.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("request", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("rest server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("rest server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
