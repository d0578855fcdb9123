package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/geospatial-oss/geoindex/pkg/api/rest/middleware"
	"github.com/geospatial-oss/geoindex/pkg/observability"
	"github.com/geospatial-oss/geoindex/pkg/registry"
)

// Config holds the REST server configuration.
type Config struct {
	Host        string
	Port        int
	CORSEnabled bool
	CORSOrigins []string
	Auth        middleware.AuthConfig
	RateLimit   middleware.RateLimitConfig
}

// Server represents the REST API server.
type Server struct {
	config     Config
	handler    *Handler
	logger     *observability.Logger
	access     *observability.AccessLogger
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer creates a new REST API server backed by reg for index storage,
// cache for query result caching, and metrics/logger for observability.
func NewServer(config Config, reg *registry.Registry, cache *QueryCache, metrics *observability.Metrics, logger *observability.Logger) *Server {
	handler := NewHandler(reg, cache, metrics, logger)

	server := &Server{
		config:  config,
		handler: handler,
		logger:  logger,
		access:  observability.NewAccessLogger(logger),
		mux:     http.NewServeMux(),
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.withMiddleware(server.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handler.HealthCheck)
	s.mux.HandleFunc("/v1/indexes", s.handler.ListIndexes)
	s.mux.HandleFunc("/v1/indexes/", s.handler.RouteIndex)
}

// withMiddleware wraps the handler with all middleware, applied innermost
// first: auth, then rate limiting, then (optional) CORS, then logging.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = middleware.AuthMiddleware(s.config.Auth)(handler)

	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit)
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)

	if s.config.CORSEnabled {
		handler = corsMiddleware(s.config.CORSOrigins)(handler)
	}

	handler = s.loggingMiddleware(handler)

	return handler
}

// Start starts the REST API server.
func (s *Server) Start() error {
	s.logger.Info("starting REST API server", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down REST API server")
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs every HTTP request through the shared access
// logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.access.LogAccess(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), nil)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				allowed = true
				origin = "*"
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
