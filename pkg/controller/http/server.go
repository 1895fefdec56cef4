package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/secmon-lab/tally/frontend"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/utils/apperr"
)

// Server represents the HTTP server
type Server struct {
	*http.Server
	router chi.Router
}

// Config holds optional settings of the HTTP server
type Config struct {
	frontend http.FileSystem
}

// Option configures the HTTP server
type Option func(*Config)

// WithFrontend serves the given filesystem instead of the embedded frontend
func WithFrontend(fs http.FileSystem) Option {
	return func(c *Config) {
		c.frontend = fs
	}
}

// NewServer creates a new HTTP server
func NewServer(ctx context.Context, addr string, dashboard interfaces.Dashboard, opts ...Option) (*Server, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	router := chi.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	charts := NewChartHandler(dashboard)

	// Health check
	router.Get("/health", handleHealth)
	router.Handle("/metrics", promhttp.Handler())

	// API routes
	router.Route("/api", func(r chi.Router) {
		r.Use(CORS)
		r.Get("/dashboard", charts.HandlePage)
		r.Get("/charts/{id}", charts.HandleFigure)
	})

	router.Get("/charts/{id}.svg", charts.HandleSVG)

	// Frontend routes (serve embedded or filesystem)
	fs := cfg.frontend
	if fs == nil {
		embedded, err := frontend.GetHTTPFS()
		if err != nil {
			ctxlog.From(ctx).Warn("Failed to get embedded frontend, using fallback",
				"error", err,
			)
		}
		fs = embedded
	}

	if fs == nil {
		router.Get("/*", handleFallbackHome)
	} else {
		spa, err := NewSPAHandler(fs)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create frontend handler")
		}
		ctxlog.From(ctx).Info("Serving frontend")
		router.Handle("/*", spa)
	}

	server := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router: router,
	}

	return server, nil
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "tally",
	}); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
	}
}

// handleFallbackHome handles the root path when frontend is not available
func handleFallbackHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>tally</title>
    <style>
        body {
            font-family: monaco, consolas, menlo, monospace;
            color: #363636;
            max-width: 960px;
            margin: 2rem auto;
        }
        img {
            display: block;
            margin: 1rem 0;
            max-width: 100%;
        }
    </style>
</head>
<body>
    <h1>tally</h1>
    <p>The interactive frontend is not bundled. Static charts:</p>
    <img src="/charts/majors.svg" alt="majors">
    <img src="/charts/majors-by-week.svg" alt="majors by week">
    <img src="/charts/versions.svg" alt="versions">
    <img src="/charts/interpreters.svg?trace=0" alt="interpreters">
    <img src="/charts/interpreters.svg?trace=1" alt="interpreters">
</body>
</html>`)); err != nil {
		ctxlog.From(r.Context()).Error("Failed to write fallback home page", "error", err)
	}
}

// statusOf maps domain errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrChartNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrSourceFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	logger := ctxlog.From(r.Context())
	if status >= http.StatusInternalServerError {
		apperr.Handle(r.Context(), err)
	} else {
		logger.Debug("Request rejected", "error", err, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}

	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}
