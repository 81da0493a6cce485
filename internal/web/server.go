// Package web provides the HTTP API for previewing and committing CSV imports.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/csvimport/internal/config"
	"github.com/JonMunkholm/csvimport/internal/core"
	appmw "github.com/JonMunkholm/csvimport/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and the other form fields.
const multipartOverhead = 1 << 20

var errRateLimited = errors.New("rate limit exceeded")

// Server is the HTTP server for the import API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	stopCleanup context.CancelFunc
}

// NewServer creates a Server for service using cfg's server, rate limit and
// security settings.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	var general, uploads func(http.Handler) http.Handler
	if s.cfg.Rate.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopCleanup = cancel

		generalLimiter := appmw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.BurstFactor)
		uploadLimiter := appmw.NewRateLimiter(s.cfg.Rate.UploadLimit, s.cfg.Rate.BurstFactor)
		go generalLimiter.Cleanup(ctx, time.Minute, 2*time.Minute)
		go uploadLimiter.Cleanup(ctx, time.Minute, 2*time.Minute)

		general = generalLimiter.Handler(s.rejectRateLimited)
		uploads = uploadLimiter.Handler(s.rejectRateLimited)
	}

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		if general != nil {
			r.Use(general)
		}
		r.Use(appmw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

		r.Group(func(r chi.Router) {
			if s.cfg.Server.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			}

			r.Get("/entities", s.handleListEntities)
			r.Get("/template/{entity}", s.handleDownloadTemplate)

			r.Get("/import/{sessionID}", s.handleGetSession)
			r.Delete("/import/{sessionID}", s.handleCancelImport)
			r.Get("/import/{sessionID}/errors.csv", s.handleExportErrors)

			r.Get("/batches", s.handleListBatches)
			r.Post("/batches/{batchID}/rollback", s.handleRollbackBatch)
		})

		// Preview and commit have their own limits: upload size and the
		// service's commit timeout.
		r.Group(func(r chi.Router) {
			if uploads != nil {
				r.Use(uploads)
			}
			r.Post("/preview/{entity}", s.handlePreview)
			r.Post("/import/{sessionID}/commit", s.handleCommit)
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopCleanup != nil {
		s.stopCleanup()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			// JSON and CSV only; nothing should ever load.
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
