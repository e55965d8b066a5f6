// Package server provides the HTTP server and handlers.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/UndrAds/snappy-sub001/internal/adslot"
	"github.com/UndrAds/snappy-sub001/internal/auth"
	"github.com/UndrAds/snappy-sub001/internal/database"
	"github.com/UndrAds/snappy-sub001/internal/model"
	"github.com/UndrAds/snappy-sub001/internal/rss"
)

// Server is the main HTTP server.
type Server struct {
	store     database.Store
	auth      *auth.Service
	registry  *adslot.Registry
	gpt       *adslot.GPTService
	generator *rss.Generator
	tracker   *rss.Tracker
	scheduler *rss.Scheduler
	log       *logrus.Logger
	router    chi.Router
	metrics   *metrics
}

// New creates a new server. gpt may be nil when no ad script proxy is
// configured; the registry then runs against whatever service it wraps.
func New(store database.Store, authSvc *auth.Service, registry *adslot.Registry,
	gpt *adslot.GPTService, generator *rss.Generator, scheduler *rss.Scheduler,
	log *logrus.Logger) *Server {

	s := &Server{
		store:     store,
		auth:      authSvc,
		registry:  registry,
		gpt:       gpt,
		generator: generator,
		tracker:   generator.Tracker(),
		scheduler: scheduler,
		log:       log,
		metrics:   newMetrics(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.metrics.record)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	r.Get("/embed/gpt.js", s.handleAdScript)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Public player surface.
		r.Get("/stories/{storyID}/player", s.handlePlayerFrame)
		r.Post("/analytics/views", s.handleRecordView)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)

			r.Route("/stories", func(r chi.Router) {
				r.Get("/", s.handleListStories)
				r.Post("/", s.handleCreateStory)
				r.Get("/{storyID}", s.handleGetStory)
				r.Put("/{storyID}", s.handleUpdateStory)
				r.Delete("/{storyID}", s.handleDeleteStory)
				r.Get("/{storyID}/export-info", s.handleExportInfo)
				r.Post("/{storyID}/export", s.handleExport)
				r.Get("/{storyID}/embed", s.handleEmbed)
				r.Get("/{storyID}/rss-status", s.handleRSSStatus)
				r.Post("/{storyID}/rss-update", s.handleRSSUpdate)
			})

			r.Get("/analytics/stories", s.handleUserAnalytics)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/stats", s.handleStats)
				r.Get("/users", s.handleAdminUsers)
				r.Get("/users/{userID}/analytics", s.handleAdminUserAnalytics)
				r.Get("/stories", s.handleAdminStories)
				r.Delete("/stories/{storyID}", s.handleAdminDeleteStory)
			})
		})
	})

	s.router = r
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the scheduler and serves until the listener fails.
func (s *Server) Start(addr string) error {
	if s.scheduler != nil {
		s.scheduler.Start()
	}
	s.log.WithField("addr", addr).Info("server starting")
	return http.ListenAndServe(addr, s.router)
}

// Stop stops the scheduler.
func (s *Server) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok", "database": s.store.DatabaseType()})
}

// handleAdScript serves the cached ad library script, initializing the
// registry on first use. Missing script degrades to 404, never an error.
func (s *Server) handleAdScript(w http.ResponseWriter, r *http.Request) {
	if s.gpt == nil {
		http.NotFound(w, r)
		return
	}
	_ = s.registry.Initialize(r.Context())
	script := s.gpt.Script()
	if len(script) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Write(script)
}

// --- Middleware ---

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request processed")
	})
}

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snappy_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snappy_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	m.registry.MustRegister(m.requests, m.duration)
	return m
}

func (m *metrics) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		m.requests.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		m.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// --- Helpers ---

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}

// storeError maps storage failures onto HTTP statuses, logging the detail.
func (s *Server) storeError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, database.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.WithError(err).Error(op)
	s.respondError(w, http.StatusInternalServerError, "internal error")
}

// loadOwnedStory fetches the story and enforces owner-or-admin access.
func (s *Server) loadOwnedStory(w http.ResponseWriter, r *http.Request) (*model.Story, *model.User, bool) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil, false
	}
	story, err := s.store.GetStory(chi.URLParam(r, "storyID"))
	if err != nil {
		s.storeError(w, err, "get story")
		return nil, nil, false
	}
	if story.UserID != u.ID && u.Role != model.RoleAdmin {
		s.respondError(w, http.StatusForbidden, "not your story")
		return nil, nil, false
	}
	return story, u, true
}
