// Package api serves the timeline views and source management over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/antigravity-dev/beadsmap/internal/beads"
	"github.com/antigravity-dev/beadsmap/internal/config"
	"github.com/antigravity-dev/beadsmap/internal/layout"
	"github.com/antigravity-dev/beadsmap/internal/milestone"
	"github.com/antigravity-dev/beadsmap/internal/store"
	"github.com/antigravity-dev/beadsmap/internal/timeline"
)

const maxImportBytes = 32 << 20

// Server is the HTTP API server.
type Server struct {
	cfg        *config.Manager
	store      *store.Store
	logger     *slog.Logger
	startTime  time.Time
	now        func() time.Time
	httpServer *http.Server
	auth       *AuthMiddleware
	maxImport  int64
}

// NewServer creates a new API server.
func NewServer(cfg *config.Manager, s *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")
	return &Server{
		cfg:       cfg,
		store:     s,
		logger:    logger,
		startTime: time.Now(),
		now:       time.Now,
		auth:      NewAuthMiddleware(cfg, logger),
		maxImport: maxImportBytes,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/sources", func(r chi.Router) {
		r.Get("/", s.handleListSources)
		r.Get("/{key}/export", s.handleExportSource)
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAuth)
			r.Post("/", s.handleImportSource)
			r.Delete("/{key}", s.handleDeleteSource)
		})
	})
	r.Get("/export", s.handleExport)

	r.Get("/timeline", s.handleTimeline)
	r.Get("/milestones", s.handleMilestones)
	r.Get("/critical-path", s.handleCriticalPath)
	r.Get("/order", s.handleOrder)

	return r
}

// Start begins listening on the configured bind address. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	bind := s.cfg.Get().API.Bind
	s.httpServer = &http.Server{
		Addr:              bind,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "bind", bind)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start).String(),
		)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSONL(w http.ResponseWriter, issues []beads.Issue) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	beads.WriteJSONL(w, issues)
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"healthy":  true,
		"uptime_s": time.Since(s.startTime).Seconds(),
	}
	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		resp["healthy"] = false
		resp["error"] = err.Error()
		json.NewEncoder(w).Encode(resp)
		return
	}
	resp["sources"] = len(sources)
	writeJSON(w, resp)
}

// GET /sources
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, sources)
}

// POST /sources?key=&label=
func (s *Server) handleImportSource(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		key = beads.FileSourceKey()
	}
	label := strings.TrimSpace(r.URL.Query().Get("label"))
	if label == "" {
		label = key
	}

	issues, err := beads.ParseJSONL(http.MaxBytesReader(w, r.Body, s.maxImport), s.now())
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	src := beads.Source{Key: key, Label: label, Issues: issues}
	if err := s.store.PutSource(r.Context(), src); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("source imported", "source", key, "issues", len(issues))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"key":         key,
		"label":       label,
		"issue_count": len(issues),
	})
}

// GET /sources/{key}/export
func (s *Server) handleExportSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.store.GetSource(r.Context(), chi.URLParam(r, "key"), s.now())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSONL(w, src.Issues)
}

// DELETE /sources/{key}
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	err := s.store.DeleteSource(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("source removed", "source", key)
	w.WriteHeader(http.StatusNoContent)
}

// GET /export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	issues, err := s.store.Issues(r.Context(), s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSONL(w, issues)
}

// GET /timeline
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, snap)
}

// GET /milestones
func (s *Server) handleMilestones(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, snap.Milestones)
}

// GET /critical-path
func (s *Server) handleCriticalPath(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, snap.CriticalPath)
}

// GET /order
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{"order": snap.Order})
}

// snapshot computes the timeline for the request, writing an error response
// and returning false when the query is invalid or the store fails.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (timeline.Snapshot, bool) {
	now := s.now()
	vp, opts, err := s.viewOptions(r, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return timeline.Snapshot{}, false
	}
	issues, err := s.store.Issues(r.Context(), now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return timeline.Snapshot{}, false
	}
	return timeline.Compute(issues, vp, opts), true
}

func (s *Server) viewOptions(r *http.Request, now time.Time) (layout.Viewport, timeline.Options, error) {
	cfg := s.cfg.Get()
	q := r.URL.Query()

	vp := layout.NewViewport(now, cfg.Viewport.DaysBefore, cfg.Viewport.DaysAhead, cfg.Viewport.PixelsPerDay)
	opts := timeline.Options{
		Now:               now,
		RecentCloseWindow: cfg.Timeline.RecentCloseWindow.Duration,
		IncludeAllClosed:  cfg.Timeline.IncludeAllClosed,
		Collapsed:         milestone.NewCollapsedSet(cfg.Timeline.Collapsed...),
		Logger:            s.logger,
	}

	if v := q.Get("start"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return vp, opts, fmt.Errorf("invalid start: %w", err)
		}
		vp.StartDate = t
	}
	if v := q.Get("end"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return vp, opts, fmt.Errorf("invalid end: %w", err)
		}
		vp.EndDate = t
	}
	if !vp.EndDate.After(vp.StartDate) {
		return vp, opts, fmt.Errorf("end must be after start")
	}
	if v := q.Get("ppd"); v != "" {
		ppd, err := strconv.ParseFloat(v, 64)
		if err != nil || ppd < layout.MinPixelsPerDay || ppd > layout.MaxPixelsPerDay {
			return vp, opts, fmt.Errorf("ppd must be a number in [%d, %d]", layout.MinPixelsPerDay, layout.MaxPixelsPerDay)
		}
		vp.PixelsPerDay = ppd
	}
	if q.Has("collapsed") {
		opts.Collapsed = milestone.NewCollapsedSet(splitCSV(q.Get("collapsed"))...)
	}
	if v := q.Get("all"); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			return vp, opts, fmt.Errorf("invalid all: %w", err)
		}
		opts.IncludeAllClosed = all
	}
	return vp, opts, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
