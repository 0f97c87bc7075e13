// Package api exposes the HTTP interface for the catalog service. It is a
// thin facade: every scrape trigger runs asynchronously and answers 202,
// since partial progress is durable even when the caller's deadline cuts
// the run short.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medialib/internal/catalog"
	"medialib/internal/crawl"
	"medialib/internal/metrics"
)

// Config controls facade behavior.
type Config struct {
	AuthEnabled bool
	APIKey      string
	PageCap     int
	EnrichBatch int
}

// Server wires HTTP handlers to the store and the orchestrator.
type Server struct {
	router       chi.Router
	store        catalog.Store
	orchestrator *crawl.Orchestrator
	logger       *zap.Logger
	cfg          Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store catalog.Store, orchestrator *crawl.Orchestrator, logger *zap.Logger, cfg Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:        store,
		orchestrator: orchestrator,
		logger:       logger,
		cfg:          cfg,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	if cfg.AuthEnabled {
		r.Use(apiKeyMiddleware(cfg.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/studios", s.listStudios)
		r.Get("/studios/{id}/videos", s.listStudioVideos)
		r.Get("/videos", s.listVideos)
		r.Get("/videos/{id}", s.getVideo)
		r.Get("/stream/{id}", s.getStream)

		r.Route("/scrape", func(r chi.Router) {
			r.Post("/studios", s.scrapeStudios)
			r.Post("/videos/{id}", s.scrapeStudioVideos)
			r.Post("/enrich", s.scrapeEnrich)
			r.Post("/stop", s.scrapeStop)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListStudios(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listStudios(w http.ResponseWriter, r *http.Request) {
	studios, err := s.store.ListStudios(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch studios")
		return
	}
	writeJSON(w, http.StatusOK, studios)
}

func (s *Server) listStudioVideos(w http.ResponseWriter, r *http.Request) {
	studioURL, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	videos, err := s.store.ListVideos(r.Context(), catalog.VideoFilter{StudioURL: studioURL})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch videos")
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (s *Server) listVideos(w http.ResponseWriter, r *http.Request) {
	filter := catalog.VideoFilter{
		StudioURL:      r.URL.Query().Get("studio"),
		UnresolvedOnly: r.URL.Query().Get("unresolved") == "true",
	}
	videos, err := s.store.ListVideos(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch videos")
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (s *Server) getVideo(w http.ResponseWriter, r *http.Request) {
	videoURL, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	video, err := s.store.GetVideo(r.Context(), videoURL)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch video")
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (s *Server) getStream(w http.ResponseWriter, r *http.Request) {
	videoURL, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	video, err := s.store.GetVideo(r.Context(), videoURL)
	if errors.Is(err, catalog.ErrNotFound) || (err == nil && video.StreamingURL == "") {
		writeError(w, http.StatusNotFound, "video stream not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch video")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"streaming_url":   video.StreamingURL,
		"final_media_url": video.FinalMediaURL,
	})
}

func (s *Server) scrapeStudios(w http.ResponseWriter, _ *http.Request) {
	go func() {
		if _, err := s.orchestrator.DiscoverStudios(context.Background()); err != nil &&
			!errors.Is(err, catalog.ErrStopped) {
			s.logger.Error("studio discovery failed", zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted, may still be running"})
}

func (s *Server) scrapeStudioVideos(w http.ResponseWriter, r *http.Request) {
	studioURL, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		PageCap int `json:"page_cap"`
	}
	// Body is optional; a missing or invalid body falls back to the default cap.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.PageCap <= 0 {
		req.PageCap = s.cfg.PageCap
	}

	go func(pageCap int) {
		if _, err := s.orchestrator.CrawlStudio(context.Background(), studioURL, pageCap); err != nil &&
			!errors.Is(err, catalog.ErrStopped) {
			s.logger.Error("studio crawl failed", zap.String("studio", studioURL), zap.Error(err))
		}
	}(req.PageCap)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted, may still be running",
		"studio": studioURL,
	})
}

func (s *Server) scrapeEnrich(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchSize int `json:"batch_size"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.BatchSize <= 0 {
		req.BatchSize = s.cfg.EnrichBatch
	}

	go func(batch int) {
		if err := s.orchestrator.EnrichPendingVideos(context.Background(), batch); err != nil &&
			!errors.Is(err, catalog.ErrStopped) {
			s.logger.Error("enrichment sweep failed", zap.Error(err))
		}
	}(req.BatchSize)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted, may still be running"})
}

func (s *Server) scrapeStop(w http.ResponseWriter, _ *http.Request) {
	s.orchestrator.RequestStop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

// pathIdentity decodes the URL-escaped natural identity from the {id}
// path segment.
func pathIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "id")
	id, err := url.QueryUnescape(raw)
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, "invalid identity")
		return "", false
	}
	return id, true
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
