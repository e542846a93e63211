// Package api exposes the HTTP interface for the collector service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/collector"
	"github.com/rootsofthevalley/content-collector/internal/progress"
)

// JobCreator validates and persists a new collection job.
type JobCreator interface {
	CreateJob(ctx context.Context, destinationIDs []string, source, tier string) (collector.Job, error)
}

// Sweeper triggers a stale-destination collection sweep out of band.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Server wires HTTP handlers to the job service and stores.
type Server struct {
	router   chi.Router
	jobs     JobCreator
	jobStore collector.JobStore
	dests    collector.DestinationStore
	records  collector.RecordStore
	progress progress.Store
	sweeper  Sweeper
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The sweeper may
// be nil when scheduled collection is disabled.
func NewServer(
	jobs JobCreator,
	jobStore collector.JobStore,
	dests collector.DestinationStore,
	records collector.RecordStore,
	progressStore progress.Store,
	sweeper Sweeper,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		jobs:     jobs,
		jobStore: jobStore,
		dests:    dests,
		records:  records,
		progress: progressStore,
		sweeper:  sweeper,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.createJob)
			r.Get("/latest", s.getLatestJob)
			r.Get("/{job_id}", s.getJob)
		})
		r.Route("/destinations", func(r chi.Router) {
			r.Get("/", s.listDestinations)
			r.Route("/{destination_id}", func(r chi.Router) {
				r.Get("/progress", s.getProgress)
				r.Get("/news", s.listNews)
				r.Get("/events", s.listEvents)
			})
		})
		r.Post("/sweep", s.triggerSweep)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The job store is the hard dependency; a failing latest-job read means
	// the database is unreachable.
	if _, err := s.jobStore.LatestJob(r.Context()); err != nil && !isNotFound(err) {
		s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type createJobRequest struct {
	DestinationIDs []string `json:"destination_ids"`
	Source         string   `json:"source"`
	PriorityTier   string   `json:"priority_tier"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.DestinationIDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "destination_ids required")
		return
	}
	source := req.Source
	if source == "" {
		source = "api"
	}
	tier := req.PriorityTier
	if tier == "" {
		tier = "standard"
	}
	job, err := s.jobs.CreateJob(r.Context(), req.DestinationIDs, source, tier)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) getLatestJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobStore.LatestJob(r.Context())
	if err != nil {
		s.writeError(w, http.StatusNotFound, "no jobs yet")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) listDestinations(w http.ResponseWriter, r *http.Request) {
	dests, err := s.dests.ListDestinations(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list destinations")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"destinations": dests})
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	destinationID := chi.URLParam(r, "destination_id")
	snap, ok, err := s.progress.Snapshot(r.Context(), destinationID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read progress")
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "no progress recorded")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) listNews(w http.ResponseWriter, r *http.Request) {
	destinationID := chi.URLParam(r, "destination_id")
	news, err := s.records.ListNews(r.Context(), destinationID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list news")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"news": news})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	destinationID := chi.URLParam(r, "destination_id")
	events, err := s.records.ListEvents(r.Context(), destinationID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) triggerSweep(w http.ResponseWriter, r *http.Request) {
	if s.sweeper == nil {
		s.writeError(w, http.StatusNotFound, "scheduled collection disabled")
		return
	}
	if err := s.sweeper.Sweep(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "sweep started"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// isNotFound distinguishes "no jobs yet" from a store outage. Store
// implementations wrap their own sentinels, so the message is the common
// denominator.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no rows")
}
