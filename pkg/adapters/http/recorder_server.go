package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/simgym/internal/logging"
	"github.com/aretw0/simgym/pkg/domain"
	"github.com/aretw0/simgym/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder endpoints.
const (
	ExperiencePath = "/experience"
	EpisodeEndPath = "/episode_end"
	StatusPath     = "/status"
	EpisodePath    = "/episode"
	HealthPath     = "/healthz"
	MetricsPath    = "/metrics"
)

// maxExperienceSize caps a single posted experience record.
const maxExperienceSize = 1 << 20

// RecorderServer exposes a session.Recorder over HTTP.
type RecorderServer struct {
	Recorder *session.Recorder
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// ServerOption configures the RecorderServer.
type ServerOption func(*RecorderServer)

// WithGatherer serves the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *RecorderServer) {
		s.gatherer = g
	}
}

// WithServerLogger configures the request logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *RecorderServer) {
		s.logger = logger
	}
}

// EpisodeEndResponse is the reply of POST /episode_end.
type EpisodeEndResponse struct {
	Episode int `json:"episode"`
}

// NewRecorderHandler creates the HTTP handler for the recorder.
func NewRecorderHandler(rec *session.Recorder, opts ...ServerOption) http.Handler {
	server := &RecorderServer{
		Recorder: rec,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post(ExperiencePath, server.RecordExperience)
	r.Post(EpisodeEndPath, server.EndEpisode)
	r.Get(StatusPath, server.GetStatus)
	r.Put(EpisodePath, server.SetEpisode)
	r.Get("/episodes/{episode}", server.GetEpisode)
	r.Get(HealthPath, server.GetHealth)
	if server.gatherer != nil {
		r.Handle(MetricsPath, promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// RecordExperience handles POST /experience.
func (s *RecorderServer) RecordExperience(w http.ResponseWriter, r *http.Request) {
	var exp domain.Experience
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExperienceSize)).Decode(&exp); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("RecordExperience: Invalid request body", "err", err)
		return
	}

	n := s.Recorder.Record(exp)
	writeJSON(w, s.logger, http.StatusAccepted, map[string]int{"buffered": n})
}

// EndEpisode handles POST /episode_end.
func (s *RecorderServer) EndEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := s.Recorder.EndEpisode(r.Context())
	if err != nil {
		http.Error(w, "Failed to save episode", http.StatusInternalServerError)
		s.logger.Error("EndEpisode failed", "err", err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, EpisodeEndResponse{Episode: episode})
}

// GetStatus handles GET /status.
func (s *RecorderServer) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.Recorder.Snapshot())
}

// SetEpisode handles PUT /episode, moving the counter to {"episode": N}.
func (s *RecorderServer) SetEpisode(w http.ResponseWriter, r *http.Request) {
	var req EpisodeEndResponse
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExperienceSize)).Decode(&req); err != nil || req.Episode < 1 {
		http.Error(w, "Invalid episode number", http.StatusBadRequest)
		return
	}
	s.Recorder.SetEpisode(req.Episode)
	s.logger.Info("Episode counter set", "episode", req.Episode)
	writeJSON(w, s.logger, http.StatusOK, s.Recorder.Snapshot())
}

// GetEpisode handles GET /episodes/{episode}.
func (s *RecorderServer) GetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := strconv.Atoi(chi.URLParam(r, "episode"))
	if err != nil {
		http.Error(w, "Invalid episode number", http.StatusBadRequest)
		return
	}

	records, err := s.Recorder.Store().Load(r.Context(), episode)
	if err != nil {
		if errors.Is(err, domain.ErrEpisodeNotFound) {
			http.Error(w, "Episode not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load episode", http.StatusInternalServerError)
		s.logger.Error("GetEpisode failed", "episode", episode, "err", err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, records)
}

// GetHealth handles GET /healthz.
func (s *RecorderServer) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}
