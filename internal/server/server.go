// Package server implements the optional batch status server.
//
// When a batch runs with --listen, this server exposes the run over HTTP
// for dashboards and CI:
//
//	GET /healthz  liveness probe
//	GET /status   JSON snapshot of the current run
//	GET /metrics  Prometheus metrics
//	GET /events   SSE stream of job events (?stream=jobs)
//
// The server lives only for the duration of the batch and shuts down with
// its context.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/r3labs/sse/v2"

	"github.com/studrail/trackforge/pkg/batch"
)

// jobStream is the SSE stream name for job events.
const jobStream = "jobs"

// Status is the JSON snapshot served on /status.
type Status struct {
	RunID     string            `json:"run_id"`
	Total     int               `json:"total"`
	Done      int               `json:"done"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Cached    int               `json:"cached"`
	StartedAt time.Time         `json:"started_at"`
	Jobs      []batch.JobResult `json:"jobs"`
}

// Server tracks one batch run and serves it over HTTP.
type Server struct {
	logger *log.Logger
	events *sse.Server
	http   *http.Server

	mu     sync.Mutex
	status Status
}

// New creates a status server listening on addr.
func New(addr string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		logger: logger,
		events: sse.New(),
	}
	s.events.CreateStream(jobStream)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/events", s.events.ServeHTTP)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving in the background. Listen errors other than a clean
// shutdown are logged; a status server failure never fails the batch.
func (s *Server) Start() {
	s.logger.Infof("Status server listening on %s", s.http.Addr)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("status server: %v", err)
		}
	}()
}

// Shutdown stops the server and closes all event streams.
func (s *Server) Shutdown(ctx context.Context) {
	s.events.Close()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Debugf("status server shutdown: %v", err)
	}
}

// BeginRun resets the snapshot for a new batch run.
func (s *Server) BeginRun(runID string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{
		RunID:     runID,
		Total:     total,
		StartedAt: time.Now().UTC(),
		Jobs:      make([]batch.JobResult, 0, total),
	}
}

// Notify records a finished job and publishes it on the event stream.
// It is handed to batch.Options.Notify by the CLI.
func (s *Server) Notify(jr batch.JobResult) {
	s.mu.Lock()
	s.status.Jobs = append(s.status.Jobs, jr)
	s.status.Done++
	if jr.OK {
		s.status.Succeeded++
		if jr.Cached {
			s.status.Cached++
		}
	} else {
		s.status.Failed++
	}
	s.mu.Unlock()

	data, err := json.Marshal(jr)
	if err != nil {
		s.logger.Debugf("marshal job event: %v", err)
		return
	}
	s.events.TryPublish(jobStream, &sse.Event{
		Event: []byte("job"),
		Data:  data,
	})
}

// Snapshot returns a copy of the current run status.
func (s *Server) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.status
	snap.Jobs = append([]batch.JobResult(nil), s.status.Jobs...)
	return snap
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Debugf("encode status: %v", err)
	}
}
