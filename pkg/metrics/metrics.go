// Package metrics implements the observability hooks on Prometheus.
//
// Collectors are registered on the default registry via promauto and
// exposed by the status server's /metrics endpoint. The batch runner never
// imports this package; main wires it in through observability.SetJobHooks
// when the status server is enabled.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/studrail/trackforge/pkg/errors"
	"github.com/studrail/trackforge/pkg/observability"
)

var (
	// JobsTotal counts finished render jobs by outcome and configuration.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackforge_jobs_total",
		Help: "The total number of finished render jobs",
	}, []string{"status", "config"})

	// JobsInFlight tracks jobs currently running (0 or 1, the batch is
	// sequential).
	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trackforge_jobs_in_flight",
		Help: "The number of render jobs currently running",
	})

	// JobDuration observes render time per configuration. Buckets cover
	// seconds to the multi-minute range typical for large radii.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trackforge_job_duration_seconds",
		Help:    "Time spent rendering one job",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"config"})

	// CacheOps counts fingerprint cache hits, misses, and writes.
	CacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackforge_cache_ops_total",
		Help: "The total number of fingerprint cache operations",
	}, []string{"op", "key_type"})
)

// Job outcome labels for JobsTotal.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
	StatusCached  = "cached"
)

// Hooks implements observability.JobHooks and observability.CacheHooks
// on the collectors above.
type Hooks struct{}

// Register installs the Prometheus hooks in the global registry.
func Register() {
	h := &Hooks{}
	observability.SetJobHooks(h)
	observability.SetCacheHooks(h)
}

func (h *Hooks) OnBatchStart(ctx context.Context, runID string, totalJobs int) {}

func (h *Hooks) OnBatchComplete(ctx context.Context, runID string, succeeded, failed int, duration time.Duration) {
}

func (h *Hooks) OnJobStart(ctx context.Context, radius int, config string) {
	JobsInFlight.Inc()
}

func (h *Hooks) OnJobComplete(ctx context.Context, radius int, config string, duration time.Duration, err error) {
	JobsInFlight.Dec()
	JobDuration.WithLabelValues(config).Observe(duration.Seconds())
	JobsTotal.WithLabelValues(statusFor(err), config).Inc()
}

func (h *Hooks) OnJobCached(ctx context.Context, radius int, config string) {
	JobsTotal.WithLabelValues(StatusCached, config).Inc()
}

func (h *Hooks) OnCacheHit(ctx context.Context, keyType string) {
	CacheOps.WithLabelValues("hit", keyType).Inc()
}

func (h *Hooks) OnCacheMiss(ctx context.Context, keyType string) {
	CacheOps.WithLabelValues("miss", keyType).Inc()
}

func (h *Hooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	CacheOps.WithLabelValues("set", keyType).Inc()
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, errors.ErrCodeRenderTimeout):
		return StatusTimeout
	default:
		return StatusFailed
	}
}

// Ensure Hooks implements both hook interfaces.
var (
	_ observability.JobHooks   = (*Hooks)(nil)
	_ observability.CacheHooks = (*Hooks)(nil)
)
