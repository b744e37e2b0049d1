package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/studrail/trackforge/pkg/cache"
	"github.com/studrail/trackforge/pkg/errors"
	"github.com/studrail/trackforge/pkg/observability"
	"github.com/studrail/trackforge/pkg/scad"
)

// Runner executes batches with fingerprint caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store batch results. Multiple goroutines can safely use the same Runner
// with different options, though each batch itself runs sequentially.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// JobResult is the recorded outcome of one render job.
type JobResult struct {
	Radius   int           `json:"radius"`
	Config   string        `json:"config"`
	Angle    float64       `json:"angle"`
	Density  int           `json:"density,omitempty"`
	Output   string        `json:"output"`
	OK       bool          `json:"ok"`
	Cached   bool          `json:"cached,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Stats aggregates a batch run.
type Stats struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Cached    int           `json:"cached"`
	Duration  time.Duration `json:"duration"`
}

// Result contains the outputs of a batch run.
type Result struct {
	// RunID identifies this run in status output and event streams.
	RunID string `json:"run_id"`

	// Jobs holds one entry per (radius, configuration) pair, in order.
	Jobs []JobResult `json:"jobs"`

	// Stats aggregates the job outcomes.
	Stats Stats `json:"stats"`
}

// Failed reports whether any job in the run failed.
func (r *Result) Failed() bool {
	return r.Stats.Failed > 0
}

// FailedRadii returns the radii with at least one failed job, ascending.
func (r *Result) FailedRadii() []int {
	seen := make(map[int]bool)
	for _, j := range r.Jobs {
		if !j.OK {
			seen[j.Radius] = true
		}
	}
	radii := make([]int, 0, len(seen))
	for radius := range seen {
		radii = append(radii, radius)
	}
	sort.Ints(radii)
	return radii
}

// Err returns a JOBS_FAILED error summarizing the run, or nil on full success.
// CLI commands return this so the process exits nonzero on partial failure.
func (r *Result) Err() error {
	if !r.Failed() {
		return nil
	}
	return errors.New(errors.ErrCodeJobsFailed, "%d of %d jobs failed", r.Stats.Failed, r.Stats.Total)
}

// fingerprint is the cached record of a successful render.
type fingerprint struct {
	Output     string    `json:"output"`
	RenderedAt time.Time `json:"rendered_at"`
	RunID      string    `json:"run_id"`
}

// Execute runs the batch: preflight, then every radius × configuration
// pair in order. Render failures and timeouts are recorded in the result;
// the returned error is reserved for fatal conditions (bad options, missing
// renderer or scene, cancellation).
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	renderer := &scad.Renderer{
		Binary:  opts.Binary,
		Scene:   opts.Scene,
		Timeout: opts.Timeout,
	}
	if err := renderer.Preflight(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create output dir %s", opts.OutputDir)
	}

	// The scene content hash keys the fingerprint cache: editing the
	// geometry invalidates every cached job.
	sceneData, err := os.ReadFile(opts.Scene)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSceneNotFound, err, "read scene %s", opts.Scene)
	}
	sceneHash := cache.Hash(sceneData)

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	result := &Result{
		RunID: runID,
		Jobs:  make([]JobResult, 0, opts.JobCount()),
	}
	result.Stats.Total = opts.JobCount()

	start := time.Now()
	observability.Jobs().OnBatchStart(ctx, result.RunID, result.Stats.Total)
	logger.Infof("Starting run %s: %d radii × %d configs = %d jobs",
		result.RunID, len(opts.Radii), len(opts.Configs), result.Stats.Total)

	for _, radius := range opts.Radii {
		for _, cfg := range opts.Configs {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			job, err := r.buildJob(opts, radius, cfg)
			if err != nil {
				return nil, err
			}
			jr := r.runJob(ctx, renderer, opts, sceneHash, job)
			result.record(jr)
			if opts.Notify != nil {
				opts.Notify(jr)
			}
		}
	}

	result.Stats.Duration = time.Since(start)
	observability.Jobs().OnBatchComplete(ctx, result.RunID,
		result.Stats.Succeeded, result.Stats.Failed, result.Stats.Duration)

	logger.Infof("Run %s finished: %d succeeded (%d cached), %d failed (%s)",
		result.RunID, result.Stats.Succeeded, result.Stats.Cached,
		result.Stats.Failed, result.Stats.Duration.Round(time.Millisecond))
	return result, nil
}

// buildJob resolves the per-radius parameters into a concrete render job.
func (r *Runner) buildJob(opts Options, radius int, cfg scad.Config) (scad.Job, error) {
	density, err := opts.densityFor(radius)
	if err != nil {
		return scad.Job{}, err
	}
	return scad.Job{
		Radius:  radius,
		Angle:   opts.angleFor(radius),
		Density: density,
		Config:  cfg,
		Output:  filepath.Join(opts.OutputDir, scad.OutputName(radius, cfg)),
	}, nil
}

// runJob executes one job, consulting and updating the fingerprint cache.
// All failure modes end up recorded on the JobResult; nothing here aborts
// the batch.
func (r *Runner) runJob(ctx context.Context, renderer *scad.Renderer, opts Options, sceneHash string, job scad.Job) JobResult {
	logger := opts.Logger

	jr := JobResult{
		Radius:  job.Radius,
		Config:  job.Config.Name,
		Angle:   job.Angle,
		Density: job.Density,
		Output:  job.Output,
	}

	key := r.Keyer.JobKey(sceneHash, cache.JobKeyOpts{
		Radius:  job.Radius,
		Angle:   job.Angle,
		Density: job.Density,
		Config:  job.Config.Name,
	})

	if !opts.Refresh && r.cachedOutputExists(ctx, logger, key, job.Output) {
		observability.Jobs().OnJobCached(ctx, job.Radius, job.Config.Name)
		logger.Debugf("%s: cached, skipping render", job.Name())
		jr.OK = true
		jr.Cached = true
		return jr
	}

	observability.Jobs().OnJobStart(ctx, job.Radius, job.Config.Name)
	logger.Debugf("%s: rendering to %s", job.Name(), job.Output)

	start := time.Now()
	err := renderer.Render(ctx, job)
	jr.Duration = time.Since(start)
	observability.Jobs().OnJobComplete(ctx, job.Radius, job.Config.Name, jr.Duration, err)

	if err != nil {
		jr.Error = errors.UserMessage(err)
		logger.Errorf("%s: %s", job.Name(), jr.Error)
		return jr
	}

	jr.OK = true
	r.storeFingerprint(ctx, logger, key, job.Output)
	return jr
}

// cachedOutputExists reports whether the job fingerprint is cached and its
// recorded output file is still on disk. Backend errors, corrupt entries,
// and stale entries (file deleted, different destination) all count as a
// miss so hit and miss tallies stay complementary.
func (r *Runner) cachedOutputExists(ctx context.Context, logger *log.Logger, key, output string) bool {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		logger.Debugf("cache get: %v", err)
		observability.Cache().OnCacheMiss(ctx, "job")
		return false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "job")
		return false
	}

	var fp fingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		observability.Cache().OnCacheMiss(ctx, "job")
		return false
	}
	if fp.Output != output {
		// Same parameters, different destination: render again.
		observability.Cache().OnCacheMiss(ctx, "job")
		return false
	}
	if _, err := os.Stat(output); err != nil {
		observability.Cache().OnCacheMiss(ctx, "job")
		return false
	}

	observability.Cache().OnCacheHit(ctx, "job")
	return true
}

// storeFingerprint records a successful render. Cache write failures are
// logged and ignored; the STL file is already on disk.
func (r *Runner) storeFingerprint(ctx context.Context, logger *log.Logger, key, output string) {
	data, err := json.Marshal(fingerprint{
		Output:     output,
		RenderedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.DefaultTTL); err != nil {
		logger.Debugf("cache set: %v", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "job", len(data))
}

// record appends a job result and updates the tallies.
func (r *Result) record(jr JobResult) {
	r.Jobs = append(r.Jobs, jr)
	if jr.OK {
		r.Stats.Succeeded++
		if jr.Cached {
			r.Stats.Cached++
		}
	} else {
		r.Stats.Failed++
	}
}
