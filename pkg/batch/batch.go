// Package batch provides the sequential render loop for TrackForge.
//
// This package implements the resolve-parameters → render → tally loop that
// both the generate and batch commands share. By centralizing this logic,
// we ensure consistent caching, preflight, and failure semantics across
// entry points.
//
// # Architecture
//
// A batch is the cross product of a radius list and a configuration list.
// Jobs run strictly one at a time; a failed or timed-out job is recorded
// and the loop continues. Only a missing renderer or scene file aborts a
// run before it starts.
//
// # Usage
//
// Create a Runner and execute a batch:
//
//	runner := batch.NewRunner(cache, nil, logger)
//	opts := batch.Options{
//	    Radii: []int{40, 48},
//	    Scene: "curves.scad",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if result.Failed() {
//	    os.Exit(1)
//	}
package batch

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/studrail/trackforge/pkg/errors"
	"github.com/studrail/trackforge/pkg/params"
	"github.com/studrail/trackforge/pkg/profile"
	"github.com/studrail/trackforge/pkg/scad"
)

// DefaultOutputDir is where STL files land when no directory is given.
const DefaultOutputDir = "."

// Options contains all configuration for a batch run.
type Options struct {
	// Radii to render. Required.
	Radii []int `json:"radii"`

	// Configs is the configuration subset. Empty means all four.
	Configs []scad.Config `json:"configs,omitempty"`

	// Angle forces one segment angle for every radius. Zero derives the
	// angle per radius from the standard table (or profile).
	Angle float64 `json:"angle,omitempty"`

	// Density forces one sleeper density for every radius. Zero means
	// derived (DeriveDensity) or left to the scene default.
	Density int `json:"density,omitempty"`

	// DeriveDensity derives the density per radius from the quadratic
	// curve (or profile formula) when no explicit Density is set. The
	// batch sweep sets this; plain generate leaves the scene default.
	DeriveDensity bool `json:"derive_density,omitempty"`

	// OutputDir receives the STL files. Defaults to the current directory.
	OutputDir string `json:"output_dir,omitempty"`

	// Scene is the path to the .scad scene file. Required.
	Scene string `json:"scene"`

	// Binary overrides the renderer executable. Empty means "openscad".
	Binary string `json:"binary,omitempty"`

	// Timeout bounds each render job. Zero means the renderer default.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Refresh skips cache reads, forcing every job to render.
	Refresh bool `json:"refresh,omitempty"`

	// RunID identifies the run in reports and event streams. Empty means
	// a fresh UUID is assigned when the batch starts.
	RunID string `json:"run_id,omitempty"`

	// Profile optionally overrides angles, densities, and timeout.
	Profile *profile.Profile `json:"-"`

	// Logger receives progress output. Defaults to a discarding logger.
	Logger *log.Logger `json:"-"`

	// Notify, if set, is called after every finished job with its result.
	// The status server uses this for live updates.
	Notify func(JobResult) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if len(o.Radii) == 0 {
		return errors.New(errors.ErrCodeInvalidRadius, "at least one radius is required")
	}
	for _, r := range o.Radii {
		if err := errors.ValidateRadius(r); err != nil {
			return err
		}
	}

	if o.Angle != 0 {
		if err := errors.ValidateAngle(o.Angle); err != nil {
			return err
		}
	}
	if o.Density != 0 {
		if err := errors.ValidateDensity(o.Density); err != nil {
			return err
		}
	}

	if o.Scene == "" {
		return errors.New(errors.ErrCodeSceneNotFound, "scene file is required")
	}
	if err := errors.ValidateOutputPath(o.Scene); err != nil {
		return err
	}

	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if err := errors.ValidateOutputPath(o.OutputDir); err != nil {
		return err
	}

	if len(o.Configs) == 0 {
		o.Configs = scad.Configurations
	}

	if o.Timeout == 0 && o.Profile != nil {
		o.Timeout = o.Profile.JobTimeout()
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// JobCount returns the number of jobs this batch will run.
func (o *Options) JobCount() int {
	return len(o.Radii) * len(o.Configs)
}

// angleFor resolves the segment angle for one radius.
// Precedence: explicit flag, profile, standard table, default angle.
func (o *Options) angleFor(radius int) float64 {
	if o.Angle != 0 {
		return o.Angle
	}
	if o.Profile != nil {
		return o.Profile.AngleFor(radius)
	}
	if a, err := params.AngleFor(radius); err == nil {
		return a
	}
	return params.DefaultAngle
}

// densityFor resolves the sleeper density for one radius.
// Precedence: explicit flag, profile, derived curve, scene default (0).
func (o *Options) densityFor(radius int) (int, error) {
	if o.Density != 0 {
		return o.Density, nil
	}
	if o.Profile != nil && o.DeriveDensity {
		return o.Profile.DensityFor(radius)
	}
	if o.DeriveDensity {
		return params.DensityFor(radius), nil
	}
	return 0, nil
}
