// Package scad invokes the OpenSCAD renderer to produce STL meshes.
//
// The scene file owns all geometry; this package only marshals named
// parameters onto an openscad command line, runs it with a timeout, and
// classifies the outcome. A render job is the combination of a radius,
// a segment angle, an optional sleeper-density override, and one of the
// fixed output configurations.
//
// # Usage
//
//	r := scad.NewRenderer("curves.scad")
//	if err := r.Preflight(); err != nil {
//	    return err // openscad missing or scene file not found
//	}
//	err := r.Render(ctx, scad.Job{
//	    Radius:  40,
//	    Angle:   18,
//	    Density: 968,
//	    Config:  scad.Configurations[0],
//	    Output:  "out/r40_ballast_and_buddy.stl",
//	})
package scad

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/studrail/trackforge/pkg/errors"
)

// DefaultBinary is the renderer executable resolved on PATH.
const DefaultBinary = "openscad"

// DefaultTimeout bounds a single render. Large radii at high sleeper
// density can take minutes; anything past this is treated as hung.
const DefaultTimeout = 5 * time.Minute

// Job describes one render: a parameter set and its output path.
type Job struct {
	Radius  int
	Angle   float64
	Density int // sleeper-density override; 0 leaves the scene default
	Config  Config
	Output  string
}

// Name returns the canonical job name, e.g. "r40_ballast".
func (j Job) Name() string {
	return fmt.Sprintf("r%d_%s", j.Radius, j.Config.Name)
}

// OutputName returns the output filename pattern for a radius and
// configuration: r<radius>_<config>.stl.
func OutputName(radius int, cfg Config) string {
	return fmt.Sprintf("r%d_%s.stl", radius, cfg.Name)
}

// Renderer runs openscad with per-job parameters.
type Renderer struct {
	// Binary is the openscad executable name or path.
	Binary string

	// Scene is the path to the .scad scene file.
	Scene string

	// Timeout bounds each render; zero means DefaultTimeout.
	Timeout time.Duration
}

// NewRenderer creates a renderer for the given scene file with defaults.
func NewRenderer(scene string) *Renderer {
	return &Renderer{
		Binary:  DefaultBinary,
		Scene:   scene,
		Timeout: DefaultTimeout,
	}
}

// Preflight verifies the renderer binary is on the execution path and the
// scene file exists. Both failures are fatal: no batch work should start
// without them.
func (r *Renderer) Preflight() error {
	if _, err := exec.LookPath(r.binary()); err != nil {
		return errors.Wrap(errors.ErrCodeToolNotFound, err,
			"%s not found on PATH (install from https://openscad.org/)", r.binary())
	}
	if _, err := os.Stat(r.Scene); err != nil {
		return errors.Wrap(errors.ErrCodeSceneNotFound, err, "scene file not found: %s", r.Scene)
	}
	return nil
}

// Args builds the openscad argument list for a job. Parameters are passed
// as -D name=value definitions consumed by the scene file; the density
// definition is only emitted when the job sets one.
func (r *Renderer) Args(job Job) []string {
	args := []string{
		"-D", "Radius=" + strconv.Itoa(job.Radius),
		"-D", "SegAng=" + formatAngle(job.Angle),
		"-D", "generate_track=" + strconv.FormatBool(job.Config.Track),
		"-D", "generate_ballast=" + strconv.FormatBool(job.Config.Ballast),
		"-D", "generate_ballast_buddy=" + strconv.FormatBool(job.Config.BallastBuddy),
	}
	if job.Density > 0 {
		args = append(args, "-D", "diverse="+strconv.Itoa(job.Density))
	}
	return append(args, "-o", job.Output, r.Scene)
}

// Render runs one job to completion. It returns nil on success, an error
// with code RENDER_TIMEOUT if the job exceeded the renderer timeout, and
// RENDER_FAILED (carrying captured stderr) for a nonzero exit. Callers
// record the error and continue; a render failure is never fatal to a batch.
func (r *Renderer) Render(ctx context.Context, job Job) error {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary(), r.Args(job)...)
	// openscad can fork helpers that inherit stderr; without a wait delay
	// a surviving child would keep Run blocked past the deadline.
	cmd.WaitDelay = time.Second

	var errBuf bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &errBuf

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return errors.New(errors.ErrCodeRenderTimeout,
			"%s exceeded %s timeout", job.Name(), timeout)
	}

	diag := strings.TrimSpace(errBuf.String())
	if diag == "" {
		diag = err.Error()
	}
	return errors.Wrap(errors.ErrCodeRenderFailed, err, "%s: %s", job.Name(), diag)
}

func (r *Renderer) binary() string {
	if r.Binary == "" {
		return DefaultBinary
	}
	return r.Binary
}

// formatAngle renders an angle without trailing zeros (22.5, 18, 11.25),
// matching what the scene file expects for SegAng.
func formatAngle(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}
