// Package pkg provides the core libraries for TrackForge STL generation.
//
// # Overview
//
// TrackForge batch-renders printable model-train track segments by sweeping
// curve radii through OpenSCAD. The pkg directory is organized into four
// main areas:
//
//  1. [params] - The radius table and derived parameters (angle, density)
//  2. [scad] - The OpenSCAD subprocess layer (configurations, args, timeouts)
//  3. [batch] - The sequential render loop with fingerprint caching
//  4. [profile] - TOML sweep profiles overriding the built-in table
//
// # Architecture
//
// The typical data flow through TrackForge:
//
//	Radius list (flags, profile, or the standard R24–R120 table)
//	         ↓
//	    [params] package (derive segment angle + sleeper density)
//	         ↓
//	    [batch] package (radius × configuration job loop)
//	         ↓
//	    [scad] package (openscad -D … -o r<radius>_<config>.stl)
//	         ↓
//	    STL files + run report
//
// # Quick Start
//
// Render the standard sweep into a directory:
//
//	import (
//	    "context"
//	    "github.com/studrail/trackforge/pkg/batch"
//	    "github.com/studrail/trackforge/pkg/params"
//	)
//
//	runner := batch.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(context.Background(), batch.Options{
//	    Radii:         params.Radii,
//	    Scene:         "curves.scad",
//	    OutputDir:     "stl",
//	    DeriveDensity: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if result.Failed() {
//	    os.Exit(1)
//	}
//
// # Main Packages
//
// [params] - The standard radius table (R24–R120), the angle step mapping,
// the quadratic density curve, and expr-based custom density formulas.
//
// [scad] - Output configurations (which of track, ballast, and ballast buddy
// each STL contains), renderer preflight, argument construction, and the
// timeout-bounded subprocess call.
//
// [batch] - Options validation, the sequential job loop, per-job outcome
// recording, and run aggregation. A failed job never aborts the batch.
//
// [profile] - TOML profiles overriding radii, angles, the density curve or
// formula, the configuration subset, and the per-job timeout.
//
// # Infrastructure
//
// [cache] - Render fingerprint caching with file, redis, and null backends.
// A cached fingerprint whose STL is still on disk skips the render.
//
// [errors] - Structured errors with machine-readable codes and parameter
// validation.
//
// [observability] - Hook interfaces for job and cache events, with no-op
// defaults. [metrics] implements them on Prometheus collectors.
//
// [buildinfo] - Version metadata injected at build time via ldflags.
//
// [params]: https://pkg.go.dev/github.com/studrail/trackforge/pkg/params
// [scad]: https://pkg.go.dev/github.com/studrail/trackforge/pkg/scad
// [batch]: https://pkg.go.dev/github.com/studrail/trackforge/pkg/batch
// [profile]: https://pkg.go.dev/github.com/studrail/trackforge/pkg/profile
// [cache]: https://pkg.go.dev/github.com/studrail/trackforge/pkg/cache
// [errors]: https://pkg.go.dev/github.com/studrail/trackforge/pkg/errors
// [observability]: https://pkg.go.dev/github.com/studrail/trackforge/pkg/observability
// [metrics]: https://pkg.go.dev/github.com/studrail/trackforge/pkg/metrics
// [buildinfo]: https://pkg.go.dev/github.com/studrail/trackforge/pkg/buildinfo
package pkg
