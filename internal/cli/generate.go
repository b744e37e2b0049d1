package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studrail/trackforge/pkg/batch"
	"github.com/studrail/trackforge/pkg/scad"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	radii     []int         // curve radii in studs
	angle     float64       // segment angle override; 0 derives per radius
	config    string        // single configuration name; empty renders all four
	outputDir string        // output directory for STL files
	scene     string        // path to the scene file
	density   int           // sleeper-density override; 0 leaves the scene default
	binary    string        // renderer executable override
	timeout   time.Duration // per-job timeout
	noCache   bool          // disable the fingerprint cache
	refresh   bool          // ignore cached fingerprints, force re-render
}

// generateCommand creates the generate command for rendering specific radii.
//
// Default settings:
//   - angle: derived per radius from the standard table (22.5 off-table)
//   - configurations: all four variants
//   - density: scene default unless -d is given
//   - timeout: 5 minutes per job
func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOpts{
		scene:   defaultScene,
		timeout: scad.DefaultTimeout,
	}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render STL files for one or more radii",
		Long: `Render STL files for specific curve radii.

Each radius is rendered through every output configuration (or a single one
with -c). Without -r on a terminal, an interactive picker shows the standard
radius table.`,
		Example: `  # All four configurations for R40 at the table angle
  trackforge generate -r 40

  # Multiple radii with an explicit angle
  trackforge generate -r 24 -r 32 -r 40 -a 22.5

  # A single configuration with a density override
  trackforge generate -r 40 -c ballast -d 968`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), &opts)
		},
	}

	cmd.Flags().IntSliceVarP(&opts.radii, "radius", "r", nil, "curve radius in studs (repeatable)")
	cmd.Flags().Float64VarP(&opts.angle, "angle", "a", 0, "segment angle in degrees (default: derived per radius)")
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "single configuration to render (default: all four)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "output directory for STL files (default: current directory)")
	cmd.Flags().StringVarP(&opts.scene, "scene", "s", opts.scene, "path to the scene file")
	cmd.Flags().IntVarP(&opts.density, "density", "d", 0, "sleeper density control (default: scene default)")
	cmd.Flags().StringVar(&opts.binary, "binary", "", "renderer executable (default: openscad on PATH)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "per-job render timeout")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render fingerprint cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when a cached fingerprint exists")

	_ = cmd.RegisterFlagCompletionFunc("config", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return scad.ConfigNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// runGenerate resolves the radius list (interactively if needed), runs the
// batch, and prints per-job lines plus a summary. A partial failure surfaces
// as a nonzero exit via the returned error.
func (c *CLI) runGenerate(ctx context.Context, opts *generateOpts) error {
	logger := loggerFromContext(ctx)

	radii := opts.radii
	if len(radii) == 0 {
		picked, err := pickRadii()
		if err != nil {
			return fmt.Errorf("at least one radius is required (-r): %w", err)
		}
		if len(picked) == 0 {
			printInfo("No radii selected")
			return nil
		}
		radii = picked
	}

	var configs []scad.Config
	if opts.config != "" {
		cfg, err := scad.ConfigFor(opts.config)
		if err != nil {
			return err
		}
		configs = []scad.Config{cfg}
	}

	batchOpts := batch.Options{
		Radii:     radii,
		Configs:   configs,
		Angle:     opts.angle,
		Density:   opts.density,
		OutputDir: opts.outputDir,
		Scene:     opts.scene,
		Binary:    opts.binary,
		Timeout:   opts.timeout,
		Refresh:   opts.refresh,
		Logger:    logger,
	}
	if err := batchOpts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner := c.newRunner(ctx, opts.noCache)
	defer runner.Cache.Close()

	spin := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %d jobs...", batchOpts.JobCount()))
	done := 0
	batchOpts.Notify = func(jr batch.JobResult) {
		done++
		spin.SetMessage(fmt.Sprintf("Rendered %d/%d (last: r%d_%s)", done, batchOpts.JobCount(), jr.Radius, jr.Config))
	}
	spin.Start()

	result, err := runner.Execute(ctx, batchOpts)
	spin.Stop()
	if err != nil {
		return err
	}

	printGenerateReport(result)
	return result.Err()
}

// printGenerateReport prints one line per job, the produced files, and totals.
func printGenerateReport(result *batch.Result) {
	printNewline()
	for _, j := range result.Jobs {
		printJobLine(fmt.Sprintf("r%d_%s", j.Radius, j.Config), j.OK, j.Cached)
		if j.OK {
			printFile(j.Output)
		} else {
			printDetail("%s", j.Error)
		}
	}

	printNewline()
	s := result.Stats
	if result.Failed() {
		printError("Generated %d of %d files", s.Succeeded, s.Total)
	} else {
		printSuccess("Generated %d files", s.Succeeded)
	}
	printRunStats(s.Succeeded, s.Failed, s.Cached, s.Total)
}
