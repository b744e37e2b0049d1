package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/studrail/trackforge/pkg/batch"
	"github.com/studrail/trackforge/pkg/metrics"
	"github.com/studrail/trackforge/pkg/params"
	"github.com/studrail/trackforge/pkg/profile"
	"github.com/studrail/trackforge/pkg/scad"

	"github.com/studrail/trackforge/internal/server"
)

// defaultBatchTimeout is the per-job timeout for full sweeps. Wider than
// the generate default because the sweep includes the slow large radii.
const defaultBatchTimeout = 10 * time.Minute

// batchOpts holds the command-line flags for the batch command.
type batchOpts struct {
	outputDir string        // output directory for STL files
	scene     string        // path to the scene file
	profile   string        // optional TOML sweep profile
	listen    string        // status server address; empty disables it
	timeout   time.Duration // per-job timeout
	dryRun    bool          // print the parameter table without rendering
	noCache   bool          // disable the fingerprint cache
	refresh   bool          // ignore cached fingerprints, force re-render
	binary    string        // renderer executable override
}

// batchCommand creates the batch command for the full radius sweep.
//
// Default settings:
//   - radii: the standard R24–R120 table (13 values)
//   - angle and density: derived per radius
//   - configurations: all four variants
//   - timeout: 10 minutes per job
func (c *CLI) batchCommand() *cobra.Command {
	opts := batchOpts{
		scene:   defaultScene,
		timeout: defaultBatchTimeout,
	}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Sweep the full radius table (R24–R120)",
		Long: `Render the full standard sweep: every radius from R24 to R120 through
every output configuration, with the segment angle and sleeper density
derived per radius.

A TOML profile can override the radius list, angle map, density curve or
formula, configuration subset, and timeout. With --listen, a status server
exposes the run (health, JSON status, Prometheus metrics, SSE job events)
for the duration of the sweep.`,
		Example: `  # Show the derived parameter table without rendering
  trackforge batch --dry-run

  # Full sweep into ./stl
  trackforge batch -o stl

  # Custom sweep with a live status endpoint
  trackforge batch --profile small-printer.toml --listen :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "output directory for STL files (default: current directory)")
	cmd.Flags().StringVarP(&opts.scene, "scene", "s", opts.scene, "path to the scene file")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "TOML sweep profile overriding the built-in table")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "serve run status on this address (e.g. :8080)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "per-job render timeout")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the derived parameter table without rendering")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render fingerprint cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when a cached fingerprint exists")
	cmd.Flags().StringVar(&opts.binary, "binary", "", "renderer executable (default: openscad on PATH)")

	return cmd
}

// runBatch resolves the sweep (built-in table or profile), handles dry-run,
// and drives the runner, optionally with the status server attached.
func (c *CLI) runBatch(ctx context.Context, opts *batchOpts) error {
	logger := loggerFromContext(ctx)

	var prof *profile.Profile
	if opts.profile != "" {
		p, err := profile.Load(opts.profile)
		if err != nil {
			return err
		}
		prof = p
		logger.Debugf("Loaded profile %s", opts.profile)
	}

	rows, configs, err := sweepPlan(prof)
	if err != nil {
		return err
	}

	if opts.dryRun {
		printSweepTable(rows, configs)
		return nil
	}

	radii := make([]int, len(rows))
	for i, row := range rows {
		radii[i] = row.Radius
	}

	batchOpts := batch.Options{
		RunID:         uuid.NewString(),
		Radii:         radii,
		Configs:       configs,
		DeriveDensity: true,
		OutputDir:     opts.outputDir,
		Scene:         opts.scene,
		Binary:        opts.binary,
		Timeout:       opts.timeout,
		Refresh:       opts.refresh,
		Profile:       prof,
		Logger:        logger,
	}
	if err := batchOpts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	printInfo("Sweeping %d radii × %d configs = %d jobs", len(radii), len(configs), batchOpts.JobCount())
	printDetail("Output: %s", batchOpts.OutputDir)

	if opts.listen != "" {
		metrics.Register()
		srv := server.New(opts.listen, logger)
		srv.BeginRun(batchOpts.RunID, batchOpts.JobCount())
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		batchOpts.Notify = srv.Notify
	}

	runner := c.newRunner(ctx, opts.noCache)
	defer runner.Cache.Close()

	track := newProgress(logger)
	result, err := runner.Execute(ctx, batchOpts)
	if err != nil {
		return err
	}
	track.done(fmt.Sprintf("Rendered %d files", result.Stats.Succeeded))

	printBatchReport(result)
	return result.Err()
}

// sweepPlan resolves the parameter rows and configuration list for a sweep.
func sweepPlan(prof *profile.Profile) ([]params.Row, []scad.Config, error) {
	if prof == nil {
		return params.Table(), scad.Configurations, nil
	}
	rows, err := prof.Rows()
	if err != nil {
		return nil, nil, err
	}
	configs, err := prof.SweepConfigs()
	if err != nil {
		return nil, nil, err
	}
	return rows, configs, nil
}

// printSweepTable prints the derived parameter table for dry runs.
func printSweepTable(rows []params.Row, configs []scad.Config) {
	names := make([]string, len(configs))
	for i, cfg := range configs {
		names[i] = cfg.Name
	}

	fmt.Println(StyleTitle.Render("Sweep plan"))
	printNewline()

	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{
			"R" + strconv.Itoa(row.Radius),
			strconv.FormatFloat(row.Angle, 'f', -1, 64) + "°",
			strconv.Itoa(row.Density),
			strings.Join(names, ", "),
		})
	}
	fmt.Println(renderSweepTable(tableRows))

	printNewline()
	printDetail("Total: %d radii × %d configs = %d STL files",
		len(rows), len(configs), len(rows)*len(configs))
}

// printBatchReport prints the end-of-sweep summary with failed radii.
func printBatchReport(result *batch.Result) {
	printNewline()
	s := result.Stats
	if result.Failed() {
		printError("Sweep incomplete: %d of %d files generated", s.Succeeded, s.Total)
		failed := result.FailedRadii()
		labels := make([]string, len(failed))
		for i, r := range failed {
			labels[i] = "R" + strconv.Itoa(r)
		}
		printDetail("Failed radii: %s", strings.Join(labels, ", "))
	} else {
		printSuccess("All %d files generated", s.Succeeded)
	}
	printRunStats(s.Succeeded, s.Failed, s.Cached, s.Total)
	printDetail("Run ID: %s", result.RunID)
}
