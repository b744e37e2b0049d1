// Package cli implements the trackforge command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/studrail/trackforge/pkg/batch"
	"github.com/studrail/trackforge/pkg/buildinfo"
	"github.com/studrail/trackforge/pkg/cache"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "trackforge"

	// defaultScene is the scene file looked up when -s is not given.
	defaultScene = "curves.scad"

	// redisAddrEnv selects the shared redis fingerprint cache when set.
	redisAddrEnv = "TRACKFORGE_REDIS_ADDR"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "trackforge",
		Short:        "Trackforge batch-renders model-train track segments to STL",
		Long:         `Trackforge sweeps printable track radii through OpenSCAD, deriving segment angles and sleeper densities per radius and rendering every output configuration to an STL mesh.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a batch runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) *batch.Runner {
	return batch.NewRunner(c.newCache(ctx, noCache), nil, c.Logger)
}

// newCache picks the fingerprint cache backend: disabled, shared redis when
// TRACKFORGE_REDIS_ADDR is set, or the local file cache. Backend failures
// degrade to NullCache; caching is never worth failing a render run over.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}

	if addr := os.Getenv(redisAddrEnv); addr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: addr})
		if err != nil {
			c.Logger.Warnf("redis cache unavailable (%v), falling back to file cache", err)
		} else {
			c.Logger.Debugf("Using redis fingerprint cache at %s", addr)
			return rc
		}
	}

	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/trackforge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
