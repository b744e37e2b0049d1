// Package observability provides hooks for metrics and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about render jobs and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the batch runner dependency-free from observability frameworks
//   - Allows different backends (Prometheus, OpenTelemetry, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetJobHooks(&myJobHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Jobs().OnJobStart(ctx, radius, config)
//	// ... render ...
//	observability.Jobs().OnJobComplete(ctx, radius, config, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Job Hooks
// =============================================================================

// JobHooks receives events from the batch runner.
type JobHooks interface {
	// OnBatchStart records the start of a batch run with its total job count.
	OnBatchStart(ctx context.Context, runID string, totalJobs int)

	// OnBatchComplete records the end of a batch run.
	OnBatchComplete(ctx context.Context, runID string, succeeded, failed int, duration time.Duration)

	// OnJobStart records the start of one render job.
	OnJobStart(ctx context.Context, radius int, config string)

	// OnJobComplete records the outcome of one render job.
	// err is nil on success; timeouts and renderer failures carry an error.
	OnJobComplete(ctx context.Context, radius int, config string, duration time.Duration, err error)

	// OnJobCached records a job skipped because its fingerprint was cached.
	OnJobCached(ctx context.Context, radius int, config string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopJobHooks is a no-op implementation of JobHooks.
type NoopJobHooks struct{}

func (NoopJobHooks) OnBatchStart(context.Context, string, int)                           {}
func (NoopJobHooks) OnBatchComplete(context.Context, string, int, int, time.Duration)    {}
func (NoopJobHooks) OnJobStart(context.Context, int, string)                             {}
func (NoopJobHooks) OnJobComplete(context.Context, int, string, time.Duration, error)    {}
func (NoopJobHooks) OnJobCached(context.Context, int, string)                            {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	jobHooks   JobHooks   = NoopJobHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetJobHooks registers custom job hooks.
// This should be called once at application startup before any batch runs.
func SetJobHooks(h JobHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		jobHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Jobs returns the registered job hooks.
func Jobs() JobHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return jobHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	jobHooks = NoopJobHooks{}
	cacheHooks = NoopCacheHooks{}
}
