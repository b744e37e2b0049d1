package batch

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/studrail/trackforge/pkg/cache"
	"github.com/studrail/trackforge/pkg/errors"
	"github.com/studrail/trackforge/pkg/observability"
)

// renderScript touches whatever file follows -o, standing in for openscad.
const renderScript = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
	if [ "$1" = "-o" ]; then
		out="$2"
	fi
	shift
done
: > "$out"
`

// failR48Script fails only for radius 48, so a sweep has a mix of outcomes.
const failR48Script = `#!/bin/sh
fail=0
out=""
while [ $# -gt 0 ]; do
	case "$1" in
	Radius=48) fail=1 ;;
	-o) out="$2" ;;
	esac
	shift
done
if [ "$fail" = "1" ]; then
	echo "mesh is not closed" >&2
	exit 1
fi
: > "$out"
`

func TestExecute(t *testing.T) {
	env := newTestEnv(t, renderScript)

	runner := NewRunner(nil, nil, testLogger())
	result, err := runner.Execute(context.Background(), env.options([]int{40}))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if result.RunID == "" {
		t.Error("Execute should assign a run ID")
	}

	want := Stats{Total: 4, Succeeded: 4}
	got := result.Stats
	got.Duration = 0
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}

	for _, name := range []string{
		"r40_ballast_and_buddy.stl",
		"r40_ballast.stl",
		"r40_track_ballast_and_buddy.stl",
		"r40_track_and_ballast.stl",
	} {
		if _, err := os.Stat(filepath.Join(env.outputDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	if result.Err() != nil {
		t.Errorf("Err() = %v on a clean run", result.Err())
	}
}

func TestExecuteFailureContinues(t *testing.T) {
	env := newTestEnv(t, failR48Script)

	var notified []JobResult
	opts := env.options([]int{40, 48, 56})
	opts.Notify = func(jr JobResult) { notified = append(notified, jr) }

	runner := NewRunner(nil, nil, testLogger())
	result, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	// 3 radii × 4 configs; every R48 job fails, the rest render.
	if result.Stats.Total != 12 || result.Stats.Succeeded != 8 || result.Stats.Failed != 4 {
		t.Errorf("Stats = %+v, want 12 total, 8 succeeded, 4 failed", result.Stats)
	}
	if diff := cmp.Diff([]int{48}, result.FailedRadii()); diff != "" {
		t.Errorf("FailedRadii mismatch (-want +got):\n%s", diff)
	}
	for _, j := range result.Jobs {
		if !j.OK && j.Error == "" {
			t.Errorf("failed job r%d_%s has no error message", j.Radius, j.Config)
		}
	}

	err = result.Err()
	if err == nil {
		t.Fatal("Err() should be non-nil after failures")
	}
	if !errors.Is(err, errors.ErrCodeJobsFailed) {
		t.Errorf("Err() code = %s, want JOBS_FAILED", errors.GetCode(err))
	}

	if len(notified) != 12 {
		t.Errorf("Notify called %d times, want 12", len(notified))
	}
}

func TestExecuteCachesSecondRun(t *testing.T) {
	env := newTestEnv(t, renderScript)

	fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, testLogger())

	first, err := runner.Execute(context.Background(), env.options([]int{40, 56}))
	if err != nil {
		t.Fatalf("first Execute error: %v", err)
	}
	if first.Stats.Cached != 0 {
		t.Errorf("first run Cached = %d, want 0", first.Stats.Cached)
	}

	second, err := runner.Execute(context.Background(), env.options([]int{40, 56}))
	if err != nil {
		t.Fatalf("second Execute error: %v", err)
	}
	if second.Stats.Cached != second.Stats.Total {
		t.Errorf("second run Cached = %d, want all %d", second.Stats.Cached, second.Stats.Total)
	}
	if second.Stats.Succeeded != second.Stats.Total {
		t.Errorf("cached jobs should count as succeeded: %+v", second.Stats)
	}

	t.Run("refresh forces render", func(t *testing.T) {
		opts := env.options([]int{40, 56})
		opts.Refresh = true
		third, err := runner.Execute(context.Background(), opts)
		if err != nil {
			t.Fatalf("Execute error: %v", err)
		}
		if third.Stats.Cached != 0 {
			t.Errorf("refresh run Cached = %d, want 0", third.Stats.Cached)
		}
	})

	t.Run("scene change invalidates", func(t *testing.T) {
		if err := os.WriteFile(env.scene, []byte("// edited geometry\n"), 0644); err != nil {
			t.Fatal(err)
		}
		fourth, err := runner.Execute(context.Background(), env.options([]int{40, 56}))
		if err != nil {
			t.Fatalf("Execute error: %v", err)
		}
		if fourth.Stats.Cached != 0 {
			t.Errorf("run after scene edit Cached = %d, want 0", fourth.Stats.Cached)
		}
	})
}

func TestExecuteDeletedOutputIsMiss(t *testing.T) {
	env := newTestEnv(t, renderScript)

	fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, testLogger())

	if _, err := runner.Execute(context.Background(), env.options([]int{40})); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(env.outputDir, "r40_ballast.stl")); err != nil {
		t.Fatal(err)
	}

	result, err := runner.Execute(context.Background(), env.options([]int{40}))
	if err != nil {
		t.Fatal(err)
	}
	// Only the job whose STL vanished re-renders.
	if result.Stats.Cached != 3 {
		t.Errorf("Cached = %d, want 3", result.Stats.Cached)
	}
}

func TestCacheDiagnosticsUseOptionsLogger(t *testing.T) {
	env := newTestEnv(t, renderScript)

	var buf bytes.Buffer
	opts := env.options([]int{40})
	opts.Logger = log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	// The runner's own logger discards; cache errors must still reach the
	// logger the caller supplied on Options.
	runner := NewRunner(&failingCache{}, nil, testLogger())
	if _, err := runner.Execute(context.Background(), opts); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if !strings.Contains(buf.String(), "cache get") {
		t.Errorf("cache diagnostics missing from options logger output:\n%s", buf.String())
	}
}

func TestCacheMissTally(t *testing.T) {
	defer observability.Reset()
	counter := &countingCacheHooks{}
	observability.SetCacheHooks(counter)

	env := newTestEnv(t, renderScript)
	fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, testLogger())

	// Cold cache: every job is a miss.
	if _, err := runner.Execute(context.Background(), env.options([]int{40})); err != nil {
		t.Fatal(err)
	}
	if counter.misses != 4 || counter.hits != 0 {
		t.Errorf("cold run: %d misses, %d hits; want 4/0", counter.misses, counter.hits)
	}

	// One STL deleted: its stale fingerprint must count as a miss, the
	// other three as hits.
	if err := os.Remove(filepath.Join(env.outputDir, "r40_ballast.stl")); err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Execute(context.Background(), env.options([]int{40})); err != nil {
		t.Fatal(err)
	}
	if counter.misses != 5 || counter.hits != 3 {
		t.Errorf("warm run: %d misses, %d hits; want 5/3", counter.misses, counter.hits)
	}
}

func TestExecutePreflightAborts(t *testing.T) {
	env := newTestEnv(t, renderScript)
	opts := env.options([]int{40})
	opts.Binary = "definitely-not-openscad-xyz"

	runner := NewRunner(nil, nil, testLogger())
	_, err := runner.Execute(context.Background(), opts)
	if !errors.Is(err, errors.ErrCodeToolNotFound) {
		t.Errorf("error code = %s, want TOOL_NOT_FOUND", errors.GetCode(err))
	}
}

func TestExecuteCancelled(t *testing.T) {
	env := newTestEnv(t, renderScript)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(nil, nil, testLogger())
	result, err := runner.Execute(ctx, env.options([]int{40}))
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if result == nil || len(result.Jobs) != 0 {
		t.Errorf("cancelled run should return the partial (empty) result, got %+v", result)
	}
}

// testEnv bundles the temp scene, output directory, and fake renderer.
type testEnv struct {
	scene     string
	outputDir string
	binary    string
}

func newTestEnv(t *testing.T, script string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	scene := filepath.Join(dir, "curves.scad")
	if err := os.WriteFile(scene, []byte("// test scene\n"), 0644); err != nil {
		t.Fatal(err)
	}

	binary := filepath.Join(dir, "fake-openscad")
	if err := os.WriteFile(binary, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	return &testEnv{
		scene:     scene,
		outputDir: filepath.Join(dir, "out"),
		binary:    binary,
	}
}

func (e *testEnv) options(radii []int) Options {
	return Options{
		Radii:     radii,
		Scene:     e.scene,
		Binary:    e.binary,
		OutputDir: e.outputDir,
		Timeout:   30 * time.Second,
	}
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// failingCache errors on every read, as a wedged backend would.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New(errors.ErrCodeInternal, "backend unavailable")
}

func (failingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (failingCache) Delete(ctx context.Context, key string) error { return nil }

func (failingCache) Close() error { return nil }

// countingCacheHooks tallies hit and miss events.
type countingCacheHooks struct {
	observability.NoopCacheHooks
	hits   int
	misses int
}

func (h *countingCacheHooks) OnCacheHit(ctx context.Context, keyType string)  { h.hits++ }
func (h *countingCacheHooks) OnCacheMiss(ctx context.Context, keyType string) { h.misses++ }
