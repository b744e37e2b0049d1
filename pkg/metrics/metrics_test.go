package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/studrail/trackforge/pkg/errors"
	"github.com/studrail/trackforge/pkg/observability"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, StatusSuccess},
		{"timeout", errors.New(errors.ErrCodeRenderTimeout, "r120_ballast timed out"), StatusTimeout},
		{"renderer failure", errors.New(errors.ErrCodeRenderFailed, "exit status 1"), StatusFailed},
		{"plain error", context.DeadlineExceeded, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestHooksUpdateCollectors(t *testing.T) {
	defer observability.Reset()
	Register()

	ctx := context.Background()
	h := observability.Jobs()

	before := testutil.ToFloat64(JobsTotal.WithLabelValues(StatusSuccess, "ballast"))

	h.OnJobStart(ctx, 40, "ballast")
	if got := testutil.ToFloat64(JobsInFlight); got != 1 {
		t.Errorf("JobsInFlight = %g during a job, want 1", got)
	}
	h.OnJobComplete(ctx, 40, "ballast", 2*time.Second, nil)

	if got := testutil.ToFloat64(JobsInFlight); got != 0 {
		t.Errorf("JobsInFlight = %g after completion, want 0", got)
	}
	after := testutil.ToFloat64(JobsTotal.WithLabelValues(StatusSuccess, "ballast"))
	if after != before+1 {
		t.Errorf("JobsTotal success delta = %g, want 1", after-before)
	}
}

func TestCacheHooksUpdateCollectors(t *testing.T) {
	defer observability.Reset()
	Register()

	ctx := context.Background()
	c := observability.Cache()

	before := testutil.ToFloat64(CacheOps.WithLabelValues("hit", "job"))
	c.OnCacheHit(ctx, "job")
	after := testutil.ToFloat64(CacheOps.WithLabelValues("hit", "job"))

	if after != before+1 {
		t.Errorf("CacheOps hit delta = %g, want 1", after-before)
	}
}
