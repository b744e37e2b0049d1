package scad

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/studrail/trackforge/pkg/errors"
)

func TestConfigurations(t *testing.T) {
	want := []Config{
		{Name: "ballast_and_buddy", Track: false, Ballast: true, BallastBuddy: true},
		{Name: "ballast", Track: false, Ballast: true, BallastBuddy: false},
		{Name: "track_ballast_and_buddy", Track: true, Ballast: true, BallastBuddy: true},
		{Name: "track_and_ballast", Track: true, Ballast: true, BallastBuddy: false},
	}
	if diff := cmp.Diff(want, Configurations); diff != "" {
		t.Errorf("Configurations mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFor(t *testing.T) {
	cfg, err := ConfigFor("track_and_ballast")
	if err != nil {
		t.Fatalf("ConfigFor error: %v", err)
	}
	if !cfg.Track || !cfg.Ballast || cfg.BallastBuddy {
		t.Errorf("ConfigFor(track_and_ballast) = %+v, wrong flags", cfg)
	}

	_, err = ConfigFor("track_only")
	if err == nil {
		t.Fatal("ConfigFor(track_only) should fail")
	}
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error code = %s, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestOutputName(t *testing.T) {
	cfg, _ := ConfigFor("ballast")
	if got := OutputName(40, cfg); got != "r40_ballast.stl" {
		t.Errorf("OutputName = %q, want r40_ballast.stl", got)
	}
}

func TestArgs(t *testing.T) {
	r := NewRenderer("curves.scad")
	cfg, _ := ConfigFor("ballast_and_buddy")

	t.Run("with density", func(t *testing.T) {
		job := Job{Radius: 40, Angle: 18, Density: 968, Config: cfg, Output: "out/r40_ballast_and_buddy.stl"}
		want := []string{
			"-D", "Radius=40",
			"-D", "SegAng=18",
			"-D", "generate_track=false",
			"-D", "generate_ballast=true",
			"-D", "generate_ballast_buddy=true",
			"-D", "diverse=968",
			"-o", "out/r40_ballast_and_buddy.stl",
			"curves.scad",
		}
		if diff := cmp.Diff(want, r.Args(job)); diff != "" {
			t.Errorf("Args mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("without density", func(t *testing.T) {
		job := Job{Radius: 24, Angle: 22.5, Config: cfg, Output: "r24.stl"}
		args := strings.Join(r.Args(job), " ")
		if strings.Contains(args, "diverse") {
			t.Errorf("Args should omit diverse when density is unset: %s", args)
		}
		if !strings.Contains(args, "SegAng=22.5") {
			t.Errorf("Args should format fractional angles exactly: %s", args)
		}
	})
}

func TestPreflight(t *testing.T) {
	scene := writeScene(t)

	t.Run("missing binary", func(t *testing.T) {
		r := &Renderer{Binary: "definitely-not-openscad-xyz", Scene: scene}
		err := r.Preflight()
		if !errors.Is(err, errors.ErrCodeToolNotFound) {
			t.Errorf("error code = %s, want TOOL_NOT_FOUND", errors.GetCode(err))
		}
	})

	t.Run("missing scene", func(t *testing.T) {
		r := &Renderer{Binary: "sh", Scene: filepath.Join(t.TempDir(), "missing.scad")}
		err := r.Preflight()
		if !errors.Is(err, errors.ErrCodeSceneNotFound) {
			t.Errorf("error code = %s, want SCENE_NOT_FOUND", errors.GetCode(err))
		}
	})

	t.Run("ok", func(t *testing.T) {
		r := &Renderer{Binary: "sh", Scene: scene}
		if err := r.Preflight(); err != nil {
			t.Errorf("Preflight error: %v", err)
		}
	})
}

func TestRender(t *testing.T) {
	scene := writeScene(t)
	cfg, _ := ConfigFor("ballast")
	job := Job{Radius: 40, Angle: 18, Config: cfg, Output: filepath.Join(t.TempDir(), "r40_ballast.stl")}

	t.Run("success", func(t *testing.T) {
		r := &Renderer{Binary: fakeRenderer(t, "exit 0"), Scene: scene}
		if err := r.Render(context.Background(), job); err != nil {
			t.Errorf("Render error: %v", err)
		}
	})

	t.Run("nonzero exit captures stderr", func(t *testing.T) {
		r := &Renderer{Binary: fakeRenderer(t, `echo "CGAL error" >&2; exit 1`), Scene: scene}
		err := r.Render(context.Background(), job)
		if !errors.Is(err, errors.ErrCodeRenderFailed) {
			t.Fatalf("error code = %s, want RENDER_FAILED", errors.GetCode(err))
		}
		if !strings.Contains(err.Error(), "CGAL error") {
			t.Errorf("error should carry stderr, got: %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		r := &Renderer{Binary: fakeRenderer(t, "sleep 5"), Scene: scene, Timeout: 50 * time.Millisecond}
		err := r.Render(context.Background(), job)
		if !errors.Is(err, errors.ErrCodeRenderTimeout) {
			t.Fatalf("error code = %s, want RENDER_TIMEOUT", errors.GetCode(err))
		}
		if !strings.Contains(err.Error(), "r40_ballast") {
			t.Errorf("timeout error should name the job, got: %v", err)
		}
	})

	t.Run("timeout with surviving child", func(t *testing.T) {
		// The child inherits stderr and outlives the killed parent; the
		// wait delay must return control long before the child exits.
		r := &Renderer{Binary: fakeRenderer(t, "sleep 5 &\nsleep 60"), Scene: scene, Timeout: 50 * time.Millisecond}

		start := time.Now()
		err := r.Render(context.Background(), job)
		elapsed := time.Since(start)

		if !errors.Is(err, errors.ErrCodeRenderTimeout) {
			t.Fatalf("error code = %s, want RENDER_TIMEOUT", errors.GetCode(err))
		}
		if elapsed > 3*time.Second {
			t.Errorf("Render blocked %s on an orphaned child, want well under the child's lifetime", elapsed)
		}
	})
}

func TestJobName(t *testing.T) {
	cfg, _ := ConfigFor("track_and_ballast")
	job := Job{Radius: 88, Config: cfg}
	if got := job.Name(); got != "r88_track_and_ballast" {
		t.Errorf("Name = %q, want r88_track_and_ballast", got)
	}
}

// writeScene creates a placeholder scene file.
func writeScene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "curves.scad")
	if err := os.WriteFile(path, []byte("// test scene\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeRenderer writes an executable script standing in for openscad.
func fakeRenderer(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-openscad")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}
