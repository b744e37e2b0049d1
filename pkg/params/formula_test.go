package params

import (
	"strings"
	"testing"
)

func TestFormulaMatchesDefaultCurve(t *testing.T) {
	f, err := CompileFormula("min(0.8125 * (radius - 64)^2 + 500, 1800)")
	if err != nil {
		t.Fatalf("CompileFormula error: %v", err)
	}

	for _, radius := range Radii {
		got, err := f.Eval(radius)
		if err != nil {
			t.Fatalf("Eval(%d) error: %v", radius, err)
		}
		if want := DefaultCurve.Eval(radius); got != want {
			t.Errorf("Eval(%d) = %d, want %d", radius, got, want)
		}
	}
}

func TestFormulaIntegerResult(t *testing.T) {
	f, err := CompileFormula("radius * 10")
	if err != nil {
		t.Fatalf("CompileFormula error: %v", err)
	}
	got, err := f.Eval(40)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if got != 400 {
		t.Errorf("Eval(40) = %d, want 400", got)
	}
}

func TestCompileFormulaErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", "min(radius,"},
		{"unknown variable", "diameter * 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CompileFormula(tt.src); err == nil {
				t.Errorf("CompileFormula(%q) should fail", tt.src)
			}
		})
	}
}

func TestFormulaNonNumericResult(t *testing.T) {
	f, err := CompileFormula(`radius > 0 ? "big" : "small"`)
	if err != nil {
		t.Fatalf("CompileFormula error: %v", err)
	}
	_, err = f.Eval(40)
	if err == nil {
		t.Fatal("Eval should fail for a non-numeric result")
	}
	if !strings.Contains(err.Error(), "want a number") {
		t.Errorf("error = %v, should mention the expected type", err)
	}
}

func TestFormulaString(t *testing.T) {
	const src = "radius + 1"
	f, err := CompileFormula(src)
	if err != nil {
		t.Fatalf("CompileFormula error: %v", err)
	}
	if f.String() != src {
		t.Errorf("String() = %q, want %q", f.String(), src)
	}
}
