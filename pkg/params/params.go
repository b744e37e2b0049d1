// Package params derives the per-radius render parameters for the standard
// track sweep.
//
// Track segments are parameterized by three values: the curve radius in studs,
// the segment angle in degrees, and a sleeper-density control. The radius list
// and angle steps are fixed by the printable range (R24 through R120); the
// density follows a quadratic curve with its minimum at R64.
//
// # Usage
//
//	rows := params.Table()
//	for _, row := range rows {
//	    fmt.Println(row.Radius, row.Angle, row.Density)
//	}
//
// Individual lookups:
//
//	angle, err := params.AngleFor(56)   // 18
//	density := params.DensityFor(88)    // 968
package params

import (
	"github.com/studrail/trackforge/pkg/errors"
)

// Radii is the standard radius sweep in studs, R24 through R120.
// The list is ordered and fixed; every entry has an angle mapping.
var Radii = []int{24, 32, 40, 48, 56, 64, 72, 80, 88, 96, 104, 112, 120}

// DefaultAngle is the segment angle used for radii outside the standard
// table (the tightest printable step).
const DefaultAngle = 22.5

// angleSteps maps each standard radius to its segment angle in degrees.
// Smaller radii get larger angles so a single segment still fits a small
// print bed; the angle steps down at R40, R64, and R96.
var angleSteps = map[int]float64{
	24:  22.5,
	32:  22.5,
	40:  18,
	48:  18,
	56:  18,
	64:  15,
	72:  15,
	80:  15,
	88:  15,
	96:  11.25,
	104: 11.25,
	112: 11.25,
	120: 11.25,
}

// DensityCurve describes the quadratic sleeper-density curve
//
//	density = A*(radius - Vertex)^2 + Minimum
//
// truncated to an integer and clamped at Maximum.
type DensityCurve struct {
	A       float64
	Vertex  int
	Minimum int
	Maximum int
}

// DefaultCurve is the hand-tuned density curve for the standard sweep:
// minimum 500 at R64, hitting the 1800 cap at R24 and R104.
var DefaultCurve = DensityCurve{
	A:       0.8125,
	Vertex:  64,
	Minimum: 500,
	Maximum: 1800,
}

// Eval computes the density for a radius.
func (c DensityCurve) Eval(radius int) int {
	d := c.A*float64(radius-c.Vertex)*float64(radius-c.Vertex) + float64(c.Minimum)
	if int(d) > c.Maximum {
		return c.Maximum
	}
	return int(d)
}

// AngleFor returns the segment angle for a standard radius.
// It returns an error for radii outside the standard table; callers that
// accept arbitrary radii should fall back to DefaultAngle.
func AngleFor(radius int) (float64, error) {
	a, ok := angleSteps[radius]
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidRadius, "no angle mapping for radius %d", radius)
	}
	return a, nil
}

// DensityFor returns the sleeper density for a radius using the default curve.
func DensityFor(radius int) int {
	return DefaultCurve.Eval(radius)
}

// IsStandard reports whether radius is in the standard sweep table.
func IsStandard(radius int) bool {
	_, ok := angleSteps[radius]
	return ok
}

// Row is one derived parameter set: a radius with its angle and density.
type Row struct {
	Radius  int
	Angle   float64
	Density int
}

// Table returns one Row per standard radius, in sweep order.
// It is a pure function of the built-in tables and never fails.
func Table() []Row {
	rows := make([]Row, 0, len(Radii))
	for _, r := range Radii {
		angle := angleSteps[r]
		rows = append(rows, Row{
			Radius:  r,
			Angle:   angle,
			Density: DefaultCurve.Eval(r),
		})
	}
	return rows
}
