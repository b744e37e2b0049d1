// Package profile loads TOML sweep profiles.
//
// A profile overrides parts of the built-in sweep table: the radius list,
// individual angle mappings, the density curve constants or a custom density
// formula, the configuration subset, and the per-job timeout. Everything is
// optional; an empty profile reproduces the standard R24–R120 sweep.
//
// # Example
//
//	# narrow sweep for a small printer, shared-cache timeout bumped
//	radii = [24, 32, 40]
//	configs = ["ballast", "track_and_ballast"]
//	timeout = "8m"
//
//	[angles]
//	40 = 22.5
//
//	[curve]
//	a = 0.8125
//	vertex = 64
//	minimum = 500
//	maximum = 1800
//
// A custom formula takes precedence over the curve table:
//
//	density_formula = "min(0.8125 * (radius - 64)^2 + 500, 1800)"
package profile

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/studrail/trackforge/pkg/errors"
	"github.com/studrail/trackforge/pkg/params"
	"github.com/studrail/trackforge/pkg/scad"
)

// duration wraps time.Duration for TOML strings like "8m" or "300s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Curve overrides the density curve constants.
type Curve struct {
	A       float64 `toml:"a"`
	Vertex  int     `toml:"vertex"`
	Minimum int     `toml:"minimum"`
	Maximum int     `toml:"maximum"`
}

// Profile is a parsed sweep profile. Zero values mean "use the default".
type Profile struct {
	Radii          []int              `toml:"radii"`
	Configs        []string           `toml:"configs"`
	Timeout        duration           `toml:"timeout"`
	DensityFormula string             `toml:"density_formula"`
	Angles         map[string]float64 `toml:"angles"`
	Curve          *Curve             `toml:"curve"`

	angles  map[int]float64
	formula *params.Formula
}

// Load reads and validates a profile file. All validation happens here so
// a broken profile fails before any render work starts.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read profile %s", path)
	}
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProfile, err, "parse profile %s", path)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	for _, r := range p.Radii {
		if err := errors.ValidateRadius(r); err != nil {
			return err
		}
	}

	for _, name := range p.Configs {
		if _, err := scad.ConfigFor(name); err != nil {
			return err
		}
	}

	// TOML table keys are strings; resolve them to radii once.
	p.angles = make(map[int]float64, len(p.Angles))
	for key, angle := range p.Angles {
		r, err := strconv.Atoi(key)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidProfile, "angle override key %q is not a radius", key)
		}
		if err := errors.ValidateAngle(angle); err != nil {
			return err
		}
		p.angles[r] = angle
	}

	if p.Curve != nil {
		if p.Curve.Maximum < p.Curve.Minimum {
			return errors.New(errors.ErrCodeInvalidProfile,
				"curve maximum %d below minimum %d", p.Curve.Maximum, p.Curve.Minimum)
		}
	}

	if p.DensityFormula != "" {
		f, err := params.CompileFormula(p.DensityFormula)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidProfile, err, "invalid density formula")
		}
		p.formula = f
	}

	if p.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidProfile, "timeout cannot be negative")
	}

	return nil
}

// SweepRadii returns the profile's radius list, defaulting to the standard sweep.
func (p *Profile) SweepRadii() []int {
	if len(p.Radii) > 0 {
		return p.Radii
	}
	return params.Radii
}

// SweepConfigs returns the configuration subset, defaulting to all four.
func (p *Profile) SweepConfigs() ([]scad.Config, error) {
	if len(p.Configs) == 0 {
		return scad.Configurations, nil
	}
	configs := make([]scad.Config, 0, len(p.Configs))
	for _, name := range p.Configs {
		c, err := scad.ConfigFor(name)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, nil
}

// JobTimeout returns the per-job timeout, or 0 when the profile leaves it
// to the renderer default.
func (p *Profile) JobTimeout() time.Duration {
	return time.Duration(p.Timeout)
}

// AngleFor resolves the angle for a radius: profile override first, then
// the standard table, then the default angle.
func (p *Profile) AngleFor(radius int) float64 {
	if a, ok := p.angles[radius]; ok {
		return a
	}
	if a, err := params.AngleFor(radius); err == nil {
		return a
	}
	return params.DefaultAngle
}

// DensityFor resolves the density for a radius: formula first, then curve
// override, then the default curve.
func (p *Profile) DensityFor(radius int) (int, error) {
	if p.formula != nil {
		return p.formula.Eval(radius)
	}
	if p.Curve != nil {
		c := params.DensityCurve{
			A:       p.Curve.A,
			Vertex:  p.Curve.Vertex,
			Minimum: p.Curve.Minimum,
			Maximum: p.Curve.Maximum,
		}
		return c.Eval(radius), nil
	}
	return params.DensityFor(radius), nil
}

// Rows derives the full parameter table for this profile, one row per radius.
func (p *Profile) Rows() ([]params.Row, error) {
	radii := p.SweepRadii()
	rows := make([]params.Row, 0, len(radii))
	for _, r := range radii {
		density, err := p.DensityFor(r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, params.Row{
			Radius:  r,
			Angle:   p.AngleFor(r),
			Density: density,
		})
	}
	return rows, nil
}
