package errors

import (
	"strings"
	"unicode"
)

// Limits for user-supplied render parameters. The renderer itself accepts
// anything, so these bounds only catch obvious typos before a five-minute
// subprocess is launched for nothing.
const (
	// MinRadius is the smallest radius a segment can physically have.
	MinRadius = 8

	// MaxRadius bounds the sweep; beyond this the segment no longer fits
	// common print beds at any supported angle.
	MaxRadius = 512

	// MaxDensity bounds the sleeper-density control.
	MaxDensity = 100000
)

// ValidateRadius validates a curve radius in studs.
func ValidateRadius(radius int) error {
	if radius < MinRadius {
		return New(ErrCodeInvalidRadius, "radius %d too small (min %d studs)", radius, MinRadius)
	}
	if radius > MaxRadius {
		return New(ErrCodeInvalidRadius, "radius %d too large (max %d studs)", radius, MaxRadius)
	}
	return nil
}

// ValidateAngle validates a segment angle in degrees.
// A segment must span a positive arc no larger than a quarter circle.
func ValidateAngle(angle float64) error {
	if angle <= 0 {
		return New(ErrCodeInvalidAngle, "angle must be positive, got %g", angle)
	}
	if angle > 90 {
		return New(ErrCodeInvalidAngle, "angle %g too large (max 90 degrees)", angle)
	}
	return nil
}

// ValidateDensity validates a sleeper-density override.
func ValidateDensity(density int) error {
	if density <= 0 {
		return New(ErrCodeInvalidDensity, "density must be positive, got %d", density)
	}
	if density > MaxDensity {
		return New(ErrCodeInvalidDensity, "density %d too large (max %d)", density, MaxDensity)
	}
	return nil
}

// ValidateOutputPath validates a user-supplied output or scene path.
// It rejects values that could never be a sane filesystem path; existence
// checks are done separately by the preflight.
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - No control characters or null bytes
//   - Maximum length of 500 characters
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	if len(path) > 500 {
		return New(ErrCodeInvalidPath, "path too long (max 500 characters)")
	}

	if strings.Contains(path, "\x00") {
		return New(ErrCodeInvalidPath, "path contains null byte")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains control characters")
		}
	}

	return nil
}
