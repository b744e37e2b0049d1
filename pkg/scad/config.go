package scad

import (
	"strings"

	"github.com/studrail/trackforge/pkg/errors"
)

// Config is a named output variant: a fixed triple of generator flags
// passed through to the scene file. The geometry behind each flag is owned
// entirely by the scene; this code only forwards the booleans.
type Config struct {
	Name         string
	Track        bool // generate the rail/track mesh
	Ballast      bool // generate the ballast bed mesh
	BallastBuddy bool // generate the ballast connector ("buddy") mesh
}

// Configurations is the fixed set of output variants, in generation order.
var Configurations = []Config{
	{Name: "ballast_and_buddy", Track: false, Ballast: true, BallastBuddy: true},
	{Name: "ballast", Track: false, Ballast: true, BallastBuddy: false},
	{Name: "track_ballast_and_buddy", Track: true, Ballast: true, BallastBuddy: true},
	{Name: "track_and_ballast", Track: true, Ballast: true, BallastBuddy: false},
}

// ConfigFor returns the configuration with the given name.
func ConfigFor(name string) (Config, error) {
	for _, c := range Configurations {
		if c.Name == name {
			return c, nil
		}
	}
	return Config{}, errors.New(errors.ErrCodeInvalidConfig,
		"unknown configuration: %q (must be one of: %s)", name, strings.Join(ConfigNames(), ", "))
}

// ConfigNames returns the configuration names in generation order.
func ConfigNames() []string {
	names := make([]string, len(Configurations))
	for i, c := range Configurations {
		names[i] = c.Name
	}
	return names
}
