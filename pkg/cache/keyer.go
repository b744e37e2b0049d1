package cache

// JobKeyOpts are the parameters that make a render unique. Any change to
// one of these must produce a different cache key.
type JobKeyOpts struct {
	Radius  int     `json:"radius"`
	Angle   float64 `json:"angle"`
	Density int     `json:"density"`
	Config  string  `json:"config"`
}

// Keyer generates cache keys for render fingerprints.
type Keyer interface {
	// JobKey generates a key for one render job. sceneHash is the content
	// hash of the scene file so edits to the geometry invalidate entries.
	JobKey(sceneHash string, opts JobKeyOpts) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// JobKey generates a job fingerprint key.
func (k *DefaultKeyer) JobKey(sceneHash string, opts JobKeyOpts) string {
	return hashKey("job", sceneHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful with a shared redis backend where different projects or
// printers need separate fingerprint namespaces.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "printer:mk4:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// JobKey generates a prefixed job fingerprint key.
func (k *ScopedKeyer) JobKey(sceneHash string, opts JobKeyOpts) string {
	return k.prefix + k.inner.JobKey(sceneHash, opts)
}
