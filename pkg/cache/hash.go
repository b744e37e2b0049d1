package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey builds a namespaced cache key from render parameters:
// prefix:hash(parts...). The parts are JSON-encoded before hashing so any
// change to a job parameter (scene hash, radius, angle, density, config)
// yields a different key.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	// Full SHA-256 (64 hex chars); fingerprint keys must never collide
	// across parameter sets or a job would wrongly skip its render.
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash returns the SHA-256 content hash of data as a 64-character hex
// string. The batch runner hashes the scene file with it so geometry edits
// invalidate every cached job.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
