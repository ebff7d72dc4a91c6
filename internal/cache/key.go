package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Keyer derives cache keys from fully substituted query text. The same
// query text always produces the same key.
//
// Fingerprint, when set, is mixed into every key. Operators use it to force
// invalidation when the underlying data changes (e.g. a dataset version or
// load date); the store itself never probes object storage for freshness.
type Keyer struct {
	Fingerprint string
}

// Key returns the hex-encoded SHA-256 key for the given query text.
func (k Keyer) Key(sql string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, sql)
	if k.Fingerprint != "" {
		_, _ = io.WriteString(h, "\x00")
		_, _ = io.WriteString(h, k.Fingerprint)
	}
	return hex.EncodeToString(h.Sum(nil))
}
