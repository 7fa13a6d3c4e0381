package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores entailment probabilities keyed by ScoreKey
type Cache interface {
	Get(key string) (float64, bool)
	Set(key string, score float64, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ScoreKey derives the cache key for one (classifier, premise, hypothesis) query.
// Premise and hypothesis are length-prefixed so that shifting text between
// them cannot collide.
func ScoreKey(classifier, premise, hypothesis string) string {
	h := sha256.New()
	for _, part := range []string{classifier, premise, hypothesis} {
		var n [8]byte
		size := uint64(len(part))
		for i := range n {
			n[i] = byte(size >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(part))
	}
	return "proofvote:v1:" + hex.EncodeToString(h.Sum(nil))
}
