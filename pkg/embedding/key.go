package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// BatchKey derives the canonical cache key for an ordered batch of texts.
//
// The batch is serialized as a JSON array and hashed with SHA-256, so an
// identical batch always produces the identical key. The serialization is
// order-preserving: callers like the ranker submit [query]+candidates
// batches whose element order defines the output mapping, so a reordered
// batch is a different batch and gets a different key.
func BatchKey(texts []string) string {
	data, _ := json.Marshal(texts) // string slices cannot fail to marshal
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
