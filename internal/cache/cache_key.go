package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeKey generates a deterministic cache key for a text embedded by a given model.
// Including the model keeps vectors of different models (and dimensions) apart.
func ComputeKey(model, text string) string {
	input := fmt.Sprintf("%s:%s", model, text)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
