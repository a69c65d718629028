package canonhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sum hashes the canonical JSON form of v: the value is round-tripped
// through generic JSON so that object keys always serialize sorted.
// Identical logical content therefore always yields the same hash,
// regardless of struct field order or map insertion order.
func Sum(v any) (string, []byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", nil, err
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), canonical, nil
}
