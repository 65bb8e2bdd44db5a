package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SHA256 returns the lowercase hex digest of raw bytes.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256JSON returns the hex digest of the canonical JSON encoding of v.
// encoding/json emits map keys in sorted order, so logically equal
// payloads produce identical digests across runs.
func SHA256JSON(v any) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hashing: encode payload: %w", err)
	}
	return SHA256(encoded), nil
}

// ShortJSON returns the first 16 hex characters of the canonical JSON
// digest. Used as a filesystem-safe key for request parameter sets.
func ShortJSON(v any) (string, error) {
	full, err := SHA256JSON(v)
	if err != nil {
		return "", err
	}
	return full[:16], nil
}
