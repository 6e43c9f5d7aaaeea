// Package checksum computes content digests used as entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag returns a strong HTTP entity tag for the JSON form of v.
func ETag(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return `"` + Sum(data)[:32] + `"`, nil
}
