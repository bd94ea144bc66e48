package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Creates a SHA-256 signature of the raw payload bytes. The signature
// stands in for content equality everywhere downstream.
func Signature(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
