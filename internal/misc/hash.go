package misc

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SumSHA256 signs value with key for the HashSHA256 header.
func SumSHA256(value []byte, key string) string {
	h := sha256.New()
	h.Write(value)
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySHA256 reports whether got is the signature of value under key.
func VerifySHA256(value []byte, key, got string) bool {
	return strings.EqualFold(strings.TrimSpace(got), SumSHA256(value, key))
}
