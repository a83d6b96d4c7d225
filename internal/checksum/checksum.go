// Package checksum computes content digests and the HTTP entity tags built
// from them.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes a digest as a strong entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// MatchETag reports whether an If-Match header value admits sum. An empty
// header or "*" matches anything; weak tags compare by their opaque value.
func MatchETag(header, sum string) bool {
	header = strings.TrimSpace(header)
	if header == "" || header == "*" {
		return true
	}
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimPrefix(tag, "W/")
		if strings.Trim(tag, `"`) == sum {
			return true
		}
	}
	return false
}
