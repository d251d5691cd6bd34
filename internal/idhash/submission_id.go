// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeSubmissionID computes a deterministic mint submission id using SHA256.
// Formula: SHA256(lower(record)|lower(account)|quantity|created_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeSubmissionID(
	record string,
	account string,
	quantity int64,
	createdAtMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		strings.ToLower(record),
		strings.ToLower(account),
		quantity,
		createdAtMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
