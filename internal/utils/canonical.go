// Canonical request hashing for the idempotency ledger.
//
// Two requests are "the same logical operation" when their payloads are
// semantically equal, regardless of JSON object key order. encoding/json
// marshals map keys in sorted order, so decoding into generic values and
// re-encoding yields a canonical byte form; its SHA-256 digest is stable
// across field reordering.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CanonicalHash returns the hex-encoded SHA-256 digest of the canonical
// form of payload. Payloads that are not valid JSON are hashed verbatim,
// so non-JSON bodies (e.g. raw webhook payloads) still get a stable digest.
func CanonicalHash(payload []byte) string {
	var v any
	if err := json.Unmarshal(payload, &v); err == nil {
		if canon, err := json.Marshal(v); err == nil {
			sum := sha256.Sum256(canon)
			return hex.EncodeToString(sum[:])
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
