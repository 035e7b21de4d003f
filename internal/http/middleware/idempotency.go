// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency-key plumbing for unsafe HTTP methods
// (POST/PATCH). It validates the Idempotency-Key request header, stashes the
// normalized key in the request context for the ledger-aware handlers, and
// exposes replay/rate-bypass flags so other middleware can cooperate:
//   - handlers read the normalized key via GetIdempotencyKey
//   - handlers mark served replays via MarkReplay; IsReplay reports it
//   - the rate limiter skips limiting when a replay is served
//
// The ledger itself (insert-if-absent, hashing, conflict detection) lives in
// the services layer; this middleware owns only transport-level validation.
package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations. Header-name case does not
// matter on the wire; Go canonicalizes all variants to this form.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyKeyAlt is the legacy header accepted for older clients.
// It is consulted only when the canonical header is absent.
const HeaderIdempotencyKeyAlt = "X-Idempotency-Key"

// HeaderIdempotencyReplayed is set on responses that were served from the
// ledger rather than executed.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// Context keys used internally to stash idempotency state.
// These keys are intentionally unexported and referenced via accessor helpers.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored response was replayed
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by IdempotencyValidator. The second return value indicates presence.
//
// Handlers should prefer this function over reading the header directly.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// MarkReplay flags the current request as served from the ledger. Handlers
// call it right before writing a replayed response; the rate limiter and any
// later middleware can then treat the request as free.
func MarkReplay(c *gin.Context) {
	c.Set(ctxKeyIdemReplay, true)
	c.Set(ctxKeyRateBypass, true)
	c.Header(HeaderIdempotencyReplayed, "true")
}

// IsReplay reports whether this request was answered by replaying a
// previously recorded response.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation behavior for
// IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// ReplayLookup answers whether a completed ledger record already exists for
// (userID, key) on the current route. It runs before the rate limiter so that
// replays can bypass limiting; return an error only for lookup failures,
// which must not block normal processing.
type ReplayLookup func(ctx context.Context, userID, key string) (exists bool, err error)

// IdempotencyValidator validates the idempotency key header (if present) and
// stashes it in the request context.
//
// Behavior:
//   - If neither header is present: the middleware is a no-op; keyless
//     requests are not deduplicated.
//   - If the key fails validation: responds 400 with a compact error body.
//   - If lookup reports a completed prior request: sets the rate-bypass flag
//     so the limiter does not charge the retry.
//   - Otherwise the normalized key is stashed for GetIdempotencyKey.
func IdempotencyValidator(opts IdempotencyOptions, lookup ReplayLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		// RFC-7230-ish token + common safe chars.
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			key = c.GetHeader(HeaderIdempotencyKeyAlt)
		}
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if exists, _ := lookup(c.Request.Context(), UserID(c), key); exists {
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}
