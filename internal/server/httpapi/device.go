package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// deviceKeyFromRequest derives the opaque device key the session layer
// uses to distinguish concurrent sessions of one user. Hashing the
// User-Agent keeps the stored key fixed-length and avoids persisting the
// raw header. Clients without a User-Agent all share one key, which
// matches the one-session-per-device rule.
func deviceKeyFromRequest(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.UserAgent()))
	return hex.EncodeToString(sum[:])
}
