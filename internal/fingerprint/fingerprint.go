// Package fingerprint derives a stable, non-cookie visitor identity from
// request attributes. The same (ip, user agent) pair always maps to the same
// 64-character id; the keyed hash is one-way, so the id alone does not
// identify a person.
package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// defaultKey is used when no secret is configured. It keeps fingerprints
// deterministic in development; production deployments set
// app.fingerprint_secret so ids cannot be recomputed offline.
const defaultKey = "qrgenerator-visitor-fingerprint"

// Generator computes visitor ids with a fixed HMAC key.
type Generator struct {
	key []byte
}

// New returns a Generator keyed with secret, falling back to a built-in key
// when secret is empty.
func New(secret string) *Generator {
	if secret == "" {
		secret = defaultKey
	}
	return &Generator{key: []byte(secret)}
}

// Visitor returns the deterministic visitor id for an (ip, user agent) pair.
// The separator byte keeps ("ab","c") and ("a","bc") from colliding.
func (g *Generator) Visitor(rawIP, rawUserAgent string) string {
	mac := hmac.New(sha256.New, g.key)
	mac.Write([]byte(rawIP))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(rawUserAgent))
	return hex.EncodeToString(mac.Sum(nil))
}
