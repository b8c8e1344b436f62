// Package token derives per-signup edit credentials. The token is an HMAC of
// the signup id keyed by a server-side secret, so it never needs to be
// stored and cannot be guessed without the secret.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Codec generates and verifies edit tokens for a fixed secret.
type Codec struct {
	secret []byte
}

// New constructs a Codec from the configured secret.
func New(secret string) Codec {
	return Codec{secret: []byte(secret)}
}

// Generate derives the edit token for a signup id. The same id and secret
// always produce the same token.
func (c Codec) Generate(signupID string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signupID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the presented token matches the signup id, in
// constant time.
func (c Codec) Verify(signupID, presented string) bool {
	expected := c.Generate(signupID)
	return hmac.Equal([]byte(expected), []byte(presented))
}
