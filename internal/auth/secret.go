// ABOUTME: Shared-secret credential verification with constant-time comparison
// ABOUTME: All-or-nothing gate; matching callers are allowed on every endpoint

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
)

// secretVerifier checks a presented credential against a configured constant.
// The comparison runs over fixed-length digests so its timing leaks neither
// the secret's content nor its length.
type secretVerifier struct {
	digest [sha256.Size]byte
}

func newSecretVerifier(secret string) *secretVerifier {
	return &secretVerifier{digest: sha256.Sum256([]byte(secret))}
}

// matches reports whether the credential equals the configured secret.
func (v *secretVerifier) matches(credential string) bool {
	presented := sha256.Sum256([]byte(credential))
	return subtle.ConstantTimeCompare(v.digest[:], presented[:]) == 1
}
