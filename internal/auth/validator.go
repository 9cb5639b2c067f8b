// ABOUTME: Credential validator combining shared-secret and OAuth2 modes
// ABOUTME: Both modes may coexist; the shared secret is checked first, constant-time

package auth

import (
	"context"
	"strings"
)

// Validator authenticates a raw bearer credential into an Identity.
//
// Both auth modes may be active in one deployment. A presented credential is
// first compared against the shared secret (constant-time); only on mismatch
// is it treated as a signed token. A credential that matches neither is
// rejected — validation never falls through to allow.
type Validator struct {
	secret *secretVerifier
	oidc   *OIDCValidator
}

// NewValidator creates a credential validator. An empty sharedSecret
// disables shared-secret mode; a nil oidc disables OAuth2 mode. At least
// one mode must be configured.
func NewValidator(sharedSecret string, oidc *OIDCValidator) *Validator {
	v := &Validator{oidc: oidc}
	if sharedSecret != "" {
		v.secret = newSecretVerifier(sharedSecret)
	}
	return v
}

// Validate authenticates the credential and derives a fresh Identity.
// The zero-length credential is ErrMissingCredential; all other failures
// are ErrInvalidCredential or ErrInvalidToken depending on the path taken.
func (v *Validator) Validate(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	if v.secret != nil && v.secret.matches(credential) {
		return &Identity{Mode: ModeSharedSecret}, nil
	}

	if v.oidc != nil && looksLikeJWT(credential) {
		return v.oidc.Verify(ctx, credential)
	}

	return nil, ErrInvalidCredential
}

// looksLikeJWT reports whether the credential has the three-part compact
// serialization shape. Anything else cannot be a signed token and is
// rejected without a network round trip.
func looksLikeJWT(credential string) bool {
	return strings.Count(credential, ".") == 2
}
