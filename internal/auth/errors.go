// ABOUTME: Error taxonomy for authentication and authorization failures
// ABOUTME: Sentinel errors mapped to HTTP status codes by the gateway

package auth

import "errors"

var (
	// ErrMissingCredential means no Authorization header was presented,
	// or it was not a bearer credential.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidCredential means the presented credential matched no
	// configured shared secret and could not be a signed token.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrInvalidToken means a signed token failed issuer, audience,
	// signature, or expiry checks. Wrapped errors carry the reason.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingScope means the credential is valid but does not grant
	// the scope the endpoint requires.
	ErrMissingScope = errors.New("missing required scope")
)
