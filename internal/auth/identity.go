// ABOUTME: Identity model produced by credential validation
// ABOUTME: Tagged variant over shared-secret and OAuth2 client modes

package auth

// Mode identifies how an identity was proven.
type Mode string

const (
	// ModeSharedSecret means the caller presented the configured static
	// bearer token. Shared-secret identities carry no scopes and are
	// allowed on every endpoint.
	ModeSharedSecret Mode = "shared_secret"

	// ModeOAuthClient means the caller presented a signed OAuth2
	// client-credentials token. Access is gated per endpoint by scope.
	ModeOAuthClient Mode = "oauth_client"
)

// Identity is the result of successful credential validation.
// Identities are derived fresh per request and never persisted.
type Identity struct {
	Mode Mode

	// ClientID identifies the calling application. Empty in shared-secret mode.
	ClientID string

	// Scopes granted to this identity. Empty in shared-secret mode.
	Scopes []string
}

// HasScope reports whether the identity was granted the given scope.
func (id *Identity) HasScope(scope string) bool {
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
