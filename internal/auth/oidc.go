// ABOUTME: OAuth2 token validation against an identity provider's published keys
// ABOUTME: Lazy OIDC discovery with single-flight init and a one-shot retry

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/sync/singleflight"
)

// OIDCConfig configures token validation for one trusted issuer.
type OIDCConfig struct {
	// Issuer is the identity provider's issuer URL. Discovery and signing
	// keys are fetched from its well-known configuration document.
	Issuer string

	// ClientIDs are the accepted calling applications. A token is accepted
	// if its audience or client_id claim names one of them.
	ClientIDs []string

	// ClockSkew is the tolerance applied to expiry checks.
	ClockSkew time.Duration

	// HTTPTimeout bounds discovery and key fetches.
	HTTPTimeout time.Duration
}

// tokenClaims are the claims the gateway reads from an access token.
// Cognito-style access tokens carry the granted scopes as a space-separated
// "scope" claim and the caller as "client_id".
type tokenClaims struct {
	Scope    string `json:"scope"`
	ClientID string `json:"client_id"`
}

// OIDCValidator verifies OAuth2 client-credentials tokens.
//
// Discovery runs lazily on first use so the gateway can start while the
// identity provider is unreachable. The discovery fetch is single-flight:
// concurrent requests needing it wait on one in-flight attempt. Signing-key
// caching and refresh-on-unknown-key-id are handled by the provider's remote
// key set, which likewise coalesces concurrent JWKS fetches.
type OIDCValidator struct {
	cfg    OIDCConfig
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	verifier *oidc.IDTokenVerifier
}

// NewOIDCValidator creates a validator for the given issuer. No network
// access happens until the first token is verified.
func NewOIDCValidator(cfg OIDCConfig) *OIDCValidator {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &OIDCValidator{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: slog.Default().With("component", "auth"),
		now:    time.Now,
	}
}

// Verify checks the token's signature, issuer, audience, and expiry.
// Returns the derived oauth_client identity on success.
func (v *OIDCValidator) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	verifier, err := v.verifierFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: issuer discovery failed: %v", ErrInvalidToken, err)
	}

	token, err := verifier.Verify(oidc.ClientContext(ctx, v.client), rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims tokenClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: parsing claims: %v", ErrInvalidToken, err)
	}

	if !v.audienceAccepted(token.Audience, claims.ClientID) {
		return nil, fmt.Errorf("%w: audience not accepted", ErrInvalidToken)
	}

	clientID := claims.ClientID
	if clientID == "" && len(token.Audience) > 0 {
		clientID = token.Audience[0]
	}

	return &Identity{
		Mode:     ModeOAuthClient,
		ClientID: clientID,
		Scopes:   strings.Fields(claims.Scope),
	}, nil
}

// verifierFor returns the cached token verifier, running OIDC discovery on
// first use. Discovery failures are retried once before escalating; the
// single-flight group ensures concurrent callers share one attempt.
func (v *OIDCValidator) verifierFor(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.RLock()
	verifier := v.verifier
	v.mu.RUnlock()
	if verifier != nil {
		return verifier, nil
	}

	result, err, _ := v.group.Do("discovery", func() (any, error) {
		// Re-check under the group: a previous flight may have won.
		v.mu.RLock()
		cached := v.verifier
		v.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		clientCtx := oidc.ClientContext(ctx, v.client)
		provider, err := oidc.NewProvider(clientCtx, v.cfg.Issuer)
		if err != nil {
			v.logger.Warn("OIDC discovery failed, retrying once", "issuer", v.cfg.Issuer, "error", err)
			provider, err = oidc.NewProvider(clientCtx, v.cfg.Issuer)
		}
		if err != nil {
			return nil, err
		}

		built := provider.Verifier(&oidc.Config{
			// Audience is matched against the configured client set below,
			// not a single client id.
			SkipClientIDCheck: true,
			Now: func() time.Time {
				return v.now().Add(-v.cfg.ClockSkew)
			},
		})

		v.mu.Lock()
		v.verifier = built
		v.mu.Unlock()

		v.logger.Info("OIDC issuer discovered", "issuer", v.cfg.Issuer)
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*oidc.IDTokenVerifier), nil
}

// audienceAccepted reports whether the token names one of the configured
// client ids, either in its audience or its client_id claim.
func (v *OIDCValidator) audienceAccepted(audience []string, clientID string) bool {
	for _, accepted := range v.cfg.ClientIDs {
		if clientID == accepted {
			return true
		}
		for _, aud := range audience {
			if aud == accepted {
				return true
			}
		}
	}
	return false
}
