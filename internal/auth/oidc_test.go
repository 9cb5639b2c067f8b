// ABOUTME: Tests for OAuth2 token validation against a fake identity provider
// ABOUTME: Serves discovery + JWKS over httptest and mints RS256 tokens locally

package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIDP is a minimal identity provider serving an OIDC discovery document
// and a JWKS, plus a signer for minting access tokens.
type fakeIDP struct {
	Issuer string
	key    *rsa.PrivateKey
	keyID  string

	// DiscoveryHits counts requests to the well-known document.
	DiscoveryHits int
}

func newFakeIDP(t *testing.T) *fakeIDP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &fakeIDP{key: key, keyID: "test-key-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		idp.DiscoveryHits++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                idp.Issuer,
			"jwks_uri":                              idp.Issuer + "/keys",
			"token_endpoint":                        idp.Issuer + "/oauth2/token",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, _ *http.Request) {
		pub := &idp.key.PublicKey
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"kid": idp.keyID,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	idp.Issuer = srv.URL
	return idp
}

// mint signs an access token with the IdP's key. Claims default to a live
// Cognito-style client-credentials token; callers override as needed.
func (idp *fakeIDP) mint(t *testing.T, overrides map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{
		"iss":       idp.Issuer,
		"sub":       "client-all",
		"client_id": "client-all",
		"scope":     "products/fetch_all products/filter_price",
		"iat":       time.Now().Add(-time.Minute).Unix(),
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range overrides {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = idp.keyID
	signed, err := token.SignedString(idp.key)
	require.NoError(t, err)
	return signed
}

func newTestValidator(idp *fakeIDP) *OIDCValidator {
	return NewOIDCValidator(OIDCConfig{
		Issuer:      idp.Issuer,
		ClientIDs:   []string{"client-all", "client-fetch-all"},
		ClockSkew:   30 * time.Second,
		HTTPTimeout: 2 * time.Second,
	})
}

func TestOIDCValidator_ValidToken(t *testing.T) {
	idp := newFakeIDP(t)
	v := newTestValidator(idp)

	identity, err := v.Verify(context.Background(), idp.mint(t, nil))
	require.NoError(t, err)

	assert.Equal(t, ModeOAuthClient, identity.Mode)
	assert.Equal(t, "client-all", identity.ClientID)
	assert.ElementsMatch(t, []string{"products/fetch_all", "products/filter_price"}, identity.Scopes)
}

func TestOIDCValidator_AudienceClaim(t *testing.T) {
	idp := newFakeIDP(t)
	v := newTestValidator(idp)

	// Token carrying the accepted client in aud instead of client_id
	token := idp.mint(t, map[string]any{
		"client_id": "",
		"aud":       "client-fetch-all",
		"scope":     "products/fetch_all",
	})

	identity, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "client-fetch-all", identity.ClientID)
}

func TestOIDCValidator_UnknownAudience(t *testing.T) {
	idp := newFakeIDP(t)
	v := newTestValidator(idp)

	token := idp.mint(t, map[string]any{"client_id": "client-unknown"})

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOIDCValidator_ExpiredToken(t *testing.T) {
	idp := newFakeIDP(t)
	v := newTestValidator(idp)

	token := idp.mint(t, map[string]any{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOIDCValidator_ExpiredWithinClockSkew(t *testing.T) {
	idp := newFakeIDP(t)
	v := newTestValidator(idp)

	// Expired ten seconds ago, inside the 30s tolerance
	token := idp.mint(t, map[string]any{
		"exp": time.Now().Add(-10 * time.Second).Unix(),
	})

	_, err := v.Verify(context.Background(), token)
	assert.NoError(t, err)
}

func TestOIDCValidator_BadSignature(t *testing.T) {
	idp := newFakeIDP(t)
	v := newTestValidator(idp)

	// Token signed by a different key but claiming the same kid
	rogue := &fakeIDP{keyID: idp.keyID, Issuer: idp.Issuer}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rogue.key = key

	_, err = v.Verify(context.Background(), rogue.mint(t, nil))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOIDCValidator_WrongIssuer(t *testing.T) {
	idp := newFakeIDP(t)
	v := newTestValidator(idp)

	token := idp.mint(t, map[string]any{"iss": "https://evil.example.com"})

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOIDCValidator_DiscoveryIsSingleFlight(t *testing.T) {
	idp := newFakeIDP(t)
	v := newTestValidator(idp)

	token := idp.mint(t, nil)
	for i := 0; i < 5; i++ {
		_, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, idp.DiscoveryHits, "discovery document should be fetched once and cached")
}

func TestOIDCValidator_DiscoveryUnreachable(t *testing.T) {
	v := NewOIDCValidator(OIDCConfig{
		Issuer:      "http://127.0.0.1:1", // nothing listening
		ClientIDs:   []string{"client-all"},
		HTTPTimeout: 500 * time.Millisecond,
	})

	_, err := v.Verify(context.Background(), "a.b.c")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
