// ABOUTME: Tests for the combined shared-secret + OAuth2 credential validator
// ABOUTME: Covers mode selection, constant-time matching, and rejection paths

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_SharedSecretMatch(t *testing.T) {
	v := NewValidator("dummy-token", nil)

	identity, err := v.Validate(context.Background(), "dummy-token")
	require.NoError(t, err)

	assert.Equal(t, ModeSharedSecret, identity.Mode)
	assert.Empty(t, identity.ClientID)
	assert.Empty(t, identity.Scopes)
}

func TestValidator_SharedSecretMismatch(t *testing.T) {
	v := NewValidator("dummy-token", nil)

	_, err := v.Validate(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestValidator_MissingCredential(t *testing.T) {
	v := NewValidator("dummy-token", nil)

	_, err := v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestValidator_SecretPrefixDoesNotMatch(t *testing.T) {
	v := NewValidator("dummy-token", nil)

	for _, cred := range []string{"dummy", "dummy-token-extra", "DUMMY-TOKEN"} {
		_, err := v.Validate(context.Background(), cred)
		assert.ErrorIs(t, err, ErrInvalidCredential, "credential %q must not match", cred)
	}
}

func TestValidator_BothModesCoexist(t *testing.T) {
	idp := newFakeIDP(t)
	oidcValidator := newTestValidator(idp)
	v := NewValidator("dummy-token", oidcValidator)

	// Shared secret still matches
	identity, err := v.Validate(context.Background(), "dummy-token")
	require.NoError(t, err)
	assert.Equal(t, ModeSharedSecret, identity.Mode)

	// A signed token takes the OAuth2 path
	identity, err = v.Validate(context.Background(), idp.mint(t, nil))
	require.NoError(t, err)
	assert.Equal(t, ModeOAuthClient, identity.Mode)
	assert.Equal(t, "client-all", identity.ClientID)

	// A credential matching neither is rejected without a network call
	_, err = v.Validate(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestValidator_OAuthOnly(t *testing.T) {
	idp := newFakeIDP(t)
	v := NewValidator("", newTestValidator(idp))

	identity, err := v.Validate(context.Background(), idp.mint(t, nil))
	require.NoError(t, err)
	assert.Equal(t, ModeOAuthClient, identity.Mode)

	// Non-JWT shapes are rejected before hitting the issuer
	_, err = v.Validate(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLooksLikeJWT(t *testing.T) {
	assert.True(t, looksLikeJWT("a.b.c"))
	assert.False(t, looksLikeJWT("a.b"))
	assert.False(t, looksLikeJWT("abc"))
	assert.False(t, looksLikeJWT("a.b.c.d"))
}
