// ABOUTME: Tests for the endpoint policy and the pure scope authorizer
// ABOUTME: Covers the identity-mode × scope matrix and public endpoints

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serverless-mcp/mcp-gateway/internal/config"
)

func testPolicy(t *testing.T) *EndpointPolicy {
	t.Helper()
	policy, err := NewEndpointPolicy([]config.EndpointConfig{
		{
			Path:    "/add_two_numbers/mcp",
			Handler: "math",
		},
		{
			Path:    "/api_wrapper/mcp",
			Handler: "products",
			ToolScopes: map[string]string{
				"fetch_all_products":           "products/fetch_all",
				"filter_by_price_range":        "products/filter_price",
				"filter_by_stock_availability": "products/filter_stock",
			},
		},
	})
	require.NoError(t, err)
	return policy
}

func TestAuthorize_SharedSecretAllowsEverything(t *testing.T) {
	policy := testPolicy(t)
	id := &Identity{Mode: ModeSharedSecret}

	for _, rule := range policy.Rules() {
		assert.NoError(t, Authorize(id, rule.Scope), "endpoint %s", rule.Path)
		for tool := range rule.ToolScopes {
			assert.NoError(t, Authorize(id, rule.ToolScope(tool)), "tool %s", tool)
		}
	}
}

func TestAuthorize_OAuthScopeMatrix(t *testing.T) {
	tests := []struct {
		name          string
		scopes        []string
		requiredScope string
		wantAllow     bool
	}{
		{
			name:          "scope present",
			scopes:        []string{"products/fetch_all"},
			requiredScope: "products/fetch_all",
			wantAllow:     true,
		},
		{
			name:          "scope absent",
			scopes:        []string{"products/fetch_all"},
			requiredScope: "products/filter_price",
			wantAllow:     false,
		},
		{
			name:          "no scopes at all",
			scopes:        nil,
			requiredScope: "products/fetch_all",
			wantAllow:     false,
		},
		{
			name:          "empty requirement is public",
			scopes:        nil,
			requiredScope: "",
			wantAllow:     true,
		},
		{
			name:          "one of several scopes",
			scopes:        []string{"products/fetch_all", "products/filter_price"},
			requiredScope: "products/filter_price",
			wantAllow:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{Mode: ModeOAuthClient, ClientID: "client-x", Scopes: tt.scopes}
			err := Authorize(id, tt.requiredScope)
			if tt.wantAllow {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMissingScope)
			}
		})
	}
}

func TestAuthorize_UnknownModeDenied(t *testing.T) {
	id := &Identity{Mode: Mode("anonymous")}
	assert.ErrorIs(t, Authorize(id, "products/fetch_all"), ErrMissingScope)
}

func TestEndpointPolicy_Lookup(t *testing.T) {
	policy := testPolicy(t)

	rule, ok := policy.Lookup("/api_wrapper/mcp")
	require.True(t, ok)
	assert.Equal(t, "products", rule.Handler)
	assert.Equal(t, "products/filter_price", rule.ToolScope("filter_by_price_range"))
	assert.Empty(t, rule.ToolScope("unlisted_tool"))

	_, ok = policy.Lookup("/nope/mcp")
	assert.False(t, ok)
}

func TestEndpointPolicy_DuplicatePath(t *testing.T) {
	_, err := NewEndpointPolicy([]config.EndpointConfig{
		{Path: "/x/mcp", Handler: "math"},
		{Path: "/x/mcp", Handler: "products"},
	})
	assert.Error(t, err)
}
