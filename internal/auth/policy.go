// ABOUTME: Static endpoint policy and the scope authorizer
// ABOUTME: Pure decision function over (identity, required scope), no I/O

package auth

import (
	"fmt"

	"github.com/serverless-mcp/mcp-gateway/internal/config"
)

// EndpointRule is the policy for one tool endpoint.
type EndpointRule struct {
	Path    string
	Handler string
	// Scope required to reach the endpoint at all. Empty means any valid
	// identity may reach it.
	Scope string
	// ToolScopes maps tool names to the scope required to invoke them.
	ToolScopes map[string]string
}

// ToolScope returns the scope required for the named tool, or the empty
// string if the tool carries no requirement beyond the endpoint scope.
func (r EndpointRule) ToolScope(tool string) string {
	return r.ToolScopes[tool]
}

// EndpointPolicy is the static endpoint-to-scope mapping, loaded once at
// process start and immutable thereafter.
type EndpointPolicy struct {
	byPath map[string]EndpointRule
}

// NewEndpointPolicy builds the policy from configuration.
func NewEndpointPolicy(endpoints []config.EndpointConfig) (*EndpointPolicy, error) {
	byPath := make(map[string]EndpointRule, len(endpoints))
	for _, ep := range endpoints {
		if _, exists := byPath[ep.Path]; exists {
			return nil, fmt.Errorf("duplicate endpoint path %q", ep.Path)
		}
		rule := EndpointRule{
			Path:    ep.Path,
			Handler: ep.Handler,
			Scope:   ep.Scope,
		}
		if len(ep.ToolScopes) > 0 {
			rule.ToolScopes = make(map[string]string, len(ep.ToolScopes))
			for tool, scope := range ep.ToolScopes {
				rule.ToolScopes[tool] = scope
			}
		}
		byPath[ep.Path] = rule
	}
	return &EndpointPolicy{byPath: byPath}, nil
}

// Lookup returns the rule for an endpoint path.
func (p *EndpointPolicy) Lookup(path string) (EndpointRule, bool) {
	rule, ok := p.byPath[path]
	return rule, ok
}

// Rules returns all endpoint rules.
func (p *EndpointPolicy) Rules() []EndpointRule {
	rules := make([]EndpointRule, 0, len(p.byPath))
	for _, rule := range p.byPath {
		rules = append(rules, rule)
	}
	return rules
}

// Authorize decides whether the identity may perform an operation requiring
// the given scope. It is a pure, exhaustive match over the identity mode:
//
//   - shared_secret: always allowed (the secret is an all-or-nothing gate
//     already enforced by the validator)
//   - oauth_client: allowed iff the scope is in the identity's scope set
//
// An empty requiredScope is always allowed regardless of mode.
func Authorize(id *Identity, requiredScope string) error {
	if requiredScope == "" {
		return nil
	}

	switch id.Mode {
	case ModeSharedSecret:
		return nil
	case ModeOAuthClient:
		if id.HasScope(requiredScope) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrMissingScope, requiredScope)
	default:
		// Unknown modes never default to allow.
		return fmt.Errorf("%w: %s", ErrMissingScope, requiredScope)
	}
}
