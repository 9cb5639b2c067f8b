// Package auth provides authentication and authorization for mcp-gateway.
//
// # Authentication Modes
//
// Two bearer-credential modes coexist against the same endpoints:
//
//   - Shared secret: the credential must exactly match a configured constant.
//     Comparison is constant-time over fixed-length digests. A matching
//     caller is allowed on every endpoint.
//
//   - OAuth2 client credentials: the credential is a JWT verified against
//     the identity provider's published signing keys (fetched and cached
//     from its well-known discovery document, never embedded statically).
//     Issuer, audience, signature, and expiry are all checked, with a
//     configurable clock-skew tolerance. Access is then gated per endpoint
//     and per tool by scope.
//
// A presented credential is compared against the shared secret first; on
// mismatch it takes the OAuth2 path if it has JWT shape, and is rejected
// otherwise. Validation is fail-closed: no ambiguous or failed check ever
// falls through to allow.
//
// # Identity
//
// Successful validation produces an Identity — a tagged variant over the two
// modes carrying the client id and granted scopes. Identities are derived
// fresh per request and never persisted.
//
// # Scope Authorization
//
// Authorize(identity, requiredScope) is a pure function: shared-secret
// identities always pass, oauth_client identities pass iff the scope is in
// their scope set, and an empty required scope always passes. The endpoint
// policy mapping paths (and tools) to scopes is loaded once at startup and
// immutable thereafter.
//
// # Shared State
//
// The only process-wide mutable state is the OIDC discovery result and the
// provider's remote key set. Discovery is lazy and single-flight; key
// refreshes on unknown key ids are coalesced by the key set itself.
package auth
