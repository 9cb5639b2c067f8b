// ABOUTME: HTTP middleware enforcing credential validation and endpoint scope
// ABOUTME: Fail-closed; auth failures short-circuit before any session access

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Middleware returns an HTTP middleware that authenticates the request and
// enforces the endpoint-level scope from the given rule. On success the
// Identity is attached to the request context; tool-level scopes are checked
// later by the MCP handler via Authorize.
//
// resourceMetadataURL is advertised in WWW-Authenticate challenges per
// RFC 9728 so clients can locate the protected-resource metadata.
func Middleware(v *Validator, rule EndpointRule, resourceMetadataURL string) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				WriteUnauthorized(w, resourceMetadataURL, errMsg)
				return
			}

			identity, err := v.Validate(r.Context(), credential)
			if err != nil {
				logger.Debug("credential rejected", "path", r.URL.Path, "error", err)
				WriteUnauthorized(w, resourceMetadataURL, "invalid or expired credential")
				return
			}

			if err := Authorize(identity, rule.Scope); err != nil {
				logger.Debug("endpoint scope denied",
					"path", r.URL.Path,
					"client_id", identity.ClientID,
					"scope", rule.Scope,
				)
				WriteForbidden(w, resourceMetadataURL, rule.Scope)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WriteUnauthorized writes a 401 with an RFC 6750 WWW-Authenticate challenge.
func WriteUnauthorized(w http.ResponseWriter, resourceMetadataURL, message string) {
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf(`Bearer resource_metadata=%q`, resourceMetadataURL))
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", message)
}

// WriteForbidden writes a 403 with an insufficient_scope challenge naming
// the required scope.
func WriteForbidden(w http.ResponseWriter, resourceMetadataURL, requiredScope string) {
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf(`Bearer error="insufficient_scope", scope=%q, resource_metadata=%q`,
			requiredScope, resourceMetadataURL))
	writeJSONError(w, http.StatusForbidden, "insufficient_scope",
		"required scope: "+requiredScope)
}

// StatusForAuthError maps a validation/authorization error to an HTTP status.
func StatusForAuthError(err error) int {
	if errors.Is(err, ErrMissingScope) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
