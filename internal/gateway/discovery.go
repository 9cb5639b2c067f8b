// ABOUTME: OAuth discovery endpoints served under /.well-known
// ABOUTME: Authorization-server metadata redirects to the issuer; resource metadata is static

package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/serverless-mcp/mcp-gateway/internal/config"
)

// registerDiscoveryRoutes mounts the RFC 8414 / RFC 9728 discovery endpoints.
// When OAuth2 validation is not configured the routes return 404 so clients
// don't attempt a token flow against a secret-only gateway.
func registerDiscoveryRoutes(mux *http.ServeMux, cfg *config.Config) {
	issuer := strings.TrimRight(cfg.Auth.OIDC.Issuer, "/")
	baseURL := strings.TrimRight(cfg.Server.BaseURL, "/")

	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Auth.OIDC.Enabled() {
			http.NotFound(w, r)
			return
		}
		// The issuer owns the authorization-server metadata; point clients
		// at its discovery document rather than mirroring it.
		http.Redirect(w, r, issuer+"/.well-known/openid-configuration", http.StatusFound)
	})

	mux.HandleFunc("/.well-known/oauth-protected-resource", func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Auth.OIDC.Enabled() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resource":                 baseURL,
			"authorization_servers":    []string{issuer},
			"bearer_methods_supported": []string{"header"},
		})
	})
}
