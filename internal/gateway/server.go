// ABOUTME: HTTP server assembly: endpoint routing, auth middleware, health check
// ABOUTME: Each configured endpoint gets its own tool registry and scope rule

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/serverless-mcp/mcp-gateway/internal/auth"
	"github.com/serverless-mcp/mcp-gateway/internal/config"
	"github.com/serverless-mcp/mcp-gateway/internal/session"
	"github.com/serverless-mcp/mcp-gateway/internal/tools"
)

// Server is the assembled gateway: one MCP handler per configured endpoint,
// all fronted by the auth middleware, plus discovery and health routes.
type Server struct {
	cfg      *config.Config
	sessions session.Store
	handler  http.Handler
	httpSrv  *http.Server
	logger   *slog.Logger
}

// NewServer wires the gateway from configuration and a session store.
func NewServer(cfg *config.Config, sessions session.Store) (*Server, error) {
	logger := slog.Default().With("component", "server")

	var oidcValidator *auth.OIDCValidator
	if cfg.Auth.OIDC.Enabled() {
		oidcValidator = auth.NewOIDCValidator(auth.OIDCConfig{
			Issuer:      cfg.Auth.OIDC.Issuer,
			ClientIDs:   cfg.Auth.OIDC.ClientIDs,
			ClockSkew:   cfg.Auth.OIDC.ClockSkew,
			HTTPTimeout: cfg.Auth.OIDC.HTTPTimeout,
		})
	}
	validator := auth.NewValidator(cfg.Auth.SharedSecret, oidcValidator)

	policy, err := auth.NewEndpointPolicy(cfg.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("building endpoint policy: %w", err)
	}

	products := tools.NewProductsClient(
		cfg.Upstream.ProductsURL,
		cfg.Upstream.Timeout,
		cfg.Upstream.CacheTTL,
	)

	metadataURL := strings.TrimRight(cfg.Server.BaseURL, "/") + "/.well-known/oauth-protected-resource"

	mux := http.NewServeMux()
	for _, rule := range policy.Rules() {
		registry, err := tools.ForHandler(rule.Handler, products)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", rule.Path, err)
		}

		handler := NewEndpointHandler(
			rule, registry, sessions, cfg.Sessions.TTL,
			"mcp-gateway", metadataURL,
		)
		mux.Handle(rule.Path, auth.Middleware(validator, rule, metadataURL)(handler))

		logger.Info("endpoint registered",
			"path", rule.Path,
			"handler", rule.Handler,
			"scope", rule.Scope,
		)
	}

	registerDiscoveryRoutes(mux, cfg)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
	}
	s.handler = s.withRecovery(s.withRequestLogging(mux))
	s.httpSrv = &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// Handler returns the root HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe runs the HTTP server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "addr", s.cfg.Server.HTTPAddr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// withRequestLogging logs each request at debug level with method, path, and
// duration.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// withRecovery converts handler panics into 500s instead of dropped
// connections.
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
