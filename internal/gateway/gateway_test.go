// ABOUTME: End-to-end tests driving the assembled gateway over httptest
// ABOUTME: Covers the session lifecycle, fail-closed auth, and store failures

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serverless-mcp/mcp-gateway/internal/config"
	"github.com/serverless-mcp/mcp-gateway/internal/session"
)

const testSecret = "dummy-token"

// testGateway bundles the assembled server with its backing store so tests
// can reach behind the HTTP surface.
type testGateway struct {
	srv   *Server
	store *session.MemoryStore
}

func newTestGateway(t *testing.T, mutate func(*config.Config)) *testGateway {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			HTTPAddr: "127.0.0.1:0",
			BaseURL:  "http://gateway.test",
		},
		Database: config.DatabaseConfig{Path: ":memory:"},
		Auth:     config.AuthConfig{SharedSecret: testSecret},
		Sessions: config.SessionsConfig{TTL: 15 * time.Minute},
		Endpoints: []config.EndpointConfig{
			{Path: "/add_two_numbers/mcp", Handler: "math"},
		},
		Upstream: config.UpstreamConfig{
			ProductsURL: "http://127.0.0.1:1/products",
			Timeout:     time.Second,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	store := session.NewMemoryStore()
	srv, err := NewServer(cfg, store)
	require.NoError(t, err)
	return &testGateway{srv: srv, store: store}
}

// rpc posts one JSON-RPC request to the endpoint and returns the recorder.
func (g *testGateway) rpc(t *testing.T, path, token, sessionID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	rec := httptest.NewRecorder()
	g.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// initialize performs the MCP handshake and returns the session ID.
func (g *testGateway) initialize(t *testing.T, path, token string) string {
	t.Helper()
	rec := g.rpc(t, path, token, "",
		`{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": {}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sessionID := rec.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sessionID)
	return sessionID
}

func decodeRPC(t *testing.T, rec *httptest.ResponseRecorder) JSONRPCResponse {
	t.Helper()
	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGateway_SessionLifecycle(t *testing.T) {
	g := newTestGateway(t, nil)
	path := "/add_two_numbers/mcp"

	sessionID := g.initialize(t, path, testSecret)

	// tools/list shows the math tool
	rec := g.rpc(t, path, testSecret, sessionID,
		`{"jsonrpc": "2.0", "id": 2, "method": "tools/list"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "add_two_numbers")

	// tools/call runs the tool and records into the session
	rec = g.rpc(t, path, testSecret, sessionID,
		`{"jsonrpc": "2.0", "id": 3, "method": "tools/call",
		  "params": {"name": "add_two_numbers", "arguments": {"a": 2, "b": 3}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeRPC(t, rec)
	require.Nil(t, resp.Error)

	var result MCPCallToolResult
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "5", result.Content[0].Text)

	// The call left a record in the durable session payload
	sess, err := g.store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(sess.Payload, &payload))
	assert.Equal(t, "add_two_numbers", payload["function"])

	// DELETE terminates the session; a second DELETE is a 404
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	req.Header.Set("Mcp-Session-Id", sessionID)
	rec = httptest.NewRecorder()
	g.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	g.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_WrongSecretRejected(t *testing.T) {
	g := newTestGateway(t, nil)

	rec := g.rpc(t, "/add_two_numbers/mcp", "wrong-token", "",
		`{"jsonrpc": "2.0", "id": 1, "method": "initialize"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "resource_metadata")
}

func TestGateway_MissingCredentialRejected(t *testing.T) {
	g := newTestGateway(t, nil)

	rec := g.rpc(t, "/add_two_numbers/mcp", "", "",
		`{"jsonrpc": "2.0", "id": 1, "method": "initialize"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateway_UnknownSessionIs404(t *testing.T) {
	g := newTestGateway(t, nil)

	rec := g.rpc(t, "/add_two_numbers/mcp", testSecret, "no-such-session",
		`{"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		  "params": {"name": "add_two_numbers", "arguments": {"a": 1, "b": 1}}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_ExpiredSessionIs404(t *testing.T) {
	g := newTestGateway(t, nil)
	path := "/add_two_numbers/mcp"

	now := time.Now()
	g.store.SetClock(func() time.Time { return now })

	sessionID := g.initialize(t, path, testSecret)

	now = now.Add(16 * time.Minute)
	rec := g.rpc(t, path, testSecret, sessionID,
		`{"jsonrpc": "2.0", "id": 2, "method": "tools/call",
		  "params": {"name": "add_two_numbers", "arguments": {"a": 1, "b": 1}}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_MissingSessionHeaderIs400(t *testing.T) {
	g := newTestGateway(t, nil)

	rec := g.rpc(t, "/add_two_numbers/mcp", testSecret, "",
		`{"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		  "params": {"name": "add_two_numbers", "arguments": {"a": 1, "b": 1}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_StoreUnavailableIs503(t *testing.T) {
	g := newTestGateway(t, nil)
	g.store.FailWrites = true

	rec := g.rpc(t, "/add_two_numbers/mcp", testSecret, "",
		`{"jsonrpc": "2.0", "id": 1, "method": "initialize"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGateway_NotificationsAccepted(t *testing.T) {
	g := newTestGateway(t, nil)
	path := "/add_two_numbers/mcp"
	sessionID := g.initialize(t, path, testSecret)

	rec := g.rpc(t, path, testSecret, sessionID,
		`{"jsonrpc": "2.0", "method": "notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGateway_UnknownMethod(t *testing.T) {
	g := newTestGateway(t, nil)
	sessionID := g.initialize(t, "/add_two_numbers/mcp", testSecret)

	rec := g.rpc(t, "/add_two_numbers/mcp", testSecret, sessionID,
		`{"jsonrpc": "2.0", "id": 2, "method": "resources/list"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCMethodNotFound, resp.Error.Code)
}

func TestGateway_UnknownToolIsInvalidParams(t *testing.T) {
	g := newTestGateway(t, nil)
	sessionID := g.initialize(t, "/add_two_numbers/mcp", testSecret)

	rec := g.rpc(t, "/add_two_numbers/mcp", testSecret, sessionID,
		`{"jsonrpc": "2.0", "id": 2, "method": "tools/call",
		  "params": {"name": "no_such_tool"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidParams, resp.Error.Code)
}

func TestGateway_InvalidToolArguments(t *testing.T) {
	g := newTestGateway(t, nil)
	sessionID := g.initialize(t, "/add_two_numbers/mcp", testSecret)

	rec := g.rpc(t, "/add_two_numbers/mcp", testSecret, sessionID,
		`{"jsonrpc": "2.0", "id": 2, "method": "tools/call",
		  "params": {"name": "add_two_numbers", "arguments": {"a": 2}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidParams, resp.Error.Code)
}

func TestGateway_MalformedJSON(t *testing.T) {
	g := newTestGateway(t, nil)

	rec := g.rpc(t, "/add_two_numbers/mcp", testSecret, "", `{not json`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCParseError, resp.Error.Code)
}

func TestGateway_GetNotAllowed(t *testing.T) {
	g := newTestGateway(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/add_two_numbers/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	g.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGateway_RequestBodyTooLarge(t *testing.T) {
	g := newTestGateway(t, nil)

	big := fmt.Sprintf(`{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": {"pad": %q}}`,
		bytes.Repeat([]byte("x"), MaxRequestBodySize))
	rec := g.rpc(t, "/add_two_numbers/mcp", testSecret, "", big)
	resp := decodeRPC(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidRequest, resp.Error.Code)
}

func TestGateway_Healthz(t *testing.T) {
	g := newTestGateway(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	g.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGateway_DiscoveryDisabledWithoutOIDC(t *testing.T) {
	g := newTestGateway(t, nil)

	for _, path := range []string{
		"/.well-known/oauth-authorization-server",
		"/.well-known/oauth-protected-resource",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		g.srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
