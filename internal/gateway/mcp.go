// ABOUTME: MCP endpoint handler implementing Streamable HTTP transport over JSON-RPC 2.0
// ABOUTME: Sessions are durable store records; tool calls are scope-checked per policy

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/serverless-mcp/mcp-gateway/internal/auth"
	"github.com/serverless-mcp/mcp-gateway/internal/session"
	"github.com/serverless-mcp/mcp-gateway/internal/tools"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2024-11-05": true,
	"2025-03-26": true,
}

// latestProtocolVersion is the version we advertise in initialize responses
const latestProtocolVersion = "2025-03-26"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// MCPToolInfo represents an MCP tool definition.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []MCPToolInfo `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// EndpointHandler serves one MCP tool endpoint. Authentication and the
// endpoint-level scope check have already run in middleware by the time a
// request reaches it; the handler enforces tool-level scopes and drives the
// session lifecycle against the durable store.
type EndpointHandler struct {
	rule        auth.EndpointRule
	registry    *tools.Registry
	sessions    session.Store
	sessionTTL  time.Duration
	serverName  string
	metadataURL string
	logger      *slog.Logger
}

// NewEndpointHandler creates the handler for one endpoint rule.
func NewEndpointHandler(
	rule auth.EndpointRule,
	registry *tools.Registry,
	sessions session.Store,
	sessionTTL time.Duration,
	serverName, metadataURL string,
) *EndpointHandler {
	return &EndpointHandler{
		rule:        rule,
		registry:    registry,
		sessions:    sessions,
		sessionTTL:  sessionTTL,
		serverName:  serverName,
		metadataURL: metadataURL,
		logger:      slog.Default().With("component", "gateway", "endpoint", rule.Path),
	}
}

// ServeHTTP dispatches by method per the Streamable HTTP transport.
func (h *EndpointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleDelete terminates a session explicitly.
func (h *EndpointHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	if _, err := h.sessions.Get(r.Context(), sessionID); err != nil {
		h.writeStoreError(w, err)
		return
	}

	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("session terminated", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// handlePost processes JSON-RPC messages sent via HTTP POST.
func (h *EndpointHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	protoVersion := r.Header.Get("Mcp-Protocol-Version")

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		h.sendJSONRPCError(w, nil, JSONRPCParseError, "failed to read request body", nil)
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		h.sendJSONRPCError(w, nil, JSONRPCInvalidRequest, "request body too large", nil)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.sendJSONRPCError(w, nil, JSONRPCParseError, "invalid JSON", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		h.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}

	isInitialize := req.Method == "initialize"
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	// Validate protocol version header (not required on initialize)
	if !isInitialize && protoVersion != "" && !supportedProtocolVersions[protoVersion] {
		http.Error(w, "Bad Request: unsupported Mcp-Protocol-Version", http.StatusBadRequest)
		return
	}

	// Handle notifications: accept and return HTTP 202 with no body
	if isNotification {
		if strings.HasPrefix(req.Method, "notifications/") {
			h.logger.Debug("accepted notification", "method", req.Method)
		} else {
			h.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch req.Method {
	case "initialize":
		h.handleInitialize(w, r, req)
	case "tools/list":
		h.handleToolsList(w, req)
	case "tools/call":
		h.handleToolsCall(w, r, req, sessionID)
	default:
		h.sendJSONRPCError(w, req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

// handleInitialize creates a durable session and returns the handshake result.
func (h *EndpointHandler) handleInitialize(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	sessionID, err := h.sessions.Create(r.Context(), nil, h.sessionTTL)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("session created", "session_id", sessionID, "ttl", h.sessionTTL)

	w.Header().Set("Mcp-Session-Id", sessionID)

	result := map[string]any{
		"protocolVersion": latestProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    h.serverName,
			"version": "1.0.0",
		},
	}
	h.sendJSONRPCResult(w, req.ID, result)
}

// handleToolsList returns the endpoint's tool definitions.
func (h *EndpointHandler) handleToolsList(w http.ResponseWriter, req JSONRPCRequest) {
	toolList := h.registry.List()
	result := MCPListToolsResult{
		Tools: make([]MCPToolInfo, len(toolList)),
	}
	for i, t := range toolList {
		result.Tools[i] = MCPToolInfo{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		}
	}

	h.logger.Debug("tools/list", "count", len(toolList))
	h.sendJSONRPCResult(w, req.ID, result)
}

// handleToolsCall enforces the tool-level scope, resolves the session, runs
// the tool, and persists the updated session state.
func (h *EndpointHandler) handleToolsCall(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, sessionID string) {
	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			h.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}
	if params.Name == "" {
		h.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool name is required", nil)
		return
	}

	tool, err := h.registry.Lookup(params.Name)
	if err != nil {
		h.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool not found", nil)
		return
	}

	// Tool-level scope check. The identity was placed in context by the
	// auth middleware; its absence means the middleware never ran, which
	// is a wiring bug we refuse open.
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		auth.WriteUnauthorized(w, h.metadataURL, "not authenticated")
		return
	}
	if requiredScope := h.rule.ToolScope(params.Name); requiredScope != "" {
		if err := auth.Authorize(identity, requiredScope); err != nil {
			h.logger.Debug("tool scope denied",
				"tool", params.Name,
				"client_id", identity.ClientID,
				"scope", requiredScope,
			)
			auth.WriteForbidden(w, h.metadataURL, requiredScope)
			return
		}
	}

	// Session resolution happens only after validation and authorization
	// have both passed.
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}
	sess, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	state, err := tools.NewState(sess.Payload)
	if err != nil {
		h.logger.Error("corrupt session payload", "session_id", sessionID, "error", err)
		h.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "corrupt session state", nil)
		return
	}

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	h.logger.Debug("tools/call", "tool", params.Name, "session_id", sessionID)

	result, err := tool.Call(r.Context(), state, args)
	if err != nil {
		h.handleToolError(w, req.ID, params.Name, err)
		return
	}

	if state.Dirty() {
		payload, err := state.Payload()
		if err != nil {
			h.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "encoding session state", nil)
			return
		}
		if err := h.sessions.Put(r.Context(), sessionID, payload, h.sessionTTL); err != nil {
			h.writeStoreError(w, err)
			return
		}
	}

	text, err := json.Marshal(result)
	if err != nil {
		h.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "encoding tool result", nil)
		return
	}

	h.sendJSONRPCResult(w, req.ID, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: string(text)}},
	})
}

// handleToolError maps tool execution failures to JSON-RPC errors.
func (h *EndpointHandler) handleToolError(w http.ResponseWriter, id json.RawMessage, toolName string, err error) {
	h.logger.Warn("tool execution failed", "tool", toolName, "error", err)

	code := JSONRPCInternalError
	message := "tool execution failed"

	switch {
	case errors.Is(err, tools.ErrInvalidArguments):
		code = JSONRPCInvalidParams
		message = err.Error()
	case errors.Is(err, tools.ErrToolNotFound):
		code = JSONRPCInvalidParams
		message = "tool not found"
	}

	h.sendJSONRPCError(w, id, code, message, nil)
}

// writeStoreError maps session store failures to HTTP statuses:
// stale/unknown session is a client error, backend failure is a 503.
func (h *EndpointHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, "Not Found: unknown or expired session", http.StatusNotFound)
	case errors.Is(err, session.ErrUnavailable):
		h.logger.Error("session store unavailable", "error", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error("session store failure", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// sendJSONRPCResult sends a successful JSON-RPC response.
func (h *EndpointHandler) sendJSONRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

// sendJSONRPCError sends a JSON-RPC error response.
func (h *EndpointHandler) sendJSONRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("failed to encode JSON-RPC error response", "error", err)
	}
}
