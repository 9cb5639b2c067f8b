// Package gateway assembles the MCP gateway HTTP surface: per-endpoint
// JSON-RPC handlers backed by durable sessions, the auth middleware chain,
// OAuth discovery routes, and a health check.
//
// Request flow for a tool call:
//
//	POST /<endpoint>/mcp
//	  -> auth.Middleware   credential validation + endpoint scope
//	  -> EndpointHandler   JSON-RPC dispatch
//	       tools/call      tool scope check, session load, tool run,
//	                       session persist when state changed
//
// Every failure closes the request: an unidentifiable caller never reaches
// a tool, and a tool is never invoked without its required scope.
package gateway
