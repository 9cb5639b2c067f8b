// Package config handles configuration loading for mcp-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  shared_secret: "${MCP_SHARED_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	sessions:
//	  ttl: "15m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  base_url: "https://gateway.example.com"
//
// Session database:
//
//	database:
//	  path: "/var/lib/mcp-gateway/sessions.db"
//
// Authentication (either or both modes):
//
//	auth:
//	  shared_secret: "${MCP_SHARED_SECRET}"
//	  oidc:
//	    issuer: "https://cognito-idp.eu-central-1.amazonaws.com/pool-id"
//	    client_ids: ["client-all", "client-fetch-all"]
//	    clock_skew: "30s"
//	    http_timeout: "5s"
//
// Tool endpoints with scope policy:
//
//	endpoints:
//	  - path: "/add_two_numbers/mcp"
//	    handler: "math"
//	    scope: ""
//	  - path: "/api_wrapper/mcp"
//	    handler: "products"
//	    tool_scopes:
//	      fetch_all_products: "products/fetch_all"
//	      filter_by_price_range: "products/filter_price"
//	      filter_by_stock_availability: "products/filter_stock"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/mcp-gateway/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
