// ABOUTME: Configuration loading and parsing for mcp-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete mcp-gateway configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Auth      AuthConfig       `yaml:"auth"`
	Sessions  SessionsConfig   `yaml:"sessions"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
	Upstream  UpstreamConfig   `yaml:"upstream"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	// BaseURL is the external URL of the gateway, used in discovery metadata
	// and WWW-Authenticate headers. Defaults to http://<http_addr>.
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig holds session database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration.
// Both modes may be active at once: a presented bearer token is first compared
// against the shared secret (constant-time), and only on mismatch is it
// treated as an OAuth2 JWT.
type AuthConfig struct {
	SharedSecret string     `yaml:"shared_secret"`
	OIDC         OIDCConfig `yaml:"oidc"`
}

// OIDCConfig holds OAuth2/OIDC token validation configuration
type OIDCConfig struct {
	Issuer    string   `yaml:"issuer"`
	ClientIDs []string `yaml:"client_ids"`

	ClockSkew   time.Duration `yaml:"-"`
	HTTPTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	ClockSkewRaw   string `yaml:"clock_skew"`
	HTTPTimeoutRaw string `yaml:"http_timeout"`
}

// Enabled reports whether OAuth2 token validation is configured.
func (c OIDCConfig) Enabled() bool {
	return c.Issuer != ""
}

// SessionsConfig holds session lifetime configuration
type SessionsConfig struct {
	TTL time.Duration `yaml:"-"`

	TTLRaw string `yaml:"ttl"`
}

// EndpointConfig declares one tool endpoint exposed by the gateway.
type EndpointConfig struct {
	// Path is the HTTP path of the MCP endpoint, e.g. "/add_two_numbers/mcp".
	Path string `yaml:"path"`
	// Handler names the tool set served at this path ("math" or "products").
	Handler string `yaml:"handler"`
	// Scope is the OAuth2 scope required to reach the endpoint at all.
	// Empty means the endpoint itself is reachable by any valid identity;
	// individual tools may still require scopes.
	Scope string `yaml:"scope"`
	// ToolScopes maps tool names to the scope required to invoke them.
	// Tools not listed require no scope beyond the endpoint scope.
	ToolScopes map[string]string `yaml:"tool_scopes"`
}

// UpstreamConfig holds configuration for the products API proxy
type UpstreamConfig struct {
	ProductsURL string `yaml:"products_url"`

	Timeout  time.Duration `yaml:"-"`
	CacheTTL time.Duration `yaml:"-"`

	TimeoutRaw  string `yaml:"timeout"`
	CacheTTLRaw string `yaml:"cache_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied after parsing when fields are unset.
const (
	DefaultSessionTTL      = 15 * time.Minute
	DefaultClockSkew       = 30 * time.Second
	DefaultAuthHTTPTimeout = 5 * time.Second
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultProductsURL     = "https://dummyjson.com/products"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in unset optional fields.
func (c *Config) applyDefaults() {
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = DefaultSessionTTL
	}
	if c.Auth.OIDC.ClockSkew == 0 {
		c.Auth.OIDC.ClockSkew = DefaultClockSkew
	}
	if c.Auth.OIDC.HTTPTimeout == 0 {
		c.Auth.OIDC.HTTPTimeout = DefaultAuthHTTPTimeout
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if c.Upstream.ProductsURL == "" {
		c.Upstream.ProductsURL = DefaultProductsURL
	}
	if c.Server.BaseURL == "" && c.Server.HTTPAddr != "" {
		c.Server.BaseURL = "http://" + c.Server.HTTPAddr
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.SharedSecret == "" && !c.Auth.OIDC.Enabled() {
		return fmt.Errorf("auth requires a shared_secret, an oidc issuer, or both")
	}

	if c.Auth.OIDC.Enabled() && len(c.Auth.OIDC.ClientIDs) == 0 {
		return fmt.Errorf("auth.oidc.client_ids is required when an issuer is configured")
	}

	if len(c.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}

	seen := make(map[string]bool, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		if ep.Path == "" {
			return fmt.Errorf("endpoints[%d].path is required", i)
		}
		if ep.Path[0] != '/' {
			return fmt.Errorf("endpoints[%d].path %q must start with /", i, ep.Path)
		}
		if seen[ep.Path] {
			return fmt.Errorf("duplicate endpoint path %q", ep.Path)
		}
		seen[ep.Path] = true
		if ep.Handler == "" {
			return fmt.Errorf("endpoints[%d].handler is required", i)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.Sessions.TTLRaw, &cfg.Sessions.TTL, "sessions.ttl"},
		{cfg.Auth.OIDC.ClockSkewRaw, &cfg.Auth.OIDC.ClockSkew, "auth.oidc.clock_skew"},
		{cfg.Auth.OIDC.HTTPTimeoutRaw, &cfg.Auth.OIDC.HTTPTimeout, "auth.oidc.http_timeout"},
		{cfg.Upstream.TimeoutRaw, &cfg.Upstream.Timeout, "upstream.timeout"},
		{cfg.Upstream.CacheTTLRaw, &cfg.Upstream.CacheTTL, "upstream.cache_ttl"},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
