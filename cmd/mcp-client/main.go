// ABOUTME: Test client for exercising gateway endpoints end to end
// ABOUTME: Supports shared-secret tokens and the OAuth2 client-credentials flow

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/oauth2/clientcredentials"
)

func main() {
	var (
		gatewayURL = flag.String("gateway", "http://localhost:8080", "Gateway base URL")
		endpoint   = flag.String("endpoint", "/add_two_numbers/mcp", "MCP endpoint path")
		token      = flag.String("token", os.Getenv("MCP_TOKEN"), "Bearer token (shared secret or pre-issued JWT)")
		tokenURL   = flag.String("token-url", os.Getenv("MCP_TOKEN_URL"), "OAuth2 token endpoint for client-credentials")
		clientID   = flag.String("client-id", os.Getenv("MCP_CLIENT_ID"), "OAuth2 client ID")
		clientSec  = flag.String("client-secret", os.Getenv("MCP_CLIENT_SECRET"), "OAuth2 client secret")
		scopes     = flag.String("scopes", "", "OAuth2 scopes (space-separated)")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client [flags] <command> [args]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  list                 List the endpoint's tools")
		fmt.Fprintln(os.Stderr, "  call <tool> <json>   Call a tool with JSON arguments")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bearer, err := resolveToken(ctx, *token, *tokenURL, *clientID, *clientSec, *scopes)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	c := &client{
		url:    strings.TrimRight(*gatewayURL, "/") + *endpoint,
		bearer: bearer,
		http:   &http.Client{Timeout: 30 * time.Second},
	}

	switch flag.Arg(0) {
	case "list":
		err = c.listTools(ctx)
	case "call":
		if flag.NArg() < 2 {
			err = fmt.Errorf("usage: mcp-client call <tool> [json-args]")
			break
		}
		args := "{}"
		if flag.NArg() > 2 {
			args = flag.Arg(2)
		}
		err = c.callTool(ctx, flag.Arg(1), args)
	default:
		err = fmt.Errorf("unknown command: %s", flag.Arg(0))
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveToken returns a bearer token: the static one if given, otherwise
// one obtained via the OAuth2 client-credentials grant.
func resolveToken(ctx context.Context, static, tokenURL, clientID, clientSecret, scopes string) (string, error) {
	if static != "" {
		return static, nil
	}
	if tokenURL == "" {
		return "", fmt.Errorf("either --token or --token-url with client credentials is required")
	}

	cfg := clientcredentials.Config{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       strings.Fields(scopes),
	}
	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching token: %w", err)
	}
	return tok.AccessToken, nil
}

type client struct {
	url       string
	bearer    string
	sessionID string
	http      *http.Client
	nextID    int
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// rpc sends one JSON-RPC request and decodes the response.
func (c *client) rpc(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.nextID++
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      c.nextID,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	if c.sessionID != "" {
		req.Header.Set("Mcp-Session-Id", c.sessionID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		challenge := resp.Header.Get("WWW-Authenticate")
		if challenge != "" {
			return nil, fmt.Errorf("gateway returned %d (%s)", resp.StatusCode, challenge)
		}
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		c.sessionID = sid
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

// initialize performs the MCP handshake and captures the session ID.
func (c *client) initialize(ctx context.Context) error {
	_, err := c.rpc(ctx, "initialize", map[string]any{
		"protocolVersion": "2025-03-26",
		"clientInfo":      map[string]string{"name": "mcp-client", "version": "1.0.0"},
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

func (c *client) listTools(ctx context.Context) error {
	if err := c.initialize(ctx); err != nil {
		return err
	}

	result, err := c.rpc(ctx, "tools/list", nil)
	if err != nil {
		return err
	}

	var list struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(result, &list); err != nil {
		return fmt.Errorf("decoding tool list: %w", err)
	}

	cyan := color.New(color.FgCyan)
	for _, t := range list.Tools {
		cyan.Printf("%s", t.Name)
		fmt.Printf("  %s\n", t.Description)
	}
	return nil
}

func (c *client) callTool(ctx context.Context, name, args string) error {
	if err := c.initialize(ctx); err != nil {
		return err
	}

	var parsedArgs json.RawMessage
	if err := json.Unmarshal([]byte(args), &parsedArgs); err != nil {
		return fmt.Errorf("arguments must be valid JSON: %w", err)
	}

	result, err := c.rpc(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": parsedArgs,
	})
	if err != nil {
		return err
	}

	var callResult struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(result, &callResult); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}

	for _, content := range callResult.Content {
		fmt.Println(content.Text)
	}
	return nil
}
