// ABOUTME: Admin CLI for inspecting and managing gateway sessions
// ABOUTME: Operates directly on the session database, no running gateway needed

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/serverless-mcp/mcp-gateway/internal/config"
	"github.com/serverless-mcp/mcp-gateway/internal/session"
)

const banner = `
 _ __ ___   ___ _ __         __ _  __| |_ __ ___ (_)_ __
| '_ ' _ \ / __| '_ \ _____ / _' |/ _' | '_ ' _ \| | '_ \
| | | | | | (__| |_) |_____| (_| | (_| | | | | | | | | | |
|_| |_| |_|\___| .__/       \__,_|\__,_|_| |_| |_|_|_| |_|
               |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "sessions":
		err = cmdSessions(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: mcp-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  sessions                 List active sessions")
	fmt.Println("  sessions list            List active sessions")
	fmt.Println("  sessions show <id>       Show one session, including its payload")
	fmt.Println("  sessions delete <id>     Delete a session by ID")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  MCP_GATEWAY_CONFIG       Path to the gateway config file")
	fmt.Println()
}

// openStore loads the gateway config and opens its session database.
func openStore() (*session.SQLiteStore, error) {
	configPath := os.Getenv("MCP_GATEWAY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("MCP_GATEWAY_CONFIG environment variable is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := session.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return store, nil
}

func cmdSessions(args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return sessionsList()
	case "show":
		if len(args) != 1 {
			return fmt.Errorf("usage: mcp-admin sessions show <id>")
		}
		return sessionsShow(args[0])
	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("usage: mcp-admin sessions delete <id>")
		}
		return sessionsDelete(args[0])
	default:
		return fmt.Errorf("unknown sessions subcommand: %s", sub)
	}
}

func sessionsList() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sessions, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No active sessions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tUPDATED\tEXPIRES\tPAYLOAD")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d bytes\n",
			s.ID,
			s.CreatedAt.Format(time.RFC3339),
			s.UpdatedAt.Format(time.RFC3339),
			s.ExpiresAt.Format(time.RFC3339),
			len(s.Payload),
		)
	}
	return w.Flush()
}

func sessionsShow(id string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching session: %w", err)
	}

	cyan := color.New(color.FgCyan)
	cyan.Println("Session")
	cyan.Println("-------")
	fmt.Printf("ID:      %s\n", s.ID)
	fmt.Printf("Created: %s\n", s.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated: %s\n", s.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("Expires: %s\n", s.ExpiresAt.Format(time.RFC3339))
	fmt.Println()

	if len(s.Payload) == 0 {
		fmt.Println("Payload: (empty)")
		return nil
	}

	var pretty map[string]any
	if err := json.Unmarshal(s.Payload, &pretty); err != nil {
		fmt.Printf("Payload: %s\n", s.Payload)
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting payload: %w", err)
	}
	fmt.Printf("Payload:\n%s\n", out)
	return nil
}

func sessionsDelete(id string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	color.Green("Deleted session %s\n", id)
	return nil
}
