// ABOUTME: MCP command starts a Model Context Protocol server on stdio
// ABOUTME: Lets LLM agents ask questions, run SQL and read schema memory through chat2db
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs chat2db as an MCP (Model Context Protocol) server, so agents can
ask the database assistant questions, execute SQL as an admin and read
schema memory via stdio.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an agent host)
  chat2db mcp

  # Configure in the host's config file:
  # {
  #   "mcpServers": {
  #     "chat2db": {
  #       "command": "chat2db",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol, so logs must stay structured on stderr
	a, err := openApp(cmd, appOptions{requireCompleter: true, logFormat: "json"})
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("chat2db", versionInfo.Version)
	mcp.RegisterTools(server, a.mediator, a.users, a.schema, a.log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		a.log.Info("chat2db MCP server starting on stdio")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			a.log.Info("shutdown signal received")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
