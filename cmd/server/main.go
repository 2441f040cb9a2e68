// ABOUTME: Main entry point for the chat2db MCP server with stdio transport
// ABOUTME: For agent hosts that launch a binary without arguments; equivalent to "chat2db mcp"
package main

import (
	"fmt"
	"os"

	"github.com/harper/chat2db/cmd/chat2db/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	root := commands.NewRootCmd()
	root.SetArgs(append([]string{"--quiet", "mcp"}, os.Args[1:]...))
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
