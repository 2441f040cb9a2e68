// ABOUTME: MCP tool definitions and registration for the chat2db server
// ABOUTME: Exposes chat, direct execution, schema memory and database listing to agents
package mcp

import (
	"github.com/harper/chat2db/internal/core"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, mediator *core.Mediator, users *storage.UserRegistry, schema *storage.SchemaStore, log *logger.Logger) *Handlers {
	handlers := NewHandlers(mediator, users, schema, log)

	// 1. ask_database - natural language question answered through the model
	server.AddTool(mcp.Tool{
		Name:        "ask_database",
		Description: "Ask a question about a SQL Server database in natural language. The model answers from schema memory; SQL replies are executed and their results returned.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "Question or instruction for the database assistant",
				},
				"username": map[string]interface{}{
					"type":        "string",
					"description": "Registered user the conversation belongs to",
				},
				"database": map[string]interface{}{
					"type":        "string",
					"description": "Optional database to run against",
				},
			},
			Required: []string{"message", "username"},
		},
	}, handlers.AskDatabase)

	// 2. execute_sql - run a script and keep schema memory in sync (admins only)
	server.AddTool(mcp.Tool{
		Name:        "execute_sql",
		Description: "Execute a T-SQL script (GO-separated batches allowed). CREATE TABLE and DROP effects update schema memory. Requires an admin user.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sql": map[string]interface{}{
					"type":        "string",
					"description": "T-SQL script to execute",
				},
				"username": map[string]interface{}{
					"type":        "string",
					"description": "Admin user running the script",
				},
			},
			Required: []string{"sql", "username"},
		},
	}, handlers.ExecuteSQL)

	// 3. list_schema_memory - the verified table facts
	server.AddTool(mcp.Tool{
		Name:        "list_schema_memory",
		Description: "List the tables and columns held in schema memory, optionally for one database.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"database": map[string]interface{}{
					"type":        "string",
					"description": "Only list tables of this database",
				},
			},
		},
	}, handlers.ListSchemaMemory)

	// 4. list_databases - live databases that have been clarified
	server.AddTool(mcp.Tool{
		Name:        "list_databases",
		Description: "List databases that exist on the server and are present in schema memory.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListDatabases)

	return handlers
}
