// ABOUTME: MCP tool handler implementations for the chat2db server
// ABOUTME: Errors are returned as tool results so the agent sees the message
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harper/chat2db/internal/core"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
	"github.com/harper/chat2db/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	mediator *core.Mediator
	users    *storage.UserRegistry
	schema   *storage.SchemaStore
	log      *logger.Logger
}

// NewHandlers creates the tool handlers
func NewHandlers(mediator *core.Mediator, users *storage.UserRegistry, schema *storage.SchemaStore, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{mediator: mediator, users: users, schema: schema, log: log}
}

// AskDatabase handles the ask_database tool
func (h *Handlers) AskDatabase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}
	username, err := request.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError("username argument is required and must be a string"), nil
	}

	user, err := h.users.Lookup(username)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown user: %v", err)), nil
	}

	turn, err := h.mediator.Ask(ctx, core.Session{User: *user, Database: request.GetString("database", "")}, message)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"reply":  turn.Reply,
		"is_sql": turn.IsSQL,
	}
	if turn.Outcome != nil {
		response["outcome"] = turn.Outcome
	}
	if turn.ExecErr != nil {
		response["execution_error"] = turn.ExecError()
	}
	if turn.Sync != nil {
		response["schema_sync"] = turn.Sync
	}
	return jsonResult(response)
}

// ExecuteSQL handles the execute_sql tool
func (h *Handlers) ExecuteSQL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := request.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError("sql argument is required and must be a string"), nil
	}
	username, err := request.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError("username argument is required and must be a string"), nil
	}

	user, err := h.users.Lookup(username)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown user: %v", err)), nil
	}
	if !user.IsAdmin() {
		return mcp.NewToolResultError(fmt.Sprintf("user %s is not an admin", user.Username)), nil
	}

	exec, err := h.mediator.Execute(ctx, sql)
	if err != nil {
		h.log.WarnErr("execute_sql failed", err)
		return mcp.NewToolResultError(fmt.Sprintf("execution failed: %v", err)), nil
	}
	return jsonResult(exec)
}

// ListSchemaMemory handles the list_schema_memory tool
func (h *Handlers) ListSchemaMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	database := request.GetString("database", "")

	tables := make([]models.TableSchema, 0)
	for _, t := range h.schema.Load() {
		if database == "" || strings.EqualFold(t.Database, database) {
			tables = append(tables, t)
		}
	}

	response := map[string]interface{}{
		"tables": tables,
		"count":  len(tables),
	}
	return jsonResult(response)
}

// ListDatabases handles the list_databases tool
func (h *Handlers) ListDatabases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dbs, err := h.mediator.AvailableDatabases(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list databases: %v", err)), nil
	}
	if dbs == nil {
		dbs = []string{}
	}
	return jsonResult(map[string]interface{}{"databases": dbs})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
