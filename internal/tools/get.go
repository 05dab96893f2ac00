package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/HendryAvila/specforge/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// GetTool handles the spec_get MCP tool: it returns a stored
// specification as JSON.
type GetTool struct {
	store store.Store
}

// NewGetTool creates a GetTool with its dependencies.
func NewGetTool(st store.Store) *GetTool {
	return &GetTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_get",
		mcp.WithDescription(
			"Fetch a stored specification document by id, including all "+
				"models, actions, and schedules.",
		),
		mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("The specification id, as reported by spec_generate or spec_list"),
		),
	)
}

// Handle processes the spec_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("spec_id", "")
	if id == "" {
		return mcp.NewToolResultError("'spec_id' is required"), nil
	}

	doc, version, err := t.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("specification %q not found", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading specification: %w", err)
	}

	body, err := specJSON(doc)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"%s\n\nVersion %d\n\n```json\n%s\n```", specSummary(doc), version, body,
	)), nil
}
