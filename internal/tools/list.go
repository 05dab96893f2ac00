package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/specforge/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListTool handles the spec_list MCP tool.
type ListTool struct {
	store store.Store
}

// NewListTool creates a ListTool with its dependencies.
func NewListTool(st store.Store) *ListTool {
	return &ListTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_list",
		mcp.WithDescription("List all stored specifications with their sizes and versions."),
	)
}

// Handle processes the spec_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := t.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing specifications: %w", err)
	}
	if len(summaries) == 0 {
		return mcp.NewToolResultText("No specifications stored yet. Use spec_generate to create one."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Specifications (%d)\n\n", len(summaries))
	for _, s := range summaries {
		name := s.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(&b, "- `%s` — %s: %d models, %d actions, %d schedules (v%d, updated %s)\n",
			s.ID, name, s.Models, s.Actions, s.Schedules, s.Version, s.UpdatedAt)
	}
	return mcp.NewToolResultText(b.String()), nil
}
