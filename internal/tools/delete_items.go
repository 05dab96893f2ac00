package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/specforge/internal/merge"
	"github.com/HendryAvila/specforge/internal/spec"
	"github.com/HendryAvila/specforge/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// DeleteItemsTool handles the spec_delete_items MCP tool: the explicit
// deletion instruction. This is the only way items leave a
// specification — the pipeline never infers deletion from generation
// output omitting something.
type DeleteItemsTool struct {
	store store.Store
}

// NewDeleteItemsTool creates a DeleteItemsTool with its dependencies.
func NewDeleteItemsTool(st store.Store) *DeleteItemsTool {
	return &DeleteItemsTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteItemsTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_delete_items",
		mcp.WithDescription(
			"Explicitly remove named models, actions, or schedules from a "+
				"stored specification. Generation never deletes; this tool is "+
				"the only removal path.",
		),
		mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("The specification to modify"),
		),
		mcp.WithString("models",
			mcp.Description("Comma-separated model names or ids to remove"),
		),
		mcp.WithString("actions",
			mcp.Description("Comma-separated action names or ids to remove"),
		),
		mcp.WithString("schedules",
			mcp.Description("Comma-separated schedule names or ids to remove"),
		),
	)
}

// Handle processes the spec_delete_items tool call.
func (t *DeleteItemsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("spec_id", "")
	if id == "" {
		return mcp.NewToolResultError("'spec_id' is required"), nil
	}

	del := &merge.Deletions{
		Models:    splitNames(req.GetString("models", "")),
		Actions:   splitNames(req.GetString("actions", "")),
		Schedules: splitNames(req.GetString("schedules", "")),
	}
	if del.IsEmpty() {
		return mcp.NewToolResultError("nothing to delete — provide 'models', 'actions', or 'schedules'"), nil
	}

	existing, version, err := t.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("specification %q not found", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading specification: %w", err)
	}

	before := [3]int{len(existing.Models), len(existing.Actions), len(existing.Schedules)}
	result, _ := merge.Merge(existing, &spec.Specification{}, del)
	result.ID = existing.ID
	result.Touch()

	if _, err := t.store.Save(ctx, id, result, version, nil); err != nil {
		return nil, fmt.Errorf("saving specification: %w", err)
	}

	removed := []string{
		fmt.Sprintf("%d models", before[0]-len(result.Models)),
		fmt.Sprintf("%d actions", before[1]-len(result.Actions)),
		fmt.Sprintf("%d schedules", before[2]-len(result.Schedules)),
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Removed %s from `%s`.\n\n%s", strings.Join(removed, ", "), id, specSummary(result),
	)), nil
}
