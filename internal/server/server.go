// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools that depend on abstractions. No
// business logic lives here — only wiring.
package server

import (
	"fmt"
	"log"
	"os"

	"github.com/HendryAvila/specforge/internal/oracle"
	"github.com/HendryAvila/specforge/internal/pipeline"
	"github.com/HendryAvila/specforge/internal/store"
	"github.com/HendryAvila/specforge/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools registered.
// This is the single place where all dependencies are resolved.
//
// The returned cleanup function closes the store's database connection
// and flushes the progress sink, and must be called on shutdown
// (typically via defer). It is always non-nil and safe to call even if
// initialization failed.
func New() (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	cfg := store.DefaultConfig()
	if dir := os.Getenv("SPECFORGE_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	st, err := store.New(cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}

	// Progress goes to stderr: stdout carries the MCP stdio transport.
	sink := pipeline.NewAsync(&pipeline.LogSink{
		Logger: log.New(os.Stderr, "specforge: ", log.LstdFlags),
	}, 64)

	orch := pipeline.New(oracle.NewHeuristic(), st, sink, pipeline.DefaultConfig())

	cleanup := func() {
		sink.Close()
		if err := st.Close(); err != nil {
			log.Printf("closing store: %v", err)
		}
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"specforge",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register specification tools ---

	generateTool := tools.NewGenerateTool(orch)
	s.AddTool(generateTool.Definition(), generateTool.Handle)

	getTool := tools.NewGetTool(st)
	s.AddTool(getTool.Definition(), getTool.Handle)

	listTool := tools.NewListTool(st)
	s.AddTool(listTool.Definition(), listTool.Handle)

	deleteItemsTool := tools.NewDeleteItemsTool(st)
	s.AddTool(deleteItemsTool.Definition(), deleteItemsTool.Handle)

	scoreTool := tools.NewScoreTool(st)
	s.AddTool(scoreTool.Definition(), scoreTool.Handle)

	return s, cleanup, nil
}

// noop is the cleanup returned when initialization fails before any
// resource was acquired.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use SpecForge effectively.
func serverInstructions() string {
	return `You have access to SpecForge, a specification generation MCP server.

## WHEN TO USE SpecForge

Use SpecForge when the user describes a system, workflow, or app idea in
natural language and wants it turned into a structured specification:
data models, actions (create/update automations), and schedules
(recurring automations).

## TOOLS

- spec_generate: run the staged pipeline for a natural-language command.
  Pass spec_id to extend an existing specification — generation only
  adds and refines, it never deletes.
- spec_get: fetch a stored specification by id.
- spec_list: list stored specifications.
- spec_delete_items: the only way to remove models, actions, or
  schedules. Name them explicitly.
- spec_score: re-validate a stored specification and recompute its
  quality score.

## WORKFLOW

1. spec_generate with the user's request. Report the quality score and
   any warnings back to the user.
2. Iterate: further spec_generate calls with the same spec_id refine the
   document without losing existing items.
3. When the user wants something removed, use spec_delete_items — do not
   try to remove items by rephrasing the generate command.

If a run fails partway, re-run spec_generate with the reported run_id to
resume from the last completed stage.`
}
