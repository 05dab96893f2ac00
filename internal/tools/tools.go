// Package tools implements the MCP tool handlers for the specification
// pipeline.
//
// Each tool is a struct that receives dependencies via its constructor
// (DIP) and exposes a Definition for registration plus a Handle
// compatible with mcp-go's CallToolRequest signature.
//
// Design principles:
// - SRP: each file = one tool
// - DIP: tools depend on abstractions (store.Store, oracle.Generator), not concretions
// - OCP: new tools are added without modifying existing ones
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/specforge/internal/spec"
)

// splitNames parses a comma-separated list into trimmed, non-empty names.
func splitNames(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// specJSON renders a specification as indented JSON for tool results.
func specJSON(s *spec.Specification) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding specification: %w", err)
	}
	return string(data), nil
}

// specSummary renders a one-paragraph overview of a specification.
func specSummary(s *spec.Specification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", s.Name)
	if s.Domain != "" {
		fmt.Fprintf(&b, " (%s)", s.Domain)
	}
	fmt.Fprintf(&b, " — %d models, %d actions, %d schedules",
		len(s.Models), len(s.Actions), len(s.Schedules))
	if len(s.Models) > 0 {
		fmt.Fprintf(&b, "\nModels: %s", strings.Join(s.ModelNames(), ", "))
	}
	return b.String()
}
