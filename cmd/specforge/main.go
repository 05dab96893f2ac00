// SpecForge: specification generation MCP server.
//
// Turns natural-language requests into structured specifications (data
// models, actions, schedules) through a staged generation pipeline, and
// exposes the result over MCP stdio so any AI coding tool can drive it.
//
// Usage:
//
//	specforge serve    # Start MCP server (stdio transport)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sfserver "github.com/HendryAvila/specforge/internal/server"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("specforge v%s\n", sfserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := sfserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Println(`specforge - specification generation MCP server

Usage:
  specforge serve      Start the MCP server (stdio transport)
  specforge version    Show version
  specforge help       Show this help

Configuration:
  SPECFORGE_DATA_DIR   Override the data directory (default ~/.specforge)

Add to your MCP client configuration:
  {
    "mcpServers": {
      "specforge": {
        "command": "specforge",
        "args": ["serve"]
      }
    }
  }`)
}
