// ABOUTME: MCP server command implementation for sociality.
// ABOUTME: Starts the MCP server in stdio mode for AI agent integration.
package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcppkg "github.com/2389-research/sociality/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for AI agent integration.

The MCP server communicates via stdio, allowing AI agents like Claude
to read the feed, like, save, comment, and follow through a standardized
protocol. It shares the session with the sociality CLI.`,
	Annotations: map[string]string{annotationInteractive: "true"},
	RunE:        runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		if err := globalSession.Watch(ctx, globalStore); err != nil {
			globalLogger.Warn("session watch stopped", zap.Error(err))
		}
	}()

	server, err := mcppkg.NewServer(globalAuth, globalClient,
		mcppkg.WithPageSize(pageSize()),
		mcppkg.WithLogger(globalLogger.Named("mcp")),
	)
	if err != nil {
		return err
	}

	return server.Serve(ctx)
}
