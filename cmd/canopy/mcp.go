package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts Canopy as an MCP Server.
This lets other agents (like Claude Desktop) converse with a compiled hierarchy as a tool.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMCP(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "MCP Server execution failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func runMCP(cmd *cobra.Command) error {
	cfg, logger := setup(cmd)
	if cmd.Flags().Changed("graph") {
		cfg.Graph, _ = cmd.Flags().GetString("graph")
	}
	transport, _ := cmd.Flags().GetString("transport")
	addr, _ := cmd.Flags().GetString("addr")
	baseURL, _ := cmd.Flags().GetString("base-url")
	if transport != "stdio" && transport != "sse" {
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	}

	sc := cli.NewSignalContext(context.Background())
	defer sc.Cancel()

	studio, backend, err := buildStudio(sc, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer studio.Close()

	if cfg.Graph != "" {
		if err := startGraph(sc, studio, cfg, logger); err != nil {
			return err
		}
	}

	srv := mcp.NewServer(studio, mcp.WithLogger(logger))

	if transport == "stdio" {
		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		logger.Info("Starting Canopy MCP Server (Stdio)...")
		return srv.ServeStdio()
	}

	if baseURL == "" {
		baseURL = "http://localhost" + addr
	}
	logger.Info("Starting Canopy MCP Server (SSE)", "addr", addr, "base_url", baseURL)
	if err := srv.ServeSSE(sc, addr, baseURL); err != nil {
		return err
	}
	logger.Info("MCP Server stopped gracefully")
	return nil
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8080", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL advertised to SSE clients (default http://localhost<addr>)")
	mcpCmd.Flags().String("graph", "", "Graph export to compile at startup (overrides CANOPY_GRAPH)")
}
