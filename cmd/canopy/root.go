package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/canopy/internal/config"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Canopy compiles visual agent graphs into runnable LLM hierarchies",
	Long: `Canopy turns a graph drawn in a node editor (supervisors, agents and their MCP or
OpenAPI capabilities) into a worker hierarchy, and serves it over HTTP, WebSocket or MCP
with per-session conversation history.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "Env files to load before reading the environment (default .env)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides CANOPY_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides CANOPY_LOG_FORMAT)")
}

// setup loads the configuration and builds the logger, letting persistent flags win over
// the environment.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	cfg, err := config.Load(envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat, _ = cmd.Flags().GetString("log-format")
	}
	return cfg, logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
}

// readGraph reads the graph file named by args[0], exiting on failure.
func readGraph(args []string) []byte {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading graph: %v\n", err)
		os.Exit(1)
	}
	return data
}
