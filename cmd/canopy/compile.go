package main

import (
	"fmt"
	"os"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <graph.json>",
	Short: "Check a graph export for structural errors",
	Long: `Compiles the graph without connecting to any MCP server or OpenAPI endpoint and reports
the first structural error (cycle, missing entry point, bad output schema...).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := setup(cmd)
		wf := validate(cmd, cfg.LLM(), args)

		fmt.Printf("Graph is valid! Entry point: %s\n", wf.EntryPoint().Name())
		for _, name := range wf.Names() {
			n, _ := wf.Lookup(name)
			fmt.Printf("- %s (%s)\n", name, n.Kind())
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <graph.json>",
	Short: "Print the compiled hierarchy as YAML",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := setup(cmd)
		wf := validate(cmd, cfg.LLM(), args)

		out, err := graph.ExportYAML(wf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting workflow: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
	},
}

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph.json>",
	Short: "Export the hierarchy visualization",
	Long:  `Compiles the graph and outputs a Mermaid diagram (graph TD) of supervisors, agents and delegation edges.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := setup(cmd)
		wf := validate(cmd, cfg.LLM(), args)
		fmt.Print(graph.GenerateMermaid(wf, nil))
	},
}

func init() {
	rootCmd.AddCommand(compileCmd, exportCmd, graphCmd)
}

// validate compiles the graph named by args, exiting with the structural error on failure.
func validate(cmd *cobra.Command, llm *domain.LLMConfig, args []string) *domain.Workflow {
	wf, err := canopy.Validate(cmd.Context(), readGraph(args), llm)
	if err != nil {
		if domain.IsStructural(err) {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error compiling graph: %v\n", err)
		}
		os.Exit(1)
	}
	return wf
}
