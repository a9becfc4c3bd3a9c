package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat <graph.json>",
	Short: "Chat with a hierarchy in the terminal",
	Long: `Compiles the graph and starts an interactive conversation. Delegations, tool calls and
agent answers are printed as they happen. History is stored in the configured backend, so
--session resumes an earlier conversation.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runChat(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runChat(cmd *cobra.Command, graph string) error {
	cfg, logger := setup(cmd)
	cfg.Graph = graph
	cfg.Watch, _ = cmd.Flags().GetBool("watch")
	sessionID, _ := cmd.Flags().GetString("session")
	quiet, _ := cmd.Flags().GetBool("quiet")
	plain, _ := cmd.Flags().GetBool("plain")
	interactive := term.IsTerminal(int(os.Stdout.Fd()))

	sc := cli.NewSignalContext(context.Background())
	defer sc.Cancel()

	studio, backend, err := buildStudio(sc, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer studio.Close()
	if err := startGraph(sc, studio, cfg, logger); err != nil {
		return err
	}

	if interactive {
		tui.PrintBanner(os.Stdout, canopy.Version)
	}
	opts := cli.ChatOptions{
		SessionID: sessionID,
		Quiet:     quiet,
		Markdown:  interactive && !plain,
	}
	return cli.RunChat(sc, studio, opts, os.Stdin, os.Stdout)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session ID to resume or create")
	chatCmd.Flags().BoolP("quiet", "q", false, "Print only final answers")
	chatCmd.Flags().Bool("watch", false, "Recompile when the graph file changes")
	chatCmd.Flags().Bool("plain", false, "Print answers as raw text instead of rendered markdown")
}
