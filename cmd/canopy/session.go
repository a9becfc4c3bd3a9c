package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored conversation sessions",
	Long:  `List, inspect, and remove sessions in the configured history backend (CANOPY_HISTORY_BACKEND).`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	Run: func(cmd *cobra.Command, args []string) {
		sessions, closeFn := getSessions(cmd)
		defer closeFn()

		ids, err := sessions.List(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing sessions: %v\n", err)
			os.Exit(1)
		}

		if len(ids) == 0 {
			fmt.Println("No sessions found.")
			return
		}

		fmt.Println("Sessions:")
		for _, id := range ids {
			fmt.Println("- " + id)
		}
	},
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the chronological history of a session as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := args[0]
		sessions, closeFn := getSessions(cmd)
		defer closeFn()

		ok, err := sessions.Exists(cmd.Context(), sessionID)
		if err == nil && !ok {
			err = domain.ErrSessionNotFound
		}
		var msgs []domain.Message
		if err == nil {
			msgs, err = sessions.History(cmd.Context(), sessionID)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading session '%s': %v\n", sessionID, err)
			os.Exit(1)
		}
		if msgs == nil {
			msgs = []domain.Message{}
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(msgs, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling history: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		sessions, closeFn := getSessions(cmd)
		defer closeFn()

		if all, _ := cmd.Flags().GetBool("all"); all {
			ids, err := sessions.List(cmd.Context())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error listing sessions: %v\n", err)
				os.Exit(1)
			}
			args = ids
		}

		hasError := false
		for _, sessionID := range args {
			err := sessions.Delete(cmd.Context(), sessionID)
			switch {
			case errors.Is(err, domain.ErrSessionNotFound):
				fmt.Fprintf(os.Stderr, "Session '%s' not found\n", sessionID)
				hasError = true
			case err != nil:
				fmt.Fprintf(os.Stderr, "Error removing '%s': %v\n", sessionID, err)
				hasError = true
			default:
				fmt.Printf("Removed session '%s'\n", sessionID)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionHistoryCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}

// getSessions opens the configured history backend. The returned func closes it.
func getSessions(cmd *cobra.Command) (*session.Manager, func()) {
	cfg, logger := setup(cmd)
	backend, err := cli.NewBackend(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing history backend: %v\n", err)
		os.Exit(1)
	}
	return session.NewManager(backend.Store, session.WithLogger(logger)), func() { _ = backend.Close() }
}
