package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/magi-council/internal/council"
)

func newClearCmd() *cobra.Command {
	var sessionID string
	var all bool

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Wipe council memory",
		Long:  "Wipe conversation memory for one session (--session) or for every agent and session (--all). Saved results are not touched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && sessionID == "" {
				return fmt.Errorf("pass --session <id> or --all")
			}
			a, err := wireApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if all {
				if err := a.store.ClearAll(ctx); err != nil {
					return err
				}
				cmd.Println("All memory cleared.")
				return nil
			}

			for _, runner := range a.runners {
				if err := a.store.Clear(ctx, runner.MemoryKey(), sessionID); err != nil {
					return fmt.Errorf("clear %s: %w", runner.Name(), err)
				}
			}
			if err := a.store.Clear(ctx, council.DeliberatorKey, sessionID); err != nil {
				return fmt.Errorf("clear deliberator: %w", err)
			}
			cmd.Printf("Memory cleared for session %s.\n", sessionID)
			return nil
		},
	}

	clearCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session to clear")
	clearCmd.Flags().BoolVar(&all, "all", false, "clear every agent's memory across all sessions")
	return clearCmd
}
