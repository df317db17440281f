package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kingrea/magi-council/internal/council"
	"github.com/kingrea/magi-council/internal/tui"
)

func newChatCmd() *cobra.Command {
	var sessionID string

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive council session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp()
			if err != nil {
				return err
			}
			defer a.close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			var opts []tui.ChatOption
			if a.cfg.AutoSaveResults {
				opts = append(opts, tui.WithResultSink(func(result council.Result) {
					_, _ = a.results.Save(result)
				}))
			}

			program := tea.NewProgram(
				tui.NewChat(a.system, sessionID, opts...),
				tea.WithAltScreen(),
			)
			_, err = program.Run()
			return err
		},
	}

	chatCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session ID to resume (default: new session)")
	return chatCmd
}
