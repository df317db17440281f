package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var sessionID string
	var limit int
	var show string

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List saved deliberation results",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp()
			if err != nil {
				return err
			}
			defer a.close()

			if show != "" {
				result, err := a.results.Load(show)
				if err != nil {
					return err
				}
				printResult(cmd, result, true)
				return nil
			}

			entries, err := a.results.List()
			if err != nil {
				return err
			}
			shown := 0
			for _, entry := range entries {
				if sessionID != "" && entry.SessionID != sessionID {
					continue
				}
				if limit > 0 && shown >= limit {
					break
				}
				shown++
				cmd.Println(headerStyle.Render(entry.AskedAt.Local().Format("2006-01-02 15:04") + "  " + entry.Query))
				cmd.Println(scoreStyle.Render(fmt.Sprintf("  session %s · %s", entry.SessionID, entry.Path)))
				cmd.Println("  " + firstLine(entry.FinalAnswer))
			}
			if shown == 0 {
				cmd.Println("No saved results.")
			}
			return nil
		},
	}

	historyCmd.Flags().StringVarP(&sessionID, "session", "s", "", "only show results from this session")
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results to list (0 = all)")
	historyCmd.Flags().StringVar(&show, "show", "", "print one saved result in full by path")
	return historyCmd
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	if len(text) > 120 {
		text = text[:120] + "..."
	}
	return text
}
