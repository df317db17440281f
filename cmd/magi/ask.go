package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kingrea/magi-council/internal/council"
	"github.com/kingrea/magi-council/internal/judge"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	answerBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1)
)

func newAskCmd() *cobra.Command {
	var sessionID string
	var verbose bool
	var noSave bool

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the council a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp()
			if err != nil {
				return err
			}
			defer a.close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			query := strings.Join(args, " ")

			result, askErr := a.system.Ask(cmd.Context(), sessionID, query)
			printResult(cmd, result, verbose)

			if !noSave && a.cfg.AutoSaveResults && askErr == nil {
				if path, err := a.results.Save(result); err == nil {
					cmd.Printf("\n%s\n", scoreStyle.Render("saved to "+path))
				}
			}
			return askErr
		},
	}

	askCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session ID for conversation continuity (default: new session)")
	askCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show each member's full answer")
	askCmd.Flags().BoolVar(&noSave, "no-save", false, "skip auto-saving the result")
	return askCmd
}

func printResult(cmd *cobra.Command, result council.Result, verbose bool) {
	cmd.Println(headerStyle.Render("Council verdict"))
	for _, score := range result.Evaluation.Scores {
		marker := ""
		if score.Unparseable {
			marker = " (default score, verdict was unparseable)"
		}
		cmd.Println(scoreStyle.Render(fmt.Sprintf("  %s · %d/%d · %s%s", score.Agent, score.Score, judge.MaxScore, score.Rationale, marker)))
	}
	for _, resp := range result.Responses {
		if !resp.Success {
			cmd.Println(failStyle.Render(fmt.Sprintf("  %s · failed · %s", resp.Agent, resp.Err)))
		}
	}
	if len(result.Evaluation.Agreements) > 0 {
		cmd.Println(scoreStyle.Render("  agreement: " + strings.Join(result.Evaluation.Agreements, "; ")))
	}
	if len(result.Evaluation.Conflicts) > 0 {
		cmd.Println(scoreStyle.Render("  conflicts: " + strings.Join(result.Evaluation.Conflicts, "; ")))
	}

	if verbose {
		for _, resp := range result.Responses {
			if !resp.Success {
				continue
			}
			cmd.Printf("\n%s\n%s\n", headerStyle.Render(fmt.Sprintf("%s (%s)", resp.Agent, resp.Role)), resp.Answer)
			for _, inv := range resp.Invocations {
				cmd.Println(scoreStyle.Render(fmt.Sprintf("  tool %s(%q)", inv.Tool, inv.Query)))
			}
		}
	}

	cmd.Printf("\n%s\n", answerBox.Render(result.FinalAnswer))
}
