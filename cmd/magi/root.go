package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "magi",
		Short:         "magi: ask a council of AI agents and get one deliberated answer",
		Long:          "magi fans your question out to a council of personality agents, has a judge score their answers, and synthesizes one final response. State lives in ~/.magi.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newAskCmd(),
		newChatCmd(),
		newHistoryCmd(),
		newClearCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
