// cmd/magi/main.go
//
// This is the entry point for the magi CLI.
// Subcommands: ask, chat, history, clear, version.

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
