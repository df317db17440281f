package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootListsSubcommands(t *testing.T) {
	out, err := runCommand(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"ask", "chat", "history", "clear", "version"} {
		require.Contains(t, out, name)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "magi ")
}

func TestClearRequiresScope(t *testing.T) {
	_, err := runCommand(t, "clear")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--session")
}

func TestAskRequiresQuestion(t *testing.T) {
	_, err := runCommand(t, "ask")
	require.Error(t, err)
}

func TestFirstLine(t *testing.T) {
	require.Equal(t, "adopt", firstLine("adopt\nwith safeguards"))
	long := strings.Repeat("a", 200)
	require.Len(t, firstLine(long), 123)
	require.True(t, strings.HasSuffix(firstLine(long), "..."))
}
