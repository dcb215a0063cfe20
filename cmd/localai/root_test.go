package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innerline/local-ai-packaged/internal/core/stack"
)

func TestRootCommand_Structure(t *testing.T) {
	root := newRootCommand()

	assert.Equal(t, "localai", root.Use)
	assert.True(t, root.SilenceUsage)
	assert.True(t, root.SilenceErrors)

	for flag, def := range map[string]string{
		"config":      "",
		"profile":     stack.DefaultProfile.String(),
		"environment": stack.DefaultEnvironment.String(),
		"log-level":   "",
	} {
		f := root.PersistentFlags().Lookup(flag)
		require.NotNil(t, f, "missing persistent flag %q", flag)
		assert.Equal(t, def, f.DefValue, "default of %q", flag)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{"down", "cleanup", "doctor", "history", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_Help(t *testing.T) {
	root := newRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())

	help := out.String()
	assert.Contains(t, help, "Supabase")
	assert.Contains(t, help, "Available Commands:")
	assert.Contains(t, help, "cleanup")
	assert.Contains(t, help, "doctor")
}

func TestCleanupCommand_DeepFlag(t *testing.T) {
	cmd := newCleanupCommand(&rootOptions{})

	f := cmd.Flags().Lookup("deep")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
}

func TestHistoryCommand_LimitFlag(t *testing.T) {
	cmd := newHistoryCommand(&rootOptions{})

	f := cmd.Flags().Lookup("limit")
	require.NotNil(t, f)
	assert.Equal(t, "20", f.DefValue)
}

func TestRootCommand_RejectsUnknownProfile(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"doctor", "--profile", "quantum"})
	root.SetOut(new(bytes.Buffer))

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantum")
}
