package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"check", "validate", "batch", "serve", "deps"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "invoiceguard", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestValidateCommand_Flags(t *testing.T) {
	flag := validateCmd.Flags().Lookup("mode")
	require.NotNil(t, flag, "validate command should have --mode flag")
	assert.Equal(t, "balanced", flag.DefValue)

	require.NotNil(t, validateCmd.Flags().Lookup("report"))
	require.NotNil(t, validateCmd.Flags().Lookup("session"))
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "batch command should have --limit flag")
	assert.Equal(t, "0", flag.DefValue)

	mode := batchCmd.Flags().Lookup("mode")
	require.NotNil(t, mode)
	assert.Equal(t, "balanced", mode.DefValue)

	require.NotNil(t, batchCmd.Flags().Lookup("out"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestDepsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range depsCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"validate", "set", "rm"} {
		assert.True(t, names[name], "expected deps subcommand %q not found", name)
	}
}
