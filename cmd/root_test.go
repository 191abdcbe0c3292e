//go:build !integration

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

	for _, name := range []string{"serve", "import", "convert", "migrate", "pipeline", "sfpush"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "crm-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestImportCommand_Flags(t *testing.T) {
	flag := importCmd.Flags().Lookup("file")
	require.NotNil(t, flag, "import command should have --file flag")
	assert.NotNil(t, importCmd.Flags().Lookup("source"))
}

func TestConvertCommand_Flags(t *testing.T) {
	require.NotNil(t, convertCmd.Flags().Lookup("lead"))
	flag := convertCmd.Flags().Lookup("opportunity")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestPipelineCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range pipelineCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["load"])
	assert.True(t, names["show"])
}

func TestSfpushCommand_Flags(t *testing.T) {
	require.NotNil(t, sfpushCmd.Flags().Lookup("lead"))
}
