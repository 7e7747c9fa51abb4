package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetBuildCmd_Exists verifies getBuildCmd returns
// a valid command.
func TestGetBuildCmd_Exists(t *testing.T) {
	cmd := getBuildCmd()
	require.NotNil(t, cmd, "Build command should exist")
	assert.Equal(t, "build", cmd.Use,
		"Command name should be build")
}

// TestGetBuildCmd_ShortDescription verifies short
// description.
func TestGetBuildCmd_ShortDescription(t *testing.T) {
	cmd := getBuildCmd()

	assert.NotEmpty(t, cmd.Short,
		"Short description should not be empty")
	assert.Contains(t, cmd.Short, "concept graph store",
		"Short description should mention the store")
}

// TestGetBuildCmd_LongDescription verifies long
// description.
func TestGetBuildCmd_LongDescription(t *testing.T) {
	cmd := getBuildCmd()

	assert.NotEmpty(t, cmd.Long,
		"Long description should not be empty")
	assert.Contains(t, cmd.Long, "SQLite",
		"Long description should mention SQLite")
	assert.Contains(t, cmd.Long, "sources.yaml",
		"Long description should mention sources.yaml")
	assert.Contains(t, cmd.Long, "fingerprint",
		"Long description should mention fingerprinting")
}

// TestGetBuildCmd_HasRunE verifies run function is set.
func TestGetBuildCmd_HasRunE(t *testing.T) {
	cmd := getBuildCmd()

	assert.NotNil(t, cmd.RunE,
		"RunE should be set")
}

// TestGetBuildCmd_SourcesDirFlag verifies --sources-dir
// flag exists.
func TestGetBuildCmd_SourcesDirFlag(t *testing.T) {
	cmd := getBuildCmd()

	flag := cmd.Flags().Lookup("sources-dir")
	require.NotNil(t, flag,
		"--sources-dir flag should exist")

	assert.Equal(t, "s", flag.Shorthand,
		"Short form should be -s")
	assert.Equal(t, "", flag.DefValue,
		"Default should be empty")
	assert.Contains(t, flag.Usage, "vocabulary",
		"Usage should mention vocabulary tables")
}

// TestGetBuildCmd_ForceFlag verifies --force flag exists.
func TestGetBuildCmd_ForceFlag(t *testing.T) {
	cmd := getBuildCmd()

	forceFlag := cmd.Flags().Lookup("force")
	require.NotNil(t, forceFlag,
		"--force flag should exist")

	assert.Equal(t, "f", forceFlag.Shorthand,
		"Short form should be -f")
	assert.Equal(t, "false", forceFlag.DefValue,
		"Default should be false")
	assert.Contains(t, forceFlag.Usage, "rebuild",
		"Usage should mention rebuild")
}

// TestGetBuildCmd_HelpText verifies help text content.
func TestGetBuildCmd_HelpText(t *testing.T) {
	cmd := getBuildCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	helpText := buf.String()
	assert.Contains(t, helpText, "build",
		"Help should mention build")
	assert.Contains(t, helpText, "--sources-dir",
		"Help should mention --sources-dir flag")
	assert.Contains(t, helpText, "--force",
		"Help should mention --force flag")
	assert.Contains(t, helpText, "Examples:",
		"Help should include examples")
}

// TestGetBuildCmd_Examples verifies examples in help.
func TestGetBuildCmd_Examples(t *testing.T) {
	cmd := getBuildCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	helpText := buf.String()
	assert.Contains(t, helpText, "omoplink build",
		"Should show basic example")
	assert.Contains(t, helpText, "omoplink build --force",
		"Should show force example")
	assert.Contains(t, helpText, "omoplink build --sources-dir",
		"Should show sources override example")
}

// TestGetBuildCmd_IndependentInstances verifies each
// call returns independent instance.
func TestGetBuildCmd_IndependentInstances(t *testing.T) {
	cmd1 := getBuildCmd()
	cmd2 := getBuildCmd()

	// Should be different instances
	assert.NotSame(t, cmd1, cmd2,
		"Each call should return new instance")

	// Modifying one shouldn't affect the other
	cmd1.Short = "test1"
	cmd2.Short = "test2"

	assert.Equal(t, "test1", cmd1.Short)
	assert.Equal(t, "test2", cmd2.Short)
}
