package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetResolveCmd_Exists verifies getResolveCmd returns
// a valid command.
func TestGetResolveCmd_Exists(t *testing.T) {
	cmd := getResolveCmd()
	require.NotNil(t, cmd, "Resolve command should exist")
	assert.Equal(t, "resolve <mention>", cmd.Use,
		"Use line should show the mention argument")
	assert.Equal(t, "resolve", cmd.Name(),
		"Command name should be resolve")
}

// TestGetResolveCmd_ShortDescription verifies short
// description.
func TestGetResolveCmd_ShortDescription(t *testing.T) {
	cmd := getResolveCmd()

	assert.NotEmpty(t, cmd.Short,
		"Short description should not be empty")
	assert.Contains(t, cmd.Short, "OMOP",
		"Short description should mention OMOP")
}

// TestGetResolveCmd_LongDescription verifies long
// description.
func TestGetResolveCmd_LongDescription(t *testing.T) {
	cmd := getResolveCmd()

	assert.NotEmpty(t, cmd.Long,
		"Long description should not be empty")
	assert.Contains(t, cmd.Long, "cosine",
		"Long description should mention cosine similarity")
	assert.Contains(t, cmd.Long, "hints",
		"Long description should explain hints")
	assert.Contains(t, cmd.Long, "omoplink embed",
		"Long description should point at the embed step")
}

// TestGetResolveCmd_RequiresMention verifies argument
// validation.
func TestGetResolveCmd_RequiresMention(t *testing.T) {
	cmd := getResolveCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err,
		"Should error without a mention argument")
	assert.Contains(t, err.Error(), "accepts 1 arg",
		"Error should state the expected argument count")

	cmd = getResolveCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"chest pain", "extra"})

	err = cmd.Execute()
	require.Error(t, err,
		"Should error with more than one argument")
}

// TestGetResolveCmd_DomainsFlag verifies --domains flag exists.
func TestGetResolveCmd_DomainsFlag(t *testing.T) {
	cmd := getResolveCmd()

	flag := cmd.Flags().Lookup("domains")
	require.NotNil(t, flag,
		"--domains flag should exist")

	assert.Equal(t, "d", flag.Shorthand,
		"Short form should be -d")
	assert.Contains(t, flag.Usage, "domain",
		"Usage should mention domains")
}

// TestGetResolveCmd_VocabulariesFlag verifies --vocabularies
// flag exists.
func TestGetResolveCmd_VocabulariesFlag(t *testing.T) {
	cmd := getResolveCmd()

	flag := cmd.Flags().Lookup("vocabularies")
	require.NotNil(t, flag,
		"--vocabularies flag should exist")

	assert.Equal(t, "", flag.Shorthand,
		"Long form only")
	assert.Contains(t, flag.Usage, "vocabulary",
		"Usage should mention vocabularies")
}

// TestGetResolveCmd_TopFlag verifies --top flag exists.
func TestGetResolveCmd_TopFlag(t *testing.T) {
	cmd := getResolveCmd()

	flag := cmd.Flags().Lookup("top")
	require.NotNil(t, flag,
		"--top flag should exist")

	assert.Equal(t, "t", flag.Shorthand,
		"Short form should be -t")
	assert.Equal(t, "0", flag.DefValue,
		"Default should be 0 (use config value)")
	assert.Contains(t, flag.Usage, "nearest neighbors",
		"Usage should mention nearest neighbors")
}

// TestGetResolveCmd_JSONFlag verifies --json flag exists.
func TestGetResolveCmd_JSONFlag(t *testing.T) {
	cmd := getResolveCmd()

	flag := cmd.Flags().Lookup("json")
	require.NotNil(t, flag,
		"--json flag should exist")

	assert.Equal(t, "j", flag.Shorthand,
		"Short form should be -j")
	assert.Equal(t, "false", flag.DefValue,
		"Default should be false")
	assert.Contains(t, flag.Usage, "JSON",
		"Usage should mention JSON")
}

// TestGetResolveCmd_HelpText verifies help text content.
func TestGetResolveCmd_HelpText(t *testing.T) {
	cmd := getResolveCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	helpText := buf.String()
	assert.Contains(t, helpText, "resolve",
		"Help should mention resolve")
	assert.Contains(t, helpText, "--domains",
		"Help should mention --domains flag")
	assert.Contains(t, helpText, "--json",
		"Help should mention --json flag")
	assert.Contains(t, helpText, "Examples:",
		"Help should include examples")
	assert.Contains(t, helpText, `omoplink resolve "bacterial pneumonia"`,
		"Should show basic example")
}

// TestGetResolveCmd_IndependentInstances verifies each
// call returns independent instance.
func TestGetResolveCmd_IndependentInstances(t *testing.T) {
	cmd1 := getResolveCmd()
	cmd2 := getResolveCmd()

	// Should be different instances
	assert.NotSame(t, cmd1, cmd2,
		"Each call should return new instance")

	// Modifying one shouldn't affect the other
	cmd1.Short = "test1"
	cmd2.Short = "test2"

	assert.Equal(t, "test1", cmd1.Short)
	assert.Equal(t, "test2", cmd2.Short)
}
