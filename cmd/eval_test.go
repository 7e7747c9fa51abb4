package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetEvalCmd_Exists verifies getEvalCmd returns
// a valid command.
func TestGetEvalCmd_Exists(t *testing.T) {
	cmd := getEvalCmd()
	require.NotNil(t, cmd, "Eval command should exist")
	assert.Equal(t, "eval", cmd.Use,
		"Command name should be eval")
}

// TestGetEvalCmd_ShortDescription verifies short
// description.
func TestGetEvalCmd_ShortDescription(t *testing.T) {
	cmd := getEvalCmd()

	assert.NotEmpty(t, cmd.Short,
		"Short description should not be empty")
	assert.Contains(t, cmd.Short, "evaluation harness",
		"Short description should mention the harness")
}

// TestGetEvalCmd_LongDescription verifies long
// description.
func TestGetEvalCmd_LongDescription(t *testing.T) {
	cmd := getEvalCmd()

	assert.NotEmpty(t, cmd.Long,
		"Long description should not be empty")
	assert.Contains(t, cmd.Long, "gold",
		"Long description should mention gold annotations")
	assert.Contains(t, cmd.Long, "precision, recall and F1",
		"Long description should mention the metrics")
	assert.Contains(t, cmd.Long, "inference only",
		"Long description should explain runs without gold")
}

// TestGetEvalCmd_HasRunE verifies run function is set.
func TestGetEvalCmd_HasRunE(t *testing.T) {
	cmd := getEvalCmd()

	assert.NotNil(t, cmd.RunE,
		"RunE should be set")
}

// TestGetEvalCmd_RequiredFlags verifies --notes and
// --mentions must be given.
func TestGetEvalCmd_RequiredFlags(t *testing.T) {
	cmd := getEvalCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err,
		"Should error without required flags")
	assert.Contains(t, err.Error(), "required flag",
		"Error should name the missing flags")
	assert.Contains(t, err.Error(), "notes",
		"Error should mention --notes")
	assert.Contains(t, err.Error(), "mentions",
		"Error should mention --mentions")
}

// TestGetEvalCmd_NotesFlag verifies --notes flag exists.
func TestGetEvalCmd_NotesFlag(t *testing.T) {
	cmd := getEvalCmd()

	flag := cmd.Flags().Lookup("notes")
	require.NotNil(t, flag,
		"--notes flag should exist")

	assert.Equal(t, "n", flag.Shorthand,
		"Short form should be -n")
	assert.Contains(t, flag.Usage, "documents",
		"Usage should mention documents")
}

// TestGetEvalCmd_MentionsFlag verifies --mentions flag exists.
func TestGetEvalCmd_MentionsFlag(t *testing.T) {
	cmd := getEvalCmd()

	flag := cmd.Flags().Lookup("mentions")
	require.NotNil(t, flag,
		"--mentions flag should exist")

	assert.Equal(t, "m", flag.Shorthand,
		"Short form should be -m")
	assert.Contains(t, flag.Usage, "mentions",
		"Usage should mention detected mentions")
}

// TestGetEvalCmd_GoldFlag verifies --gold flag exists and
// is optional.
func TestGetEvalCmd_GoldFlag(t *testing.T) {
	cmd := getEvalCmd()

	flag := cmd.Flags().Lookup("gold")
	require.NotNil(t, flag,
		"--gold flag should exist")

	assert.Equal(t, "g", flag.Shorthand,
		"Short form should be -g")
	assert.Contains(t, flag.Usage, "optional",
		"Usage should state gold is optional")
}

// TestGetEvalCmd_OutputFlags verifies --out, --submission
// and --snomed flags exist.
func TestGetEvalCmd_OutputFlags(t *testing.T) {
	cmd := getEvalCmd()

	outFlag := cmd.Flags().Lookup("out")
	require.NotNil(t, outFlag,
		"--out flag should exist")
	assert.Equal(t, "o", outFlag.Shorthand,
		"Short form should be -o")
	assert.Contains(t, outFlag.Usage, "report",
		"Usage should mention the report")

	subFlag := cmd.Flags().Lookup("submission")
	require.NotNil(t, subFlag,
		"--submission flag should exist")
	assert.Equal(t, "", subFlag.Shorthand,
		"Long form only")
	assert.Contains(t, subFlag.Usage, "CSV",
		"Usage should mention the CSV payload")

	snomedFlag := cmd.Flags().Lookup("snomed")
	require.NotNil(t, snomedFlag,
		"--snomed flag should exist")
	assert.Equal(t, "false", snomedFlag.DefValue,
		"Default should be false")
	assert.Contains(t, snomedFlag.Usage, "SNOMED",
		"Usage should mention SNOMED codes")
}

// TestGetEvalCmd_HelpText verifies help text content.
func TestGetEvalCmd_HelpText(t *testing.T) {
	cmd := getEvalCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	helpText := buf.String()
	assert.Contains(t, helpText, "eval",
		"Help should mention eval")
	assert.Contains(t, helpText, "--notes",
		"Help should mention --notes flag")
	assert.Contains(t, helpText, "--gold",
		"Help should mention --gold flag")
	assert.Contains(t, helpText, "--snomed",
		"Help should mention --snomed flag")
	assert.Contains(t, helpText, "Examples:",
		"Help should include examples")
}

// TestGetEvalCmd_IndependentInstances verifies each
// call returns independent instance.
func TestGetEvalCmd_IndependentInstances(t *testing.T) {
	cmd1 := getEvalCmd()
	cmd2 := getEvalCmd()

	// Should be different instances
	assert.NotSame(t, cmd1, cmd2,
		"Each call should return new instance")

	// Modifying one shouldn't affect the other
	cmd1.Short = "test1"
	cmd2.Short = "test2"

	assert.Equal(t, "test1", cmd1.Short)
	assert.Equal(t, "test2", cmd2.Short)
}
