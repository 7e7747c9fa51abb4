package iosources

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/pkg/errcode"
)

// SourcesConfigError creates an error for when sources.yaml
// cannot be loaded.
func SourcesConfigError(path string, err error) error {
	msg := `Cannot load sources configuration

<em>Configuration file:</em> %s

<em>Possible causes:</em>
  - File does not exist
  - Invalid YAML format
  - Unknown table name

<em>How to fix:</em>
  1. Check if file exists: <em>ls -l %s</em>
  2. Validate YAML syntax
  3. Remove the file to restore the packaged template on next run`

	vars := []any{path, path}

	return &gn.Error{
		Code: errcode.SourcesConfigError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to load sources config: %w", err),
	}
}

// SourcesDirError creates an error for when the vocabulary directory
// is missing or not a directory.
func SourcesDirError(dir string, err error) error {
	msg := `Vocabulary directory is not usable

<em>Directory:</em> %s

<em>How to fix:</em>
  1. Download the OMOP vocabulary tables from Athena
  2. Point <em>dir</em> in sources.yaml (or --sources-dir) at them`

	vars := []any{dir}

	if err == nil {
		err = fmt.Errorf("not a directory")
	}

	return &gn.Error{
		Code: errcode.SourcesDirError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("vocabulary directory %s: %w", dir, err),
	}
}
