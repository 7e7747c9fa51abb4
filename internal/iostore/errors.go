package iostore

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/pkg/errcode"
)

func StoreOpenError(path string, err error) error {
	msg := "Cannot open concept graph store <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreOpenError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot open store %s: %w",
			fn, path, err),
	}
}

func StoreNotFoundError(fp string, err error) error {
	msg := `No concept graph store found for the current sources
Fingerprint: <em>%s</em>
Run <em>omoplink build</em> first`
	vars := []any{fp}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: no store artifact for fingerprint %s: %w",
			fn, fp, err),
	}
}

func StoreFingerprintError(path, want, got string) error {
	msg := `Store <em>%s</em> does not match the current sources
Remove the file and run <em>omoplink build</em>`
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreFingerprintError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf(
			"from %s: store fingerprint mismatch: want %s, got %s",
			fn, want, got),
	}
}

func SchemaMissingTableError(table, path string, err error) error {
	msg := `Cannot read the <em>%s</em> table from <em>%s</em>
Check the vocabulary directory in sources.yaml`
	vars := []any{table, path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.SchemaMissingTableError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot read table %s at %s: %w",
			fn, table, path, err),
	}
}

func SchemaMissingColumnError(table, column string) error {
	msg := "Table <em>%s</em> is missing the required column <em>%s</em>"
	vars := []any{table, column}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.SchemaMissingColumnError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: table %s: missing column %s",
			fn, table, column),
	}
}

func SchemaBadRowError(table string, line int, err error) error {
	msg := "Table <em>%s</em> has a malformed row at line <em>%d</em>"
	vars := []any{table, line}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.SchemaBadRowError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: table %s line %d: %w",
			fn, table, line, err),
	}
}

func SchemaDanglingRefError(table, column string, count int64) error {
	msg := `Table <em>%s</em> has %d dangling references in <em>%s</em>
The vocabulary download is incomplete or inconsistent`
	vars := []any{table, count, column}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.SchemaDanglingRefError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf(
			"from %s: table %s column %s: %d dangling references",
			fn, table, column, count),
	}
}

func StoreInsertError(table string, err error) error {
	msg := "Cannot write the <em>%s</em> table"
	vars := []any{table}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreInsertError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot write table %s: %w",
			fn, table, err),
	}
}

func StoreQueryError(op string, err error) error {
	msg := "Concept graph store query failed: %s"
	vars := []any{op}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreQueryError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: %s: %w", fn, op, err),
	}
}

func StorePublishError(path string, err error) error {
	msg := "Cannot publish concept graph store <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StorePublishError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot publish store %s: %w",
			fn, path, err),
	}
}

func ConceptNotFoundError(id int64) error {
	msg := "No concept with id <em>%d</em>"
	vars := []any{id}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ConceptNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: concept %d not found", fn, id),
	}
}

func BuildInterruptedError(err error) error {
	msg := "Build interrupted; rerun to resume"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.BuildInterruptedError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: build interrupted: %w", fn, err),
	}
}
