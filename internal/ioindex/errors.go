package ioindex

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/pkg/errcode"
)

func IndexNotFoundError(fp string, err error) error {
	msg := `No embedding index found for the current store and model
Fingerprint: <em>%s</em>
Run <em>omoplink embed</em> first`
	vars := []any{fp}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.IndexNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: no index artifact for fingerprint %s: %w",
			fn, fp, err),
	}
}

func IndexVersionError(path string, got, want int) error {
	msg := `Index <em>%s</em> has layout version %d, this build expects %d
Remove the file and run <em>omoplink embed</em>`
	vars := []any{path, got, want}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.IndexVersionError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: index %s: layout version %d, want %d",
			fn, path, got, want),
	}
}

func IndexMismatchError(want, got string) error {
	msg := `Embedding index does not match the concept graph store
Run <em>omoplink embed</em> to rebuild it`
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.IndexMismatchError,
		Msg:  msg,
		Err: fmt.Errorf(
			"from %s: index fingerprint mismatch: want %s, got %s",
			fn, want, got),
	}
}

func IndexPublishError(path string, err error) error {
	msg := "Cannot publish embedding index <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.IndexPublishError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot publish index %s: %w",
			fn, path, err),
	}
}

func IndexQueryError(err error) error {
	msg := "Embedding index query failed"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.IndexQueryError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: index query: %w", fn, err),
	}
}

func CheckpointError(op string, err error) error {
	msg := "Embedding checkpoint store failed: %s"
	vars := []any{op}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.CheckpointError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: %s: %w", fn, op, err),
	}
}

func EmbeddingDimensionError(want, got int) error {
	msg := "Embedding service returned vectors of width <em>%d</em>, expected <em>%d</em>"
	vars := []any{got, want}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.EmbeddingDimensionError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf(
			"from %s: unexpected embedding dimensions: got %d, want %d",
			fn, got, want),
	}
}

func BuildInterruptedError(err error) error {
	msg := "Embedding interrupted; finished batches are kept, rerun to resume"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.BuildInterruptedError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: embedding interrupted: %w", fn, err),
	}
}
