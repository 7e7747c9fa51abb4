package ioresolve

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/pkg/errcode"
)

func ResolutionError(mention string, err error) error {
	msg := "Cannot resolve <em>%s</em>"
	vars := []any{mention}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ResolutionError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot resolve %q: %w",
			fn, mention, err),
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
