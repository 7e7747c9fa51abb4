package ioeval

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/pkg/errcode"
)

func EvalDocumentError(id string, err error) error {
	msg := "Cannot evaluate document <em>%s</em>"
	vars := []any{id}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.EvalDocumentError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot evaluate document %s: %w",
			fn, id, err),
	}
}

func EvalMentionsError(path string, err error) error {
	msg := "Cannot read mentions from <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.EvalMentionsError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot read mentions from %s: %w",
			fn, path, err),
	}
}

func EvalGoldError(path string, err error) error {
	msg := "Cannot read gold annotations from <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.EvalGoldError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot read gold annotations from %s: %w",
			fn, path, err),
	}
}

func EvalSpanBoundsError(id string, start, end, length int) error {
	msg := "Mention span [%d,%d) is outside document <em>%s</em>"
	vars := []any{start, end, id}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.EvalSpanBoundsError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf(
			"from %s: document %s: span [%d,%d) outside text of length %d",
			fn, id, start, end, length),
	}
}

func EvalArtifactError(path string, err error) error {
	msg := "Cannot read or write evaluation file <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.EvalArtifactError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: evaluation file %s: %w",
			fn, path, err),
	}
}
