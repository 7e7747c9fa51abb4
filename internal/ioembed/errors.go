package ioembed

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/pkg/errcode"
)

func EmbeddingRequestError(endpoint string, err error) error {
	msg := `Cannot get embeddings from <em>%s</em>
Check that the embedding service is running`
	vars := []any{endpoint}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.EmbeddingRequestError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: embedding request to %s failed: %w",
			fn, endpoint, err),
	}
}

func EmbeddingDimensionError(want, got int) error {
	msg := `Embedding service returned vectors of width <em>%d</em>, expected <em>%d</em>
Check the <em>embed.model</em> and <em>embed.dimensions</em> settings`
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

func EmbeddingEmptyError(want, got int) error {
	msg := "Embedding service returned <em>%d</em> vectors for <em>%d</em> texts"
	vars := []any{got, want}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.EmbeddingEmptyError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf(
			"from %s: incomplete embedding response: got %d vectors, want %d",
			fn, got, want),
	}
}
