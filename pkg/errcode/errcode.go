package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError
	WriteFileError

	// Logging errors
	CreateLogFileError

	// Sources configuration errors
	SourcesConfigError
	SourcesDirError

	// Concept Graph Store errors
	StoreOpenError
	StoreNotFoundError
	StoreFingerprintError
	SchemaMissingTableError
	SchemaMissingColumnError
	SchemaBadRowError
	SchemaDanglingRefError
	StoreInsertError
	StoreQueryError
	StorePublishError
	ConceptNotFoundError

	// Embedding Index errors
	IndexNotFoundError
	IndexVersionError
	IndexMismatchError
	IndexPublishError
	IndexQueryError
	CheckpointError
	BuildInterruptedError

	// Embedding collaborator errors
	EmbeddingRequestError
	EmbeddingDimensionError
	EmbeddingEmptyError

	// Resolver errors
	ResolutionError

	// Evaluation errors
	EvalDocumentError
	EvalMentionsError
	EvalGoldError
	EvalSpanBoundsError
	EvalArtifactError
)
