// Package errors provides structured error handling for memoranda.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: IO errors (corpus, artifacts)
//   - 2XX: embedding provider errors
//   - 3XX: index corruption errors
//   - 4XX: validation errors
//   - 5XX: internal errors
package errors

// Category classifies errors for handling policy decisions.
type Category string

const (
	// CategoryIO indicates corpus or artifact I/O errors.
	CategoryIO Category = "IO"
	// CategoryProvider indicates embedding provider failures.
	CategoryProvider Category = "PROVIDER"
	// CategoryCorruption indicates a persisted artifact failed a structural check.
	CategoryCorruption Category = "CORRUPTION"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// IO errors (100-199)
	ErrCodeCorpusMissing      = "ERR_101_CORPUS_MISSING"
	ErrCodeFileUnreadable     = "ERR_102_FILE_UNREADABLE"
	ErrCodeArtifactUnreadable = "ERR_103_ARTIFACT_UNREADABLE"
	ErrCodeArtifactUnwritable = "ERR_104_ARTIFACT_UNWRITABLE"

	// Provider errors (200-299)
	ErrCodeEmbedFailed  = "ERR_201_EMBED_FAILED"
	ErrCodeEmbedTimeout = "ERR_202_EMBED_TIMEOUT"

	// Corruption errors (300-399)
	ErrCodeSnapshotCorrupt   = "ERR_301_SNAPSHOT_CORRUPT"
	ErrCodeDimensionMismatch = "ERR_302_DIMENSION_MISMATCH"
	ErrCodeVersionUnknown    = "ERR_303_VERSION_UNKNOWN"

	// Validation errors (400-499)
	ErrCodeQueryEmpty   = "ERR_401_QUERY_EMPTY"
	ErrCodeInvalidInput = "ERR_402_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the category from the numeric block of a code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryIO
	case '2':
		return CategoryProvider
	case '3':
		return CategoryCorruption
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}
