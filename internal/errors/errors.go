package errors

import "fmt"

// Error is the structured error type for memoranda.
// It carries a stable code and category so callers can decide whether a
// failure is fatal, degradable, or a trigger for a full rebuild.
type Error struct {
	// Code is the unique error code (e.g. "ERR_101_CORPUS_MISSING").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (IO, PROVIDER, CORRUPTION, ...).
	Category Category

	// Stage names the pipeline stage that failed (load, tokenize, embed,
	// persist). Empty when not attributable to a single stage.
	Stage string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s stage: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works across wrap boundaries.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithStage records the pipeline stage that produced the error.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// New creates a structured error. The category is derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// IOError creates an I/O error (corpus root missing, artifact unreadable).
func IOError(code string, message string, cause error) *Error {
	return New(code, message, cause)
}

// ProviderError creates an embedding provider error. Provider errors are
// absorbed by the vector index via the zero-vector fallback and never
// surface past it.
func ProviderError(message string, cause error) *Error {
	return New(ErrCodeEmbedFailed, message, cause)
}

// CorruptionError creates an index corruption error. Corruption errors are
// absorbed by the index manager, which falls back to a full rebuild.
func CorruptionError(message string, cause error) *Error {
	return New(ErrCodeSnapshotCorrupt, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string) *Error {
	return New(ErrCodeInvalidInput, message, nil)
}

// GetCategory extracts the category from a structured error.
// Returns CategoryInternal for plain errors.
func GetCategory(err error) Category {
	if se, ok := err.(*Error); ok {
		return se.Category
	}
	return CategoryInternal
}

// IsCorruption reports whether err (or anything it wraps) is a corruption
// error. The index manager uses this to choose rebuild over propagation.
func IsCorruption(err error) bool {
	for err != nil {
		if se, ok := err.(*Error); ok && se.Category == CategoryCorruption {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
