package store

import (
	"errors"
	"fmt"
)

// Keyword identifies the schema rule a SchemaError violated.
type Keyword string

const (
	KeywordSchema               Keyword = "schema"
	KeywordType                 Keyword = "type"
	KeywordRequired             Keyword = "required"
	KeywordAdditionalProperties Keyword = "additionalProperties"
	KeywordUniqueItems          Keyword = "uniqueItems"
	KeywordDefault              Keyword = "default"
)

// SchemaError reports a write that does not conform to its schema.
// A write that returns a SchemaError leaves the store untouched.
type SchemaError struct {
	// SchemaPath is the compiled entry path where validation failed.
	SchemaPath string

	// Keyword is the violated rule.
	Keyword Keyword

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s at %s: %s", e.Keyword, e.SchemaPath, e.Message)
}

// ValueErrorCode categorizes operational misuse.
type ValueErrorCode string

const (
	// ErrCodeUnknownCollection indicates a read, delete or listener on an
	// undeclared collection.
	ErrCodeUnknownCollection ValueErrorCode = "UNKNOWN_COLLECTION"

	// ErrCodeUnknownPosition indicates an update position that does not exist.
	ErrCodeUnknownPosition ValueErrorCode = "UNKNOWN_POSITION"

	// ErrCodeNotAnArray indicates an array method applied to another kind.
	ErrCodeNotAnArray ValueErrorCode = "NOT_AN_ARRAY"

	// ErrCodeMissingID indicates a collection update without a document ID.
	ErrCodeMissingID ValueErrorCode = "MISSING_ID"

	// ErrCodeUnknownMethod indicates an unsupported update method.
	ErrCodeUnknownMethod ValueErrorCode = "UNKNOWN_METHOD"

	// ErrCodeInvalidID indicates an affixed ID whose parts contain "_".
	ErrCodeInvalidID ValueErrorCode = "INVALID_ID"
)

// ValueError reports misuse of the store API.
type ValueError struct {
	Code       ValueErrorCode
	Collection string
	ID         string
	Message    string
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (collection=%s, id=%s)", e.Code, e.Message, e.Collection, e.ID)
	}
	if e.Collection != "" {
		return fmt.Sprintf("%s: %s (collection=%s)", e.Code, e.Message, e.Collection)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSchemaError returns true if err is or wraps a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsValueError returns true if err is or wraps a ValueError.
func IsValueError(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}

// ValueErrorCodeOf returns the code of a wrapped ValueError, or "".
func ValueErrorCodeOf(err error) ValueErrorCode {
	var ve *ValueError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

func unknownCollection(name string) *ValueError {
	return &ValueError{
		Code:       ErrCodeUnknownCollection,
		Collection: name,
		Message:    "collection is not declared",
	}
}

func schemaErr(path string, kw Keyword, format string, args ...any) *SchemaError {
	return &SchemaError{SchemaPath: path, Keyword: kw, Message: fmt.Sprintf(format, args...)}
}
