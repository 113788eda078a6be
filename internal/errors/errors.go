package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType classifies failures surfaced by the analyzer and fixer
type ErrorType string

const (
	ErrorTypeParse ErrorType = "parse"
	ErrorTypeFix   ErrorType = "fix"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypeFileTooLarge ErrorType = "file_too_large"
	ErrorTypePermission   ErrorType = "permission"

	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// Precondition failures of the repair engine. None of them are raised
// mid-edit: they are checked before any edit is computed.
var (
	ErrStaticOwner       = stderrors.New("owner class is static; no fix is offered")
	ErrSplitIneligible   = stderrors.New("mismatched logger type is not the owner's base class")
	ErrNoBaseType        = stderrors.New("owner class has no resolvable base type")
	ErrNoBaseInitializer = stderrors.New("no constructor forwards to a base initializer")
	ErrFieldNotFound     = stderrors.New("no logger field at the requested position")
	ErrNoFinding         = stderrors.New("field does not carry a logger mismatch")
	ErrUnknownAction     = stderrors.New("unknown fix action")
	ErrOverlappingEdits  = stderrors.New("overlapping edits")
	ErrStaleSnapshot     = stderrors.New("file changed since the fix was computed")
	ErrBrokenOutput      = stderrors.New("fixed source no longer parses cleanly")
)

// ParseError represents a source file tree-sitter could not parse
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Line       int
	Column     int
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error
func NewParseError(path string, line, column int, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Line:       line,
		Column:     column,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s:%d:%d: %v", e.FilePath, e.Line, e.Column, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// FixError reports a repair that could not be computed or applied
type FixError struct {
	Type       ErrorType
	Action     string
	FilePath   string
	Offset     int
	Underlying error
	Timestamp  time.Time
}

// NewFixError creates a new fix error
func NewFixError(action, path string, offset int, err error) *FixError {
	return &FixError{
		Type:       ErrorTypeFix,
		Action:     action,
		FilePath:   path,
		Offset:     offset,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *FixError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s failed for %s@%d: %v", e.Action, e.FilePath, e.Offset, e.Underlying)
	}
	return fmt.Sprintf("%s failed at offset %d: %v", e.Action, e.Offset, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *FixError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// NewFileTooLargeError reports a file skipped because of the size limit
func NewFileTooLargeError(path string, size, limit int64) *FileError {
	return &FileError{
		Type:       ErrorTypeFileTooLarge,
		Path:       path,
		Operation:  "read",
		Underlying: fmt.Errorf("size %d exceeds limit %d", size, limit),
		Timestamp:  time.Now(),
	}
}

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError collects independent per-file failures of one run
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error, dropping nil entries
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
