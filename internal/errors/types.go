// Package errors provides the structured error type used across prejst and a
// collector for the non-fatal errors a build pass accumulates.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeBuild    ErrorType = "build"
	ErrorTypeInternal ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeIncompatibleVersion = "ERR_INCOMPATIBLE_VERSION"
	ErrCodeManifestInvalid     = "ERR_MANIFEST_INVALID"
	ErrCodeConfigInvalid       = "ERR_CONFIG_INVALID"
	ErrCodeTemplateRead        = "ERR_TEMPLATE_READ"
	ErrCodeTemplateCompile     = "ERR_TEMPLATE_COMPILE"
	ErrCodeArtifactWrite       = "ERR_ARTIFACT_WRITE"
	ErrCodeMinify              = "ERR_MINIFY"
	ErrCodeInternalError       = "ERR_INTERNAL"
)

// PrejstError is a structured error type with context.
type PrejstError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Template    string
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *PrejstError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Template != "" {
		parts = append(parts, "template:"+e.Template)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *PrejstError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *PrejstError) Is(target error) bool {
	var t *PrejstError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *PrejstError) WithContext(key string, value interface{}) *PrejstError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *PrejstError) WithLocation(filePath string, line, column int) *PrejstError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithTemplate adds the template ID the error belongs to.
func (e *PrejstError) WithTemplate(id string) *PrejstError {
	e.Template = id

	return e
}

// New creates an error of the given type. Config and IO errors are not
// recoverable, build errors are.
func New(errType ErrorType, code, message string, cause error) *PrejstError {
	return &PrejstError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: errType == ErrorTypeBuild,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *PrejstError {
	return New(ErrorTypeConfig, code, message, nil)
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *PrejstError {
	return New(ErrorTypeBuild, code, message, cause)
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *PrejstError {
	return New(ErrorTypeIO, code, message, cause)
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *PrejstError {
	return New(ErrorTypeInternal, code, message, cause)
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var pe *PrejstError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}

	return false
}

// HasErrorCode reports whether any error in the chain carries code.
func HasErrorCode(err error, code string) bool {
	for err != nil {
		var pe *PrejstError
		if !errors.As(err, &pe) {
			return false
		}
		if pe.Code == code {
			return true
		}
		err = pe.Cause
	}

	return false
}

// HasErrorType reports whether the outermost structured error has errType.
func HasErrorType(err error, errType ErrorType) bool {
	var pe *PrejstError
	if errors.As(err, &pe) {
		return pe.Type == errType
	}

	return false
}

// As calls errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is calls errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
