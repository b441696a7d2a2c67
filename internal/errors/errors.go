package errors

import (
	"fmt"
	"sync"
	"time"
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// BuildError is one non-fatal problem recorded during a build pass
type BuildError struct {
	Template  string
	File      string
	Line      int
	Column    int
	Message   string
	Severity  ErrorSeverity
	Cause     error
	Timestamp time.Time
}

// Error implements the error interface
func (be *BuildError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", be.File, be.Line, be.Column, be.Severity, be.Message)
}

// Unwrap returns the error the entry was recorded from.
func (be *BuildError) Unwrap() error {
	return be.Cause
}

// ErrorCollector collects the non-fatal errors of a build pass. It is safe
// for concurrent use.
type ErrorCollector struct {
	buildErrors []BuildError
	mutex       sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		buildErrors: make([]BuildError, 0),
	}
}

// Add adds a build error to the collector
func (ec *ErrorCollector) Add(err BuildError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	ec.buildErrors = append(ec.buildErrors, err)
}

// AddError records err, taking location details from a *PrejstError when
// there is one in the chain.
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}

	entry := BuildError{
		Message:  err.Error(),
		Severity: ErrorSeverityError,
		Cause:    err,
	}

	var pe *PrejstError
	if As(err, &pe) {
		entry.Template = pe.Template
		entry.File = pe.FilePath
		entry.Line = pe.Line
		entry.Column = pe.Column
		if pe.Recoverable {
			entry.Severity = ErrorSeverityWarning
		}
	}

	ec.Add(entry)
}

// GetAllErrors returns the collected entries as plain errors
func (ec *ErrorCollector) GetAllErrors() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	allErrors := make([]error, 0, len(ec.buildErrors))
	for i := range ec.buildErrors {
		buildErr := ec.buildErrors[i]
		allErrors = append(allErrors, &buildErr)
	}

	return allErrors
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.buildErrors) > 0
}

// Len returns the number of collected errors
func (ec *ErrorCollector) Len() int {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.buildErrors)
}
