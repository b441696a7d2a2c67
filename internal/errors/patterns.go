package errors

import (
	"fmt"
)

// IncompatibleVersionError reports that the project requires a newer prejst.
func IncompatibleVersionError(own, required string) *PrejstError {
	return NewConfigError(
		ErrCodeIncompatibleVersion,
		fmt.Sprintf("project requires prejst %s, running %s", required, own),
	).WithContext("local", own).WithContext("target", required)
}

// ManifestError reports an unreadable or malformed project manifest.
func ManifestError(path, message string, cause error) *PrejstError {
	return New(ErrorTypeConfig, ErrCodeManifestInvalid, message, cause).
		WithLocation(path, 0, 0)
}

// TemplateReadError reports a template source that could not be read.
func TemplateReadError(id, path string, cause error) *PrejstError {
	return NewIOError(ErrCodeTemplateRead, "failed to read template", cause).
		WithTemplate(id).
		WithLocation(path, 0, 0)
}

// TemplateCompileError reports a template rejected by the compiler.
func TemplateCompileError(id, path string, line, column int, cause error) *PrejstError {
	return NewBuildError(ErrCodeTemplateCompile, "syntax error", cause).
		WithTemplate(id).
		WithLocation(path, line, column)
}

// ArtifactWriteError reports a failure creating or writing the artifact.
func ArtifactWriteError(path string, cause error) *PrejstError {
	return NewIOError(ErrCodeArtifactWrite, "failed to write artifact", cause).
		WithLocation(path, 0, 0)
}

// MinifyError reports a post-processing failure. The build continues.
func MinifyError(path string, line, column int, cause error) *PrejstError {
	err := NewBuildError(ErrCodeMinify, "uglification failed", cause).
		WithLocation(path, line, column)
	err.Recoverable = true
	return err
}
