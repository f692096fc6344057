package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Configuration errors - malformed spec triplets or config values
	ErrorTypeConfig ErrorType = iota
	// UnknownRef errors - a base branch or PR pattern resolves to nothing useful
	ErrorTypeUnknownRef
	// GraphRead errors - the commit graph could not be read
	ErrorTypeGraphRead
	// AnnotationWrite errors - a single note failed to persist
	ErrorTypeAnnotationWrite
	// Storage errors - run history or parent cache failures
	ErrorTypeStorage
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - counted and reported, processing continues
	SeverityLow Severity = iota
	// SeverityMedium - the current unit of work is skipped
	SeverityMedium
	// SeverityHigh - significant issue, may impact results
	SeverityHigh
	// SeverityCritical - must be addressed, stops execution
	SeverityCritical
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n",
		severityString(e.Severity),
		typeString(e.Type),
		e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Context:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, e.Context[k]))
		}
	}

	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}

	return sb.String()
}

// String returns the short name of an error category
func (t ErrorType) String() string {
	return typeString(t)
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeUnknownRef:
		return "UNKNOWN_REF"
	case ErrorTypeGraphRead:
		return "GRAPH_READ"
	case ErrorTypeAnnotationWrite:
		return "ANNOTATION_WRITE"
	case ErrorTypeStorage:
		return "STORAGE"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Sentinels usable with errors.Is to test an error's category.
var (
	ErrConfig          = &Error{Type: ErrorTypeConfig}
	ErrUnknownRef      = &Error{Type: ErrorTypeUnknownRef}
	ErrGraphRead       = &Error{Type: ErrorTypeGraphRead}
	ErrAnnotationWrite = &Error{Type: ErrorTypeAnnotationWrite}
	ErrStorage         = &Error{Type: ErrorTypeStorage}
)

// Convenience constructors for common error types

// ConfigError creates a configuration error
func ConfigError(message string) *Error {
	return New(ErrorTypeConfig, SeverityCritical, message)
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// UnknownRefError reports a ref that could not be resolved
func UnknownRefError(ref string) *Error {
	return New(ErrorTypeUnknownRef, SeverityMedium, fmt.Sprintf("unknown ref %q", ref)).
		WithContext("ref", ref)
}

// UnknownRefErrorf creates an unknown-ref error with formatting
func UnknownRefErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeUnknownRef, SeverityMedium, fmt.Sprintf(format, args...))
}

// GraphReadError wraps a failure to read the commit graph
func GraphReadError(err error, message string) *Error {
	return Wrap(err, ErrorTypeGraphRead, SeverityCritical, message)
}

// GraphReadErrorf wraps a graph read failure with formatting
func GraphReadErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeGraphRead, SeverityCritical, fmt.Sprintf(format, args...))
}

// AnnotationWriteError wraps a failure to persist one annotation
func AnnotationWriteError(err error, commit string) *Error {
	return Wrap(err, ErrorTypeAnnotationWrite, SeverityLow, fmt.Sprintf("write note for %s", commit)).
		WithContext("commit", commit)
}

// StorageError wraps a run-history or cache failure
func StorageError(err error, message string) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityMedium, message)
}

// StorageErrorf wraps a storage failure with formatting
func StorageErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityMedium, fmt.Sprintf(format, args...))
}

// InternalError creates an internal error
func InternalError(message string) *Error {
	return New(ErrorTypeInternal, SeverityCritical, message)
}

// InternalErrorf creates an internal error with formatting
func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// IsFatal checks if an error is fatal (should stop execution). Errors that
// are not *Error anywhere in their chain are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.IsFatal()
	}

	return true
}

// GetSeverity returns the severity of an error
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.Severity
	}

	return SeverityMedium
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	if err == nil {
		return ErrorTypeInternal
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}

	return ErrorTypeInternal
}
