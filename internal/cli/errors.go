package cli

import (
	stderrors "errors"
	"fmt"
)

// Process exit codes
const (
	ExitOK = 0
	// ExitFatal covers configuration errors and unreadable graphs
	ExitFatal = 1
	// ExitSpecFailed means at least one spec produced nothing
	ExitSpecFailed = 2
)

// ExitCoder is an error that carries a process exit code
type ExitCoder interface {
	error
	ExitCode() int
}

// ExitError wraps a cause with an explicit exit code
type ExitError struct {
	code  int
	msg   string
	cause error
}

func (e *ExitError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

// ExitCode implements ExitCoder
func (e *ExitError) ExitCode() int { return e.code }

func (e *ExitError) Unwrap() error { return e.cause }

// Exit returns an ExitError with msg
func Exit(code int, msg string) error {
	return &ExitError{code: normalize(code), msg: msg}
}

// Code returns an error carrying only an exit code, for outcomes that were
// already reported
func Code(code int) error {
	return &ExitError{code: normalize(code)}
}

// Exitf wraps cause with code and a formatted message
func Exitf(code int, cause error, format string, args ...any) error {
	return &ExitError{code: normalize(code), msg: fmt.Sprintf(format, args...), cause: cause}
}

// ExitCodeOf extracts an exit code from err, defaulting to ExitFatal
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	var ec ExitCoder
	if stderrors.As(err, &ec) {
		return ec.ExitCode()
	}
	return ExitFatal
}

// Silent reports whether err already told the user everything, so main
// should exit without printing it again.
func Silent(err error) bool {
	var e *ExitError
	return stderrors.As(err, &e) && e.msg == "" && e.cause == nil
}

func normalize(code int) int {
	if code <= 0 {
		return ExitFatal
	}
	return code
}
