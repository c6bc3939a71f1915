package loader

import (
	"errors"
	"strings"
)

var (
	// ErrBareSpecifier is returned for specifiers that are neither absolute
	// URLs nor relative paths ("lodash", "foo/bar").
	ErrBareSpecifier = errors.New("relative import path not prefixed with / or ./ or ../")
	// ErrUnsupportedScheme is returned when loading a non-file URL.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// ResolutionError reports a specifier that cannot be normalized against its
// referrer.
type ResolutionError struct {
	Specifier string
	Referrer  string
	Err       error
}

func (e *ResolutionError) Error() string {
	msg := "resolve " + e.Specifier
	if e.Referrer != "" {
		msg += " from " + e.Referrer
	}
	return msg + ": " + e.Err.Error()
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// LoadError reports a module that could not be read, validated or transpiled.
type LoadError struct {
	Specifier string
	Err       error
}

func (e *LoadError) Error() string {
	return "load " + e.Specifier + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// TranspileError carries the parser diagnostics for a source that failed to
// transpile.
type TranspileError struct {
	Messages []string
}

func (e *TranspileError) Error() string {
	if len(e.Messages) == 0 {
		return "transpile failed"
	}
	return strings.TrimSpace(strings.Join(e.Messages, "\n"))
}
