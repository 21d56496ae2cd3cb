package fetchers

import (
	"errors"
	"fmt"
)

// ErrNoResult signals that the profile was reachable but produced no latest post this cycle.
var ErrNoResult = errors.New("no latest post available")

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	KindNetwork        ErrorKind = "network"
	KindParse          ErrorKind = "parse"
	KindSchema         ErrorKind = "schema"
	KindUpstreamFailed ErrorKind = "upstream_failed"
	KindTimeout        ErrorKind = "timeout"
)

// FetchError describes why a strategy could not produce a PostRecord.
type FetchError struct {
	Kind     ErrorKind
	Strategy string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch %s: %v", e.Strategy, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(strategy string, kind ErrorKind, format string, args ...any) *FetchError {
	return &FetchError{Kind: kind, Strategy: strategy, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from err, or "" when err is not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
