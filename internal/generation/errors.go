package generation

import (
	"fmt"
)

// ErrorKind classifies a generation failure.
type ErrorKind int

const (
	// KindUpstream means the oracle could not be reached, timed out or
	// answered with an error.
	KindUpstream ErrorKind = iota + 1
	// KindMalformed means the oracle answered but the payload could not be
	// parsed or failed validation.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUpstream:
		return "upstream"
	case KindMalformed:
		return "malformed payload"
	}
	return "unknown"
}

// Error is returned by Pipeline.Generate.  Raw holds the cleaned oracle text
// for KindMalformed failures so it can be logged.
type Error struct {
	Kind ErrorKind
	Raw  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError pinpoints the first element that broke the schema.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("element %d: %s: %s", e.Index, e.Field, e.Reason)
}

func upstream(err error) *Error { return &Error{Kind: KindUpstream, Err: err} }

func malformed(raw string, err error) *Error {
	return &Error{Kind: KindMalformed, Raw: raw, Err: err}
}
