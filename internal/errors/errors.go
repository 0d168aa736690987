// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so the chat session can decide how to present a failure
// without string matching on driver or model output.
//
// The package supports wrapping underlying errors while maintaining error kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ClassificationFailed indicates the model reply could not be turned into a command.
	ClassificationFailed Kind = "classification_failed"
	// SchemaUnavailable indicates schema introspection failed against the backend.
	SchemaUnavailable Kind = "schema_unavailable"
	// QueryFailed indicates a query kept failing after every repair attempt.
	QueryFailed Kind = "query_failed"
	// SelectionFailed indicates a database could not be selected.
	SelectionFailed Kind = "selection_failed"
	// OracleFailed indicates the completion endpoint failed or returned nothing usable.
	OracleFailed Kind = "oracle_failed"
	// BackendUnavailable indicates the requested backend is not configured or connected.
	BackendUnavailable Kind = "backend_unavailable"
	// ParseFailed indicates a synthesized document expression was rejected by the parser.
	ParseFailed Kind = "parse_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the Kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Cause returns the innermost wrapped error text, which is what users need to see
// when a driver or the model produced the failure.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	var e *E
	if stderrors.As(err, &e) {
		if e.Err != nil {
			return Cause(e.Err)
		}
		return e.Message
	}
	return err.Error()
}
