package pipeline

import (
	"errors"
	"fmt"
)

// Per-record failure kinds. A dropped record's error matches exactly one of these
// via errors.Is.
var (
	// ErrMissingField marks a record lacking a required field.
	ErrMissingField = errors.New("missing required field")
	// ErrDuplicate marks a record whose identity was already admitted.
	ErrDuplicate = errors.New("duplicate record")
	// ErrGateUnavailable marks a key-value failure while admitting a record.
	ErrGateUnavailable = errors.New("dedup gate unavailable")
	// ErrConversion marks a field whose text could not be parsed into its declared type.
	ErrConversion = errors.New("field conversion failed")
	// ErrPersistRelational marks a failed relational insert; the document sink was not touched.
	ErrPersistRelational = errors.New("relational persist failed")
	// ErrPersistDocument marks a failed document insert after the relational commit.
	ErrPersistDocument = errors.New("document persist failed")
)

// ErrConnector marks a store that could not be opened or closed. It aborts the run.
var ErrConnector = errors.New("connector failure")

var kindNames = []struct {
	kind error
	name string
}{
	{ErrMissingField, "missing_field"},
	{ErrDuplicate, "duplicate"},
	{ErrGateUnavailable, "gate_unavailable"},
	{ErrConversion, "conversion"},
	{ErrPersistRelational, "persist_relational"},
	{ErrPersistDocument, "persist_document"},
	{ErrConnector, "connector"},
}

// DropError reports why a record was dropped. It matches both its Kind and
// its underlying cause with errors.Is.
type DropError struct {
	ReqID string
	Kind  error
	// Field names the offending field for missing-field and conversion drops.
	Field string
	Err   error
}

func (e *DropError) Error() string {
	msg := fmt.Sprintf("drop record %q: %v", e.ReqID, e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind and the cause.
func (e *DropError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns the snake_case name of err's failure kind, or "unknown".
func KindName(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "unknown"
}
