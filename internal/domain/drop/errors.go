package drop

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMethod indicates the claim method matches none of the known variants.
	ErrUnknownMethod = errors.New("unknown claim method")
	// ErrMissingField indicates a required method parameter was not supplied.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField indicates a parameter was supplied but is not a valid address or identifier.
	ErrInvalidField = errors.New("invalid field")
	// ErrAlreadyClosed indicates the snapshot shows the distributor is gone, so there is nothing to close.
	ErrAlreadyClosed = errors.New("drop already closed")
)

// BuildError is returned by Build and ParseClaimMethod. Kind is one of the sentinels above,
// so callers can match with errors.Is.
type BuildError struct {
	Kind   error
	Field  string
	Detail string
}

func (e *BuildError) Error() string {
	switch {
	case e.Field != "" && e.Detail != "":
		return fmt.Sprintf("%v %s: %s", e.Kind, e.Field, e.Detail)
	case e.Field != "":
		return fmt.Sprintf("%v %s", e.Kind, e.Field)
	case e.Detail != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	default:
		return e.Kind.Error()
	}
}

func (e *BuildError) Unwrap() error { return e.Kind }

func unknownMethod(tag string) *BuildError {
	if tag == "" {
		return &BuildError{Kind: ErrUnknownMethod}
	}
	return &BuildError{Kind: ErrUnknownMethod, Detail: fmt.Sprintf("%q", tag)}
}

func missingField(field string) *BuildError {
	return &BuildError{Kind: ErrMissingField, Field: field}
}

func invalidField(field, detail string) *BuildError {
	return &BuildError{Kind: ErrInvalidField, Field: field, Detail: detail}
}
