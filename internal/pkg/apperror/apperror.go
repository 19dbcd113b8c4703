package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the caller.
type Kind string

const (
	KindValidation Kind = "validation"
	KindDecode     Kind = "decode"
	KindEncode     Kind = "encode"
	KindResource   Kind = "resource"
	KindUnknown    Kind = "unknown"
)

// Error is a classified failure. Details carries per-field messages for
// validation failures.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap classifies err. An error that is already classified keeps its original
// kind so that the first classification in a chain wins.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// Validation builds a validation failure with field details.
func Validation(op, message string, details map[string]string) error {
	return &Error{
		Kind:    KindValidation,
		Op:      op,
		Message: message,
		Details: details,
	}
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// IsKind checks whether the first classified error in the chain has the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// DetailsOf returns validation details attached to the chain, if any.
func DetailsOf(err error) map[string]string {
	var target *Error
	if errors.As(err, &target) {
		return target.Details
	}
	return nil
}
