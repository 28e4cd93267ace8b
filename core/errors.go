package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned when input is rejected before any store call.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports an unknown resource, e.g. a student ID the directory cannot resolve.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", err.Resource, err.ID)
}

// StoreError wraps a persistence failure. It is never retried by the core.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError returns nil if err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (err StoreError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err StoreError) Unwrap() error { return err.Err }

// PartialBatchError is returned alongside a batch result when some items failed.
// Result holds the full per-item result so callers can see what still needs attention.
type PartialBatchError struct {
	Failed int
	Total  int
	Result interface{}
}

func (err PartialBatchError) Error() string {
	return fmt.Sprintf("%d of %d items failed", err.Failed, err.Total)
}

// IsValidation, IsNotFound and IsStore look through errors.Wrap layers.
func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsStore(err error) bool {
	_, ok := errors.Cause(err).(*StoreError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
