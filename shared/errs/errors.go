// Package errs holds the domain errors shared by the account workflow and
// translated into HTTP status codes by the handler layer.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIdentity means the authenticated request carries no username claim.
	ErrIdentity = errors.New("claim not found")

	// ErrNotFound is matched by every NotFoundError through errors.Is.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicateName is returned by the store when the accounts.name unique
	// index rejects a write.
	ErrDuplicateName = errors.New("account name already exists")
)

// NotFoundError reports a missing row.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFound(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// FieldError is one entry of a ValidationErrors list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationErrors accumulates field errors in the order they were found.
// The zero value is ready to use.
type ValidationErrors struct {
	Fields []FieldError
}

func (v *ValidationErrors) Add(field, tag, message string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: message, Type: tag})
}

func (v *ValidationErrors) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// Has reports whether at least one error is keyed by field.
func (v *ValidationErrors) Has(field string) bool {
	if v == nil {
		return false
	}
	for _, f := range v.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns v as an error, or nil when nothing was added. It keeps a nil
// *ValidationErrors from turning into a non-nil error interface.
func (v *ValidationErrors) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidation unwraps err into *ValidationErrors when it is one.
func AsValidation(err error) (*ValidationErrors, bool) {
	var v *ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
