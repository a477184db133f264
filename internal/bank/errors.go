package bank

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound marks a lookup by unknown id. Handlers attach the entity name.
var ErrNotFound = errors.New("bank: not found")

// FieldViolation names one rejected field.
type FieldViolation struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

// ValidationError rejects malformed or missing input.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Problem)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// UniquenessError rejects a write that would duplicate a dataset-wide
// unique value.
type UniquenessError struct {
	Field string
}

func (e *UniquenessError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// ReferenceError rejects a write whose foreign reference is dangling
// (InUse=false) or a delete blocked by dependent rows (InUse=true).
type ReferenceError struct {
	Field string
	InUse bool
}

func (e *ReferenceError) Error() string {
	if e.InUse {
		return fmt.Sprintf("still referenced via %s", e.Field)
	}
	return fmt.Sprintf("%s references a missing record", e.Field)
}

// violations accumulates field problems while validating an input.
type violations struct {
	list []FieldViolation
}

func (v *violations) add(field, problem string) {
	v.list = append(v.list, FieldViolation{Field: field, Problem: problem})
}

func (v *violations) err() error {
	if len(v.list) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.list}
}
