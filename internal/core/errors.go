package core

import (
	"errors"
	"fmt"
)

// ValidationError reports bad caller input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %v", e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError reports a violated uniqueness rule: a second open shift or a
// duplicate category name.
type ConflictError struct {
	Resource string
	Key      string
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %q: %s", e.Resource, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s %q already exists", e.Resource, e.Key)
}

// NotFoundError reports an operation on an unknown id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// SchemaFallbackError tells the services layer that the store lacks a column
// or table and the degraded representation must be used. It is never
// returned to callers of the services package.
type SchemaFallbackError struct {
	Table  string
	Column string
	Err    error
}

func (e *SchemaFallbackError) Error() string {
	target := e.Table
	if e.Column != "" {
		target += "." + e.Column
	}
	if e.Err != nil {
		return fmt.Sprintf("store schema lacks %s: %v", target, e.Err)
	}
	return fmt.Sprintf("store schema lacks %s", target)
}

func (e *SchemaFallbackError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsSchemaFallback(err error) bool {
	var target *SchemaFallbackError
	return errors.As(err, &target)
}
