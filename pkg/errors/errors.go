// Package errors provides structured error types used across the console.
// Callers check kinds with errors.Is / errors.As instead of matching strings, and
// every kind carries the operation that failed plus a short message.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError indicates invalid input, config or state provided by a caller.
type ValidationError struct {
	Op  string // where it happened (package.Function)
	Msg string // human friendly message
	Err error  // underlying cause (optional)
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("validation: %s: %s", e.Op, e.Msg)
}

func (e *ValidationError) Unwrap() error           { return e.Err }
func (e *ValidationError) Operation() string       { return e.Op }
func (e *ValidationError) Message() string         { return e.Msg }
func (e *ValidationError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewValidation(op, msg string, err error) error {
	return &ValidationError{Op: op, Msg: msg, Err: err}
}

// StoreError represents record store failures (SQL tables, cache, memory store).
type StoreError struct {
	Op         string
	Msg        string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := e.Op
	if e.Collection != "" {
		where = e.Op + "[" + e.Collection + "]"
	}
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("store: %s: %s", where, e.Msg)
}

func (e *StoreError) Unwrap() error     { return e.Err }
func (e *StoreError) Operation() string { return e.Op }
func (e *StoreError) Message() string   { return e.Msg }
func (e *StoreError) Context() map[string]any {
	return map[string]any{"op": e.Op, "msg": e.Msg, "collection": e.Collection}
}

func NewStore(op, collection, msg string, err error) error {
	return &StoreError{Op: op, Collection: collection, Msg: msg, Err: err}
}

// ExternalAPIError represents failures in external services (blob storage, geocoding).
type ExternalAPIError struct {
	Op     string
	Msg    string
	Err    error
	System string // optional system name e.g. "s3" / "google"
}

func (e *ExternalAPIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	sys := e.System
	if sys == "" {
		sys = "external"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", sys, e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", sys, e.Op, e.Msg)
}

func (e *ExternalAPIError) Unwrap() error     { return e.Err }
func (e *ExternalAPIError) Operation() string { return e.Op }
func (e *ExternalAPIError) Message() string   { return e.Msg }
func (e *ExternalAPIError) Context() map[string]any {
	return map[string]any{"op": e.Op, "msg": e.Msg, "system": e.System}
}

func NewExternal(op, system, msg string, err error) error {
	return &ExternalAPIError{Op: op, System: system, Msg: msg, Err: err}
}

// NotFoundError reports a missing record or blob.
type NotFoundError struct {
	Op  string
	Key string
	Err error
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("not found: %s: %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("not found: %s: %s", e.Op, e.Key)
}

func (e *NotFoundError) Unwrap() error           { return e.Err }
func (e *NotFoundError) Operation() string       { return e.Op }
func (e *NotFoundError) Message() string         { return e.Key }
func (e *NotFoundError) Context() map[string]any { return map[string]any{"op": e.Op, "key": e.Key} }

func NewNotFound(op, key string, err error) error { return &NotFoundError{Op: op, Key: key, Err: err} }

// PreconditionError is returned when a step that must succeed before a write did not,
// e.g. the backup copy of a record could not be taken.
type PreconditionError struct {
	Op  string
	Msg string
	Err error
}

func (e *PreconditionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("precondition: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("precondition: %s: %s", e.Op, e.Msg)
}

func (e *PreconditionError) Unwrap() error           { return e.Err }
func (e *PreconditionError) Operation() string       { return e.Op }
func (e *PreconditionError) Message() string         { return e.Msg }
func (e *PreconditionError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewPrecondition(op, msg string, err error) error {
	return &PreconditionError{Op: op, Msg: msg, Err: err}
}

// BizError is for domain failures that aren't programmer bugs.
type BizError struct {
	Op  string
	Msg string
	Err error
}

func (e *BizError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("biz: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("biz: %s: %s", e.Op, e.Msg)
}

func (e *BizError) Unwrap() error           { return e.Err }
func (e *BizError) Operation() string       { return e.Op }
func (e *BizError) Message() string         { return e.Msg }
func (e *BizError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewBiz(op, msg string, err error) error { return &BizError{Op: op, Msg: msg, Err: err} }

// Kind sentinels. Example: if errs.Is(err, errs.ErrNotFound) { ... }
var (
	ErrValidation   = &ValidationError{}
	ErrStore        = &StoreError{}
	ErrExternal     = &ExternalAPIError{}
	ErrNotFound     = &NotFoundError{}
	ErrPrecondition = &PreconditionError{}
	ErrBiz          = &BizError{}
)

// Is reports whether err carries the same kind as target.
// Kind sentinels are matched through errors.As; anything else falls back to errors.Is.
func Is(err, target error) bool {
	if err == nil || target == nil {
		return errors.Is(err, target)
	}
	switch target.(type) {
	case *ValidationError:
		var v *ValidationError
		return errors.As(err, &v)
	case *StoreError:
		var s *StoreError
		return errors.As(err, &s)
	case *ExternalAPIError:
		var ex *ExternalAPIError
		return errors.As(err, &ex)
	case *NotFoundError:
		var nf *NotFoundError
		return errors.As(err, &nf)
	case *PreconditionError:
		var p *PreconditionError
		return errors.As(err, &p)
	case *BizError:
		var b *BizError
		return errors.As(err, &b)
	default:
		return errors.Is(err, target)
	}
}
