// Package hubcore defines the error contract shared by every core
// component (kv, message, store, identity, engine, trie, syncengine).
package hubcore

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a dotted error-kind string as enumerated in the error handling
// design: bad_request.validation_failure, bad_request.conflict,
// bad_request.parse_failure, bad_request.invalid_param, not_found,
// unavailable, unknown.
type Code string

const (
	CodeValidationFailure Code = "bad_request.validation_failure"
	CodeConflict          Code = "bad_request.conflict"
	CodeParseFailure      Code = "bad_request.parse_failure"
	CodeInvalidParam      Code = "bad_request.invalid_param"
	CodeNotFound          Code = "not_found"
	CodeUnavailable       Code = "unavailable"
	CodeUnknown           Code = "unknown"
)

// HubError is the sum-type result carried by every fallible core
// operation: Ok(T) is just a plain return value, Err is a *HubError.
// unknown-kind errors keep a stack trace (via pkg/errors) since they are
// fatal-to-the-operation invariant violations worth debugging; the other
// kinds are cheap to construct since they are expected control flow.
type HubError struct {
	code Code
	msg  string
	err  error
}

func New(code Code, msg string) *HubError {
	return &HubError{code: code, msg: msg}
}

func Newf(code Code, format string, args ...any) *HubError {
	return &HubError{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an unknown-kind HubError retaining err's stack trace. Use
// for invariant violations that should never happen in correct code.
func Wrap(err error, msg string) *HubError {
	return &HubError{code: CodeUnknown, msg: msg, err: errors.WithStack(err)}
}

func (e *HubError) Code() Code { return e.code }

func (e *HubError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *HubError) Unwrap() error { return e.err }

func IsCode(err error, code Code) bool {
	he, ok := err.(*HubError)
	return ok && he.code == code
}
