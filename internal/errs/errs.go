// ABOUTME: Typed error taxonomy shared by the authorization engine
// ABOUTME: Every error carries a machine-readable Kind plus an optional wrapped cause

package errs

import (
	"errors"
	"fmt"
)

// Kind is the stable machine-readable classification of an engine error.
type Kind string

const (
	// Configuration errors are fatal at construction time and never retried.
	KindConfig Kind = "config"

	// Authorization errors are recoverable by the caller.
	KindNotOwner       Kind = "not_owner"
	KindNotDelegatee   Kind = "not_delegatee"
	KindNotFound       Kind = "not_found"
	KindAlreadyExists  Kind = "already_exists"
	KindToolDisabled   Kind = "tool_disabled"
	KindPolicyDisabled Kind = "policy_disabled"

	// Resource errors carry both the required and available amounts.
	KindInsufficientBalance Kind = "insufficient_balance"

	// Schema errors are fatal to the operation that triggered them.
	KindSchemaViolation Kind = "schema_violation"
	KindMalformedPolicy Kind = "malformed_policy"

	// Transfer errors wrap a failed identity ownership transfer.
	KindTransferFailed Kind = "transfer_failed"

	// External-call errors wrap registry/ledger/model transport failures.
	KindExternal Kind = "external"
)

// Error is the engine's error type. The Kind is stable and machine readable;
// Cause, when set, preserves the underlying error for unwrapping.
type Error struct {
	Kind      Kind
	Op        string // failing operation, e.g. "registry.SetPolicy"
	Message   string
	Identity  string
	Tool      string
	Delegatee string
	Detail    map[string]any
	Cause     error
}

// Error renders the kind, operation, context and message, followed by the
// cause when present.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Identity != "" {
		msg += fmt.Sprintf(" (identity=%s", e.Identity)
		if e.Tool != "" {
			msg += " tool=" + e.Tool
		}
		if e.Delegatee != "" {
			msg += " delegatee=" + e.Delegatee
		}
		msg += ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two engine errors by Kind, so callers can write
// errors.Is(err, &Error{Kind: KindNotFound}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an Error with a kind and message.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an Error around a cause.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) an engine Error, or
// empty otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) an engine Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// NewInsufficientBalance builds the resource error with both amounts
// attached, in the ledger's base units.
func NewInsufficientBalance(op, required, available string) *Error {
	return &Error{
		Kind:    KindInsufficientBalance,
		Op:      op,
		Message: fmt.Sprintf("required %s, available %s", required, available),
		Detail: map[string]any{
			"required":  required,
			"available": available,
		},
	}
}
