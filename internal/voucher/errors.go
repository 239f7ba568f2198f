package voucher

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every *InputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means the voucher id does not resolve in the registry.
	ErrNotFound = errors.New("voucher not found")
	// ErrForbidden means the voucher exists but belongs to another account.
	ErrForbidden = errors.New("voucher does not belong to account")
)

// InputError reports a malformed or out-of-range request field. Its message
// reads "Invalid <field>: <value>".
type InputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("Invalid %s: %s", e.Field, e.Value)
	}
	return fmt.Sprintf("Invalid %s: %s (%s)", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// RegistryError wraps a failed registry call. The cause is kept intact so
// callers can surface its message.
type RegistryError struct {
	Op  string
	Err error
}

func (e *RegistryError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *RegistryError) Unwrap() error { return e.Err }

func registryErr(op string, err error) error {
	return &RegistryError{Op: op, Err: err}
}
