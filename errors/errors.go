package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// KeyGenError indicates that the cryptographic provider failed to produce
// key material. Fatal for the current enrollment attempt, never retried
// automatically.
type KeyGenError struct {
	msg string
}

// NewKeyGenError constructs a key generation error
func NewKeyGenError(format string, args ...interface{}) *KeyGenError {
	return &KeyGenError{msg: fmt.Sprintf(format, args...)}
}

func (e *KeyGenError) Error() string {
	return e.msg
}

// EnrollmentError indicates that a CA round-trip failed. Transient errors
// (CA unreachable, timeout, server fault) may be retried by the caller;
// permanent errors (bad credentials, unknown principal, CA rejection) must
// not be retried with the same input.
type EnrollmentError struct {
	transient bool
	msg       string
}

// NewTransientEnrollmentError constructs an enrollment error that the caller
// may retry with backoff
func NewTransientEnrollmentError(format string, args ...interface{}) *EnrollmentError {
	return &EnrollmentError{transient: true, msg: fmt.Sprintf(format, args...)}
}

// NewPermanentEnrollmentError constructs an enrollment error that must not
// be retried with the same input
func NewPermanentEnrollmentError(format string, args ...interface{}) *EnrollmentError {
	return &EnrollmentError{transient: false, msg: fmt.Sprintf(format, args...)}
}

func (e *EnrollmentError) Error() string {
	return e.msg
}

// Transient returns true if the failure was a transport fault rather than a
// CA-side rejection
func (e *EnrollmentError) Transient() bool {
	return e.transient
}

// ValidationError indicates a malformed certificate or a certificate whose
// public key does not match its private key. Always permanent.
type ValidationError struct {
	msg string
}

// NewValidationError constructs a validation error
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.msg
}

// WalletError indicates a wallet storage failure or an enrollment
// precondition violation, such as registering a user before the admin
// identity exists.
type WalletError struct {
	msg string
}

// NewWalletError constructs a wallet process error
func NewWalletError(format string, args ...interface{}) *WalletError {
	return &WalletError{msg: fmt.Sprintf(format, args...)}
}

func (e *WalletError) Error() string {
	return e.msg
}

// IsKeyGenError returns true if the error's cause is of type 'KeyGenError'
func IsKeyGenError(err error) bool {
	_, ok := errors.Cause(err).(*KeyGenError)
	return ok
}

// IsEnrollmentError returns true if the error's cause is of type 'EnrollmentError'
func IsEnrollmentError(err error) bool {
	_, ok := errors.Cause(err).(*EnrollmentError)
	return ok
}

// IsTransient returns true if the error's cause is a transient enrollment
// error. Any other error is not retryable.
func IsTransient(err error) bool {
	ee, ok := errors.Cause(err).(*EnrollmentError)
	return ok && ee.Transient()
}

// IsValidationError returns true if the error's cause is of type 'ValidationError'
func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// IsWalletError returns true if the error's cause is of type 'WalletError'
func IsWalletError(err error) bool {
	_, ok := errors.Cause(err).(*WalletError)
	return ok
}
