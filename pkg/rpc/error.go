package rpc

import (
	"errors"
	"fmt"

	"github.com/decimal-ipc/dscipc/pkg/crypt"
)

// ErrorKind identifies one class of failure in the closed error taxonomy of
// the client. Every error returned by Client and UnixDialer carries one kind.
type ErrorKind string

const (
	// KindConnectionFailure means the daemon socket could not be reached or
	// the exchange was interrupted (refused, missing socket, I/O error,
	// deadline, cancellation).
	KindConnectionFailure ErrorKind = "connection_failure"

	// KindProtocolFailure means the daemon answered with something that is
	// not a usable response envelope, or reported a failure that does not
	// match a more specific kind.
	KindProtocolFailure ErrorKind = "protocol_failure"

	// KindValidation means the call arguments were rejected, locally by the
	// schema or remotely by the daemon.
	KindValidation ErrorKind = "validation_error"

	// KindWalletBinding means the session has no bound wallet, tried to bind
	// twice, or the daemon returned an unusable wallet address.
	KindWalletBinding ErrorKind = "wallet_binding_error"

	// KindTransaction means the daemon reported a failed chain transaction.
	KindTransaction ErrorKind = "transaction_error"

	// KindDecryptionFailed means a Fernet token failed authentication. The
	// daemon reports it by code; locally pkg/crypt returns the plain
	// crypt.ErrDecryptionFailed, which KindOf and errors.Is treat as this
	// kind.
	KindDecryptionFailed ErrorKind = "decryption_failed"
)

// Sentinel errors for matching with errors.Is:
//
//	if errors.Is(err, rpc.ErrTransaction) {
//	    // the daemon rejected the transaction
//	}
//
// Any *Error matches the sentinel of its kind.
var (
	ErrConnectionFailure = &Error{Kind: KindConnectionFailure, Message: "connection failure"}
	ErrProtocolFailure   = &Error{Kind: KindProtocolFailure, Message: "protocol failure"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation error"}
	ErrWalletBinding     = &Error{Kind: KindWalletBinding, Message: "wallet binding error"}
	ErrTransaction       = &Error{Kind: KindTransaction, Message: "transaction error"}

	// ErrDecryptionFailed is returned when a Fernet token fails
	// authentication. It is the same value as crypt.ErrDecryptionFailed and
	// also matches every *Error of KindDecryptionFailed.
	ErrDecryptionFailed = crypt.ErrDecryptionFailed

	// ErrNilRequest is wrapped into a protocol failure when a dialer is
	// handed a nil request.
	ErrNilRequest = errors.New("nil request")
)

// Error is a classified failure. Message is human readable; for failures
// reported by the daemon it is the daemon's own message. The underlying
// cause, if any, is available through errors.Unwrap.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

var _ error = (*Error)(nil)

// newError creates an Error of the given kind with a formatted message.
func newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

// Error implements the error interface. The cause is appended to the message
// when present.
func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.cause.Error()
	}
	return e.Message + ": " + e.cause.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error of the same kind, which makes every
// sentinel match all errors of its kind.
func (e *Error) Is(target error) bool {
	if e.Kind == KindDecryptionFailed && target == crypt.ErrDecryptionFailed {
		return true
	}

	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or an empty
// kind when there is none. A bare crypt.ErrDecryptionFailed is of
// KindDecryptionFailed.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, crypt.ErrDecryptionFailed) {
		return KindDecryptionFailed
	}
	return ""
}
