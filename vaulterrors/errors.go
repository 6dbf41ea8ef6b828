// Package vaulterrors defines the uniform error taxonomy shared by every
// other component. Callers should compare errors with errors.Is against
// the sentinels below, or inspect [Kind] via [KindOf] for presentation
// layers that need to branch on failure kind (e.g. CLI exit codes).
package vaulterrors

import (
	"errors"
	"fmt"
)

// Kind classifies a vault error into one of the taxonomy's fixed kinds.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthFailed
	KindLocked
	KindNotFound
	KindDuplicate
	KindInvalidConfig
	KindDecrypt
	KindCorruptBackup
	KindVersionTooNew
	KindUnknownVariant
	KindIO
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindAuthFailed:
		return "AuthFailed"
	case KindLocked:
		return "Locked"
	case KindNotFound:
		return "NotFound"
	case KindDuplicate:
		return "Duplicate"
	case KindInvalidConfig:
		return "InvalidConfig"
	case KindDecrypt:
		return "Decrypt"
	case KindCorruptBackup:
		return "CorruptBackup"
	case KindVersionTooNew:
		return "VersionTooNew"
	case KindUnknownVariant:
		return "UnknownVariant"
	case KindIO:
		return "Io"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with a [Kind] and the operation that
// produced it. Error messages must never include secret plaintext, derived
// keys, or nonces — callers constructing an [*Error] are responsible for
// keeping Op and the wrapped Err free of such material.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}

	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel for e's Kind, so that
// errors.Is(err, vaulterrors.ErrNotFound) works transparently through an
// [*Error] wrapper.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*sentinelError)
	return ok && sentinel.kind == e.Kind
}

// New constructs an [*Error] for the given kind and operation.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// sentinelError lets the fixed kind sentinels below participate in
// errors.Is comparisons against any [*Error] sharing their [Kind].
type sentinelError struct {
	kind Kind
	msg  string
}

func (s *sentinelError) Error() string { return s.msg }

func sentinel(k Kind, msg string) error {
	return &sentinelError{kind: k, msg: msg}
}

// KindOf extracts the [Kind] of err, walking the Unwrap chain. Errors with
// no associated [*Error] wrapper report [KindUnknown].
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// Sentinel values for the fixed error taxonomy. Compare with errors.Is.
var (
	ErrAuthFailed     = sentinel(KindAuthFailed, "authentication failed")
	ErrLocked         = sentinel(KindLocked, "vault is locked")
	ErrNotFound       = sentinel(KindNotFound, "no record with the given id")
	ErrDuplicate      = sentinel(KindDuplicate, "duplicate record")
	ErrInvalidConfig  = sentinel(KindInvalidConfig, "invalid configuration")
	ErrDecrypt        = sentinel(KindDecrypt, "decryption failed")
	ErrCorruptBackup  = sentinel(KindCorruptBackup, "corrupt backup artifact")
	ErrVersionTooNew  = sentinel(KindVersionTooNew, "artifact format version too new")
	ErrUnknownVariant = sentinel(KindUnknownVariant, "unknown secret variant")
	ErrIO             = sentinel(KindIO, "io error")
	ErrInternal       = sentinel(KindInternal, "internal invariant violation")
)

// ExitCode maps a [Kind] to the process exit code spec'd for the CLI
// collaborator: 0 success, 1 generic failure, 2 authentication failure,
// 3 not-found, 4 corrupt-backup, 5 version-too-new.
func ExitCode(k Kind) int {
	switch k {
	case KindAuthFailed:
		return 2
	case KindNotFound:
		return 3
	case KindCorruptBackup:
		return 4
	case KindVersionTooNew:
		return 5
	default:
		return 1
	}
}
