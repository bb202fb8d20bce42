// Package protoerr defines the typed error taxonomy shared by the wire
// codec, CLIQUES, ASKE, and Greeter packages (spec.md §7).
//
// Grounded on the teacher's sentinel-error style in crypto/types.go, but
// adapted from bare `var Err... = errors.New(...)` sentinels to a small
// typed error carrying a Code so callers can both `errors.Is` against a
// sentinel and switch on category (e.g. the Greeter silently drops
// CodeWrongRecipient but treats every other code as session-ending).
package protoerr

import (
	"errors"
	"fmt"
)

// Code identifies a category of protocol failure.
type Code int

const (
	// CodeUnknownVersion: the wire packet's version byte does not match
	// this build's protocol version.
	CodeUnknownVersion Code = iota
	// CodeMalformedFrame: the TLV structure is structurally invalid.
	CodeMalformedFrame
	// CodeBadSignature: an outer frame signature, data-message signature,
	// or ASKE session-acknowledgement signature failed to verify.
	CodeBadSignature
	// CodeProtocolViolation: a structural invariant was broken (duplicate
	// members, length mismatch, illegal state transition, self-exclude).
	CodeProtocolViolation
	// CodeWrongRecipient: the message was not addressed to self or to
	// broadcast; callers MUST drop it silently rather than end the session.
	CodeWrongRecipient
)

func (c Code) String() string {
	switch c {
	case CodeUnknownVersion:
		return "UnknownVersion"
	case CodeMalformedFrame:
		return "MalformedFrame"
	case CodeBadSignature:
		return "BadSignature"
	case CodeProtocolViolation:
		return "ProtocolViolation"
	case CodeWrongRecipient:
		return "WrongRecipient"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type the wire codec, CLIQUES, ASKE, and
// Greeter packages return for protocol failures. Errors from the CSPRNG and
// key generation in package crypto, and from package config, are plain
// wrapped errors instead.
type Error struct {
	Code   Code
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, protoerr.UnknownVersion) etc. to match any
// *Error of the same Code, ignoring Reason/Cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New constructs an *Error with the given code and reason.
func New(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

// Wrap constructs an *Error with the given code, reason, and cause.
func Wrap(code Code, reason string, cause error) *Error {
	return &Error{Code: code, Reason: reason, Cause: cause}
}

// Sentinels usable with errors.Is. The Reason field is ignored by Is, so
// these only need to carry the Code.
var (
	UnknownVersion    = &Error{Code: CodeUnknownVersion}
	MalformedFrame    = &Error{Code: CodeMalformedFrame}
	BadSignature      = &Error{Code: CodeBadSignature}
	ProtocolViolation = &Error{Code: CodeProtocolViolation}
	WrongRecipient    = &Error{Code: CodeWrongRecipient}
)

// Fatal reports whether a session must terminate after this error, per
// spec.md §7: every code is fatal except CodeWrongRecipient, which is
// silently dropped.
func Fatal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code != CodeWrongRecipient
}
