// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package status defines the result codes returned by every backend engine
// operation, and the reserved sentinel sizes used in output size arrays.
package status

import (
	"errors"
	"math"

	"github.com/zeebo/errs"
)

// Code is the result of a single backend engine operation.
type Code uint8

// The full status taxonomy. Per-element not-found and size-too-small
// conditions of a multi-key operation are not reported through Code: they
// are carried in output size arrays (see KeyNotFound, SizeTooSmall below).
// NotFound is the operation-level code, for a missing collection or
// database or the target of a single-key operation.
const (
	OK Code = iota
	InvalidType
	InvalidConf
	InvalidArg
	InvalidID
	NotFound
	SizeError
	KeyExists
	NotSupported
	Corruption
	IOError
	Incomplete
	TimedOut
	Aborted
	Busy
	Expired
	TryAgain
	System
	Canceled
	Permission
	InvalidMode
	Migrated
	StopIteration
	Other
)

var names = [...]string{
	"OK", "InvalidType", "InvalidConf", "InvalidArg", "InvalidID", "NotFound",
	"SizeError", "KeyExists", "NotSupported", "Corruption", "IOError",
	"Incomplete", "TimedOut", "Aborted", "Busy", "Expired", "TryAgain",
	"System", "Canceled", "Permission", "InvalidMode", "Migrated",
	"StopIteration", "Other",
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if int(c) < len(names) {
		return names[c]
	}
	return "Unknown"
}

// Reserved size sentinels for output size arrays. These must never collide
// with a real value size, hence the values near math.MaxUint64.
const (
	// KeyNotFound marks a slot whose key does not exist.
	KeyNotFound uint64 = math.MaxUint64 - 0
	// SizeTooSmall marks a slot whose output buffer was too small to hold
	// the value; the operation continues processing the remaining slots.
	SizeTooSmall uint64 = math.MaxUint64 - 1
	// NoMoreKeys marks a trailing slot in listKeys/listKeyValues once
	// iteration is exhausted.
	NoMoreKeys uint64 = math.MaxUint64 - 2
	// NoMoreDocs is the document-store analogue of NoMoreKeys. It shares
	// the same sentinel value by design (§4.1).
	NoMoreDocs uint64 = NoMoreKeys
)

// IsSentinel reports whether a size drawn from an output size array encodes
// a sentinel condition rather than a real length. Callers must check this
// before treating the value as a byte count.
func IsSentinel(size uint64) bool {
	return size >= math.MaxUint64-2
}

// Class is the zeebo/errs class used to wrap a Code into a Go error for
// callers that want idiomatic error handling instead of inspecting a raw
// Code. The RPC-facing collaborator is expected to unwrap the Code via
// CodeOf for wire encoding; in-process Go callers can just treat the
// returned error normally.
var Class = errs.Class("yokan")

// Error pairs a Code with a human-readable message and satisfies the error
// interface via zeebo/errs.
type Error struct {
	Code Code
	err  error
}

// Newf builds an Error for the given code, formatting the message the way
// errs.Class does.
func Newf(code Code, format string, args ...interface{}) error {
	if code == OK {
		return nil
	}
	return &Error{Code: code, err: Class.New(format, args...)}
}

// Wrap attaches a Code to an existing error, classifying it under the
// yokan error class.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, err: Class.Wrap(err)}
}

// Error implements the error interface.
func (e *Error) Error() string { return e.err.Error() }

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// CodeOf extracts the Code carried by err, or Other if err does not carry
// one. A nil error yields OK.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Other
}
