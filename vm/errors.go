package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Failure codes
// ---------------------------------------------------------------------------

// Code identifies a distinct failure category. Codes are stable: tools
// (the eval server, the store CLI) report them by name across versions.
type Code int

const (
	CodeOK Code = iota

	// Dynamic failures, raised during dispatch.
	CodeOutOfBounds    // data pointer moved outside the tape
	CodeInputEOF       // reserved: reads past end-of-input yield 0 instead
	CodeOutputOverflow // write with a full output buffer

	// Static failures, raised before any instruction executes.
	CodeUnmatchedClose // ']' with no pending '['
	CodeUnmatchedOpen  // '[' never closed
	CodeTapeAlloc      // requested tape exceeds the allocation cap
	CodeJumpTableAlloc // program exceeds the allocation cap
	CodeStackOverflow  // loop nesting deeper than MaxLoopDepth
	CodeInvalidArgs    // empty program or nonsensical capacities

	// External: a registered debug hook asked for termination.
	CodeDebugHalt
)

var codeNames = map[Code]string{
	CodeOK:             "ok",
	CodeOutOfBounds:    "out-of-bounds",
	CodeInputEOF:       "input-eof",
	CodeOutputOverflow: "output-overflow",
	CodeUnmatchedClose: "unmatched-close",
	CodeUnmatchedOpen:  "unmatched-open",
	CodeTapeAlloc:      "tape-alloc",
	CodeJumpTableAlloc: "jump-table-alloc",
	CodeStackOverflow:  "stack-overflow",
	CodeInvalidArgs:    "invalid-args",
	CodeDebugHalt:      "debug-halt",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// ---------------------------------------------------------------------------
// Error
// ---------------------------------------------------------------------------

// Error is a VM failure: a stable code plus the program position it was
// detected at (-1 when no position applies, e.g. argument validation).
type Error struct {
	Code Code
	Pos  int
	msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

// Is reports code equality, so errors.Is(err, &Error{Code: c}) works for
// callers that only care about the category.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func newError(code Code, pos int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Pos: pos, msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the failure code from an error returned by this package.
// It returns CodeOK for nil and CodeInvalidArgs for foreign errors, which
// only occur when a caller wraps one of ours away.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInvalidArgs
}
