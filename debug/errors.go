// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import "fmt"

// Sentinel errors for conditions that carry no extra data, matched with
// errors.Is by the transport layer when translating to DAP error responses
// (spec.md §7).
var (
	// ErrDuplicateSource is returned by the Script Registry when a
	// SourceId is registered twice.
	ErrDuplicateSource = fmt.Errorf("source already registered")
	// ErrNoBreakpointLocation is returned when no breakpointable position
	// exists at or after the requested one.
	ErrNoBreakpointLocation = fmt.Errorf("no breakpointable location")
	// ErrUnknownSource is returned when a SourceId has no registered
	// ScriptInfo.
	ErrUnknownSource = fmt.Errorf("unknown source")
	// ErrUnknownHandle is returned when a variable reference is not in the
	// Variable Store.
	ErrUnknownHandle = fmt.Errorf("unknown variable handle")
	// ErrReadOnly is returned by setVariable when the target container
	// does not support mutation.
	ErrReadOnly = fmt.Errorf("variable is read-only")
	// ErrAlreadyAttached is returned by attach when the session is already
	// subscribed to the engine's callbacks.
	ErrAlreadyAttached = fmt.Errorf("already attached")
	// ErrCancelled is not a failure: it is returned by operations that
	// observe a terminate() already in progress.
	ErrCancelled = fmt.Errorf("session cancelled")
)

// StateError reports a state-machine precondition violation (spec.md §7,
// InvalidState). It carries the offending state so callers and logs can
// report it without a type switch on the sentinel error alone.
type StateError struct {
	Op    string
	State DebuggerState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state for %s: %s", e.Op, e.State)
}

// EvaluationFault wraps an error raised while evaluating a breakpoint
// condition, hit-count predicate, logpoint message, or watch expression
// (spec.md §7, EvaluationFault). It never terminates the session; the
// breakpoint that triggered it is treated as non-breaking for that hit.
type EvaluationFault struct {
	Expr string
	Err  error
}

func (e *EvaluationFault) Error() string {
	return fmt.Sprintf("evaluating %q: %v", e.Expr, e.Err)
}

func (e *EvaluationFault) Unwrap() error { return e.Err }

// EngineFault wraps the first uncaught fault surfaced by the engine (a
// script-level error or an engine-internal error). It is fatal to the
// session (spec.md §7, EngineFault).
type EngineFault struct {
	Err error
}

func (e *EngineFault) Error() string {
	return fmt.Sprintf("engine fault: %v", e.Err)
}

func (e *EngineFault) Unwrap() error { return e.Err }
