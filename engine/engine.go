// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package engine defines the collaborator interfaces the debug adapter core
// (package debug) uses to drive a hosted script engine. Nothing in this
// package suspends a goroutine, holds a mutex, or emits a DAP event — it is
// a pure boundary so that any embedded interpreter can stand in for the
// reference engine in package engine/toyscript.
package engine

import "context"

// StepMode tells the engine how aggressively to keep delivering step
// callbacks after a callback returns.
type StepMode int

const (
	// StepNone means only stop at hard breakpoints or debugger statements.
	StepNone StepMode = iota
	// StepOver means stop at the next statement at the current frame depth
	// or shallower.
	StepOver
	// StepInto means stop at the very next statement, regardless of depth.
	StepInto
	// StepOut means stop at the next statement at a strictly shallower
	// frame.
	StepOut
)

func (m StepMode) String() string {
	switch m {
	case StepNone:
		return "none"
	case StepOver:
		return "over"
	case StepInto:
		return "into"
	case StepOut:
		return "out"
	default:
		return "unknown"
	}
}

// Position is a 1-based line, 0-based column location in a source file.
type Position struct {
	Line   int
	Column int
}

// Less reports whether p sorts before o: by line, then column.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// CallFrame is a single entry of the interpreter's call stack at the time a
// callback fires.
type CallFrame struct {
	Name     string
	Source   string
	Location Position
	// Locals enumerates the variables bound in this frame's lexical scope.
	// Values are opaque engine.Value; the debug package never interprets
	// them directly except through the Inspector it is paired with.
	Locals map[string]Value
}

// DebugInformation is the snapshot handed to the core at every callback.
type DebugInformation struct {
	Stack    []CallFrame // innermost frame first
	Source   string
	Location Position
	// Exception is set only when the callback fires because of an uncaught
	// script-level error the engine is about to propagate.
	Exception error
}

// BreakReason distinguishes why the break callback fired.
type BreakReason int

const (
	// BreakAtBreakpoint means the location matches a breakpointable
	// position the debugger mirrored into the engine's own table.
	BreakAtBreakpoint BreakReason = iota
	// BreakAtDebuggerStatement means the source has a hard "debugger"
	// statement at this location.
	BreakAtDebuggerStatement
)

// AST is an opaque handle to a parsed script. The debug package never
// inspects it; it only threads it back through Run.
type AST interface{}

// Value is an opaque runtime value. Its concrete type is engine-specific;
// package debug narrows it via the Inspector it is paired with.
type Value interface{}

// Hooks bundles the two callback subscriptions the engine invokes. Modeling
// them as plain function slots (no interface, no inheritance) keeps the
// seam small, per the closed design in spec.md's design notes.
type Hooks struct {
	// Step fires at statements that do not fire Break, subject to the
	// StepMode the last callback returned (StepOver and StepOut skip
	// statements in deeper frames). It must be safe to call from the
	// interpreter's own goroutine; it will block that goroutine while the
	// debugger session is paused.
	Step func(ctx context.Context, info DebugInformation) (StepMode, error)
	// Break fires only at breakpoint-binding locations or hard "debugger"
	// statements.
	Break func(ctx context.Context, info DebugInformation, reason BreakReason) (StepMode, error)
}

// Evaluator evaluates a source expression in a captured frame — used for
// breakpoint conditions, hit-count predicates, logpoint messages, and client
// watch/evaluate requests.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, frame CallFrame) (Value, error)
}

// BreakpointRegistrar mirrors the debugger's own Breakpoint Table into the
// engine, so the engine knows which statements must deliver a Break callback
// rather than a plain Step callback.
type BreakpointRegistrar interface {
	SetBreakpoints(sourceID string, positions []Position)
	ClearBreakpoints()
}

// Canceller lets the controller request that a running script abort at its
// next yield point.
type Canceller interface {
	Cancel()
}

// Engine is the full collaborator contract package debug depends on.
type Engine interface {
	Evaluator
	BreakpointRegistrar
	Canceller

	// Parse produces an AST and the script's breakpointable positions.
	Parse(sourceID, source string) (AST, []Position, error)
	// Run executes ast to completion (or cancellation/fault), invoking the
	// installed hooks at each yield point. Run is synchronous: it returns
	// only when the script is done, cancelled, or has faulted.
	Run(ctx context.Context, ast AST, hooks Hooks) error
}
