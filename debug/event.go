// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

// StopReason enumerates why the interpreter thread suspended (spec.md §6).
type StopReason int

const (
	StopEntry StopReason = iota
	StopStep
	StopPause
	StopBreakpoint
	StopDebuggerStatement
	StopException
)

func (r StopReason) String() string {
	switch r {
	case StopEntry:
		return "entry"
	case StopStep:
		return "step"
	case StopPause:
		return "pause"
	case StopBreakpoint:
		return "breakpoint"
	case StopDebuggerStatement:
		return "debugger_statement"
	case StopException:
		return "exception"
	default:
		return "unknown"
	}
}

// EventType identifies which of the client-facing events in spec.md §6 fired.
type EventType int

const (
	StoppedEventType EventType = iota
	ContinuedEventType
	LogPointEventType
	DoneEventType
	CancelledEventType
)

func (t EventType) String() string {
	switch t {
	case StoppedEventType:
		return "stopped"
	case ContinuedEventType:
		return "continued"
	case LogPointEventType:
		return "logpoint"
	case DoneEventType:
		return "done"
	case CancelledEventType:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event is the single wire-agnostic shape every session notification takes.
// The transport collaborator (package dap) is responsible for translating
// these into protocol-specific messages.
type Event struct {
	Type       EventType
	ThreadID   ThreadID
	StopReason StopReason
	Message    string // populated for LogPoint
	Err        error  // populated for a fault that produced Cancelled/Done
}

// EventHandler receives session events in the order they were emitted. The
// session never calls a handler concurrently with itself — every event is
// emitted from the interpreter thread (T_int), outside the session lock —
// but implementations must not block, since a slow HandleEvent stalls the
// interpreter.
type EventHandler interface {
	HandleEvent(e Event)
}

// EventHandlerFunc adapts a function to an EventHandler.
type EventHandlerFunc func(Event)

func (f EventHandlerFunc) HandleEvent(e Event) { f(e) }
