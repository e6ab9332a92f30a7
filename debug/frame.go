// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import "github.com/scriptdap/scriptdap/engine"

// FrameID identifies a stack frame within the most recent pause. Like
// variable handles, frame IDs are only meaningful while T_int is suspended.
type FrameID int

// StackFrame is the presentation-ready view of one engine.CallFrame.
type StackFrame struct {
	ID       FrameID
	Name     string
	Source   string
	Location engine.Position
}

// StackTrace is the ordered set of frames captured at a pause, innermost
// first, matching engine.DebugInformation.Stack.
type StackTrace []StackFrame

// Scope names a lexical scope exposed under a given stack frame.
type Scope struct {
	Name             string
	VariablesRef     int
	NamedVariables   int
	Expensive        bool
}

// pauseState is everything the Session Controller snapshots into
// CurrentDebugInformation at pause(reason) step 1 (spec.md §4.4): the raw
// engine snapshot plus the per-frame scope handles materialized against it.
type pauseState struct {
	info   engine.DebugInformation
	frames []*engine.CallFrame
	scopes map[FrameID][]Scope
}
