// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import (
	"context"
	"fmt"
	"sync"

	"github.com/scriptdap/scriptdap/engine"
	"github.com/scriptdap/scriptdap/metrics"
)

// DebuggerState is the Session Controller's state machine, driven by the
// engine's step and break callbacks (spec.md §3/§4.4).
type DebuggerState int

const (
	WaitingForUI DebuggerState = iota
	Entering
	Running
	Pausing
	Stepping
	Terminating
)

func (s DebuggerState) String() string {
	switch s {
	case WaitingForUI:
		return "WaitingForUI"
	case Entering:
		return "Entering"
	case Running:
		return "Running"
	case Pausing:
		return "Pausing"
	case Stepping:
		return "Stepping"
	case Terminating:
		return "Terminating"
	default:
		return "Unknown"
	}
}

// StepIntent is the step granularity requested by the command that last
// released the interpreter thread.
type StepIntent int

const (
	IntentNone StepIntent = iota
	IntentOver
	IntentInto
	IntentOut
)

func (i StepIntent) stepMode() engine.StepMode {
	switch i {
	case IntentOver:
		return engine.StepOver
	case IntentInto:
		return engine.StepInto
	case IntentOut:
		return engine.StepOut
	default:
		return engine.StepNone
	}
}

// Session is the Session Controller of spec.md §4.4: the single
// coarse-locked state machine two threads of control interact with — the
// interpreter thread (T_int), which re-enters only inside step/break
// callbacks, and the client thread (T_cli), which drives the public
// operations below and never blocks on script execution.
type Session struct {
	mu sync.Mutex

	state       DebuggerState
	nextStep    StepIntent
	pauseOnEntry bool

	registry    *scriptRegistry
	breakpoints *breakpointTable
	variables   *variableStore

	eng     engine.Engine
	hooks   engine.Hooks
	handler EventHandler

	latch       *latch
	ready       chan struct{}
	readyClosed bool
	cancel      context.CancelFunc
	attached    bool
	detaching   bool

	current *pauseState
	inspector engine.Inspector

	scriptInfo *ScriptInfo
	sourceID   string
}

// newSession constructs a Session bound to one engine instance. inspector
// may be nil if the engine's Value type has no inspectable structure (the
// Variable Store then only ever reports primitives).
func newSession(eng engine.Engine, inspector engine.Inspector, handler EventHandler) *Session {
	s := &Session{
		registry:    newScriptRegistry(),
		breakpoints: newBreakpointTable(),
		eng:         eng,
		handler:     handler,
		latch:       newLatch(),
		ready:       make(chan struct{}),
		inspector:   inspector,
	}
	s.variables = newVariableStore(inspector)
	s.hooks = engine.Hooks{Step: s.stepCallback, Break: s.breakCallback}
	return s
}

func (s *Session) emit(e Event) {
	if s.handler != nil {
		s.handler.HandleEvent(e)
	}
}

// Execute parses and registers source, then spawns the interpreter task on
// its own goroutine and sets state to WaitingForUI (spec.md §4.4 execute).
func (s *Session) Execute(ctx context.Context, sourceID, source string, pauseOnEntry bool) error {
	s.mu.Lock()
	if s.attached {
		s.mu.Unlock()
		return ErrAlreadyAttached
	}

	ast, positions, err := s.eng.Parse(sourceID, source)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("parsing %s: %w", sourceID, err)
	}
	info, err := s.registry.register(sourceID, ast, positions)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.scriptInfo = info
	s.sourceID = sourceID
	s.pauseOnEntry = pauseOnEntry
	s.cancel = cancel
	s.attached = true
	s.state = WaitingForUI
	s.mu.Unlock()

	s.mirrorBreakpoints()
	metrics.ActiveSessions.Inc()

	go s.runInterpreter(runCtx, ast)
	return nil
}

func (s *Session) runInterpreter(ctx context.Context, ast engine.AST) {
	err := s.eng.Run(ctx, ast, s.hooks)

	s.mu.Lock()
	s.attached = false
	terminating := s.state == Terminating
	s.mu.Unlock()
	metrics.ActiveSessions.Dec()

	s.variables.clear()

	switch {
	case err != nil && terminating:
		s.emit(Event{Type: CancelledEventType, Err: err})
	case err != nil:
		s.emit(Event{Type: DoneEventType, Err: &EngineFault{Err: err}})
	default:
		s.emit(Event{Type: DoneEventType})
	}
}

func (s *Session) mirrorBreakpoints() {
	for src, positions := range s.breakpoints.allPositions() {
		s.eng.SetBreakpoints(src, positions)
	}
}

// NotifyUIReady releases the interpreter out of WaitingForUI into Entering.
// This uses its own one-shot gate (s.ready) rather than the pause/resume
// latch: closing it is idempotent via readyClosed, and keeping it off the
// latch means a release that arrives before the interpreter goroutine
// reaches awaitUIReady can never leave the latch falsely armed for the
// session's first real pause.
func (s *Session) NotifyUIReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != WaitingForUI {
		return &StateError{Op: "NotifyUIReady", State: s.state}
	}
	s.state = Entering
	s.closeReadyLocked()
	return nil
}

// closeReadyLocked closes s.ready at most once. Callers hold s.mu.
func (s *Session) closeReadyLocked() {
	if !s.readyClosed {
		s.readyClosed = true
		close(s.ready)
	}
}

// Pause requests a break at the next statement boundary.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == WaitingForUI || s.state == Terminating {
		return &StateError{Op: "Pause", State: s.state}
	}
	s.state = Pausing
	return nil
}

// Resume continues free execution from a pause.
func (s *Session) Resume() error {
	return s.releaseWith(IntentNone, Running)
}

// ResumeAll is an alias for Resume: the session has exactly one interpreter
// thread, so there is nothing to distinguish a per-thread continue from a
// global one.
func (s *Session) ResumeAll() error {
	return s.Resume()
}

// StepOver requests the next statement at the current frame depth or
// shallower.
func (s *Session) StepOver() error {
	return s.releaseWith(IntentOver, Stepping)
}

// StepIn requests the very next statement, regardless of depth.
func (s *Session) StepIn() error {
	return s.releaseWith(IntentInto, Stepping)
}

// StepOut requests the next statement at a strictly shallower frame.
func (s *Session) StepOut() error {
	return s.releaseWith(IntentOut, Stepping)
}

func (s *Session) releaseWith(intent StepIntent, nextState DebuggerState) error {
	s.mu.Lock()
	if s.state != Stepping {
		s.mu.Unlock()
		return &StateError{Op: "resume", State: s.state}
	}
	s.nextStep = intent
	s.state = nextState
	s.mu.Unlock()
	s.latch.release()
	return nil
}

// Terminate signals cancellation and releases the interpreter thread so it
// can observe it. Valid from any state, including WaitingForUI: the
// interpreter may not have reached its first callback yet, so this also
// closes the ready gate in case it is waiting there instead of on the latch.
func (s *Session) Terminate() error {
	s.mu.Lock()
	s.state = Terminating
	s.closeReadyLocked()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.latch.release()
	return nil
}

// AddBreakpoint snaps pos to the nearest breakpointable position in
// sourceID's script, inserts it, and returns the snapped breakpoint.
func (s *Session) AddBreakpoint(sourceID string, pos engine.Position, condition, hitCondition, logMessage string) (Breakpoint, error) {
	snapped, err := s.registry.snapBreakpoint(sourceID, pos)
	if err != nil {
		return nil, err
	}
	bp := s.breakpoints.set(sourceID, snapped, condition, hitCondition, logMessage)
	s.eng.SetBreakpoints(sourceID, s.breakpoints.allPositions()[sourceID])
	return bp, nil
}

// ClearBreakpoints empties sourceID's breakpoints (or the whole table when
// sourceID is empty, matching a fresh session's client sending an initial
// bulk setBreakpoints per file).
func (s *Session) ClearBreakpoints(sourceID string) {
	if sourceID == "" {
		s.breakpoints.clear()
		s.eng.ClearBreakpoints()
		return
	}
	s.breakpoints.clearSource(sourceID)
	s.eng.SetBreakpoints(sourceID, nil)
}

// Evaluate delegates to the engine's evaluator in the current pause's
// topmost frame. Valid only while paused.
func (s *Session) Evaluate(ctx context.Context, expr string) (engine.Value, error) {
	s.mu.Lock()
	cur := s.current
	state := s.state
	s.mu.Unlock()

	if cur == nil || len(cur.frames) == 0 {
		return nil, &StateError{Op: "Evaluate", State: state}
	}
	return s.eng.Evaluate(ctx, expr, *cur.frames[0])
}

// Threads always reports the single interpreter thread (spec.md §5).
func (s *Session) Threads() []Thread {
	return []Thread{{ID: MainThreadID, Name: "main"}}
}

// StackTrace returns the frames captured at the most recent pause.
func (s *Session) StackTrace(_ ThreadID) (StackTrace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, &StateError{Op: "StackTrace", State: s.state}
	}
	out := make(StackTrace, len(s.current.frames))
	for i, f := range s.current.frames {
		out[i] = StackFrame{ID: FrameID(i), Name: f.Name, Source: f.Source, Location: f.Location}
	}
	return out, nil
}

// Scopes returns the named lexical scopes materialized for frameID at the
// current pause.
func (s *Session) Scopes(frameID FrameID) ([]Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, &StateError{Op: "Scopes", State: s.state}
	}
	scopes, ok := s.current.scopes[frameID]
	if !ok {
		return nil, fmt.Errorf("frame %d: %w", frameID, ErrUnknownHandle)
	}
	return scopes, nil
}

// Variables returns the named children under variablesReference.
func (s *Session) Variables(variablesReference int) ([]namedValue, error) {
	c, err := s.variables.get(variablesReference)
	if err != nil {
		return nil, err
	}
	return c.getChildren(s.variables)
}

// SetVariable assigns name under the container at parentReference.
func (s *Session) SetVariable(parentReference int, name string, newValue engine.Value) (ValueInfo, error) {
	return s.variables.setVariable(parentReference, name, newValue)
}

// --- engine callbacks (run on T_int) ---

// awaitUIReady blocks the interpreter thread on s.ready when it reaches its
// very first callback before the client has called NotifyUIReady: Execute
// spawns the interpreter goroutine unconditionally, so the first statement's
// callback can easily win the race against the client's
// launch/setBreakpoints/configurationDone round trip. Returns the (possibly
// updated) state after waking.
func (s *Session) awaitUIReady(state DebuggerState) DebuggerState {
	if state != WaitingForUI {
		return state
	}
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) stepCallback(ctx context.Context, info engine.DebugInformation) (engine.StepMode, error) {
	if err := ctx.Err(); err != nil {
		return engine.StepNone, err
	}

	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return engine.StepNone, nil
	}
	state := s.state
	s.mu.Unlock()
	state = s.awaitUIReady(state)

	// Breakpoint/logpoint locations never reach here: they're mirrored into
	// the engine (mirrorBreakpoints) and delivered through breakCallback
	// instead, so there is no hit to evaluate on the step path.

	switch state {
	case WaitingForUI, Terminating:
		return engine.StepNone, &StateError{Op: "step callback", State: state}
	case Entering:
		if !s.pauseOnEntry {
			s.mu.Lock()
			s.state = Running
			s.mu.Unlock()
			return engine.StepNone, nil
		}
		s.setState(Stepping)
		return s.pause(ctx, StopEntry, info)
	case Running:
		metrics.Steps.Inc()
		return engine.StepNone, nil
	case Pausing:
		s.setState(Stepping)
		return s.pause(ctx, StopPause, info)
	case Stepping:
		return s.pause(ctx, StopStep, info)
	default:
		metrics.Steps.Inc()
		return engine.StepNone, nil
	}
}

func (s *Session) breakCallback(ctx context.Context, info engine.DebugInformation, reason engine.BreakReason) (engine.StepMode, error) {
	if err := ctx.Err(); err != nil {
		return engine.StepNone, err
	}

	s.mu.Lock()
	attached := s.attached
	state := s.state
	s.mu.Unlock()
	if !attached {
		return engine.StepNone, nil
	}
	s.awaitUIReady(state)

	if reason == engine.BreakAtDebuggerStatement {
		s.setState(Stepping)
		return s.pause(ctx, StopDebuggerStatement, info)
	}

	bp := s.breakpointAt(info)
	hit, msg, evalErr := s.breakpoints.evaluateHit(ctx, bp, currentFrame(info), s.eng)
	if evalErr != nil {
		return engine.StepNone, nil
	}
	if hit == hitLog {
		metrics.BreakpointHits.Inc()
		s.emit(Event{Type: LogPointEventType, ThreadID: MainThreadID, Message: msg})
		return engine.StepNone, nil
	}
	if hit != hitBreak {
		return engine.StepNone, nil
	}

	metrics.BreakpointHits.Inc()
	s.setState(Stepping)
	return s.pause(ctx, StopBreakpoint, info)
}

func (s *Session) setState(next DebuggerState) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

func (s *Session) breakpointAt(info engine.DebugInformation) *breakpoint {
	return s.breakpoints.lookup(info.Source, info.Location)
}

func currentFrame(info engine.DebugInformation) engine.CallFrame {
	if len(info.Stack) == 0 {
		return engine.CallFrame{Source: info.Source, Location: info.Location}
	}
	return info.Stack[0]
}

// pause implements spec.md §4.4's pause(reason) procedure: snapshot,
// Stopped, block on the latch, Continued, return the StepIntent that
// released it.
func (s *Session) pause(ctx context.Context, reason StopReason, info engine.DebugInformation) (engine.StepMode, error) {
	s.snapshot(info)
	metrics.Pauses.WithLabelValues(reason.String()).Inc()

	s.emit(Event{Type: StoppedEventType, ThreadID: MainThreadID, StopReason: reason})
	s.latch.wait()

	s.mu.Lock()
	terminating := s.state == Terminating
	intent := s.nextStep
	s.mu.Unlock()

	if terminating || ctx.Err() != nil {
		return engine.StepNone, fmt.Errorf("%w", ErrCancelled)
	}

	s.emit(Event{Type: ContinuedEventType, ThreadID: MainThreadID})
	return intent.stepMode(), nil
}

// snapshot materializes CurrentDebugInformation: the call stack and, for
// each frame, its named scopes (Locals plus whatever else the reference
// engine reports), ready for StackTrace/Scopes/Variables.
func (s *Session) snapshot(info engine.DebugInformation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Handles from a prior pause are intentionally left live: spec.md §8
	// requires get(handle) to keep succeeding for the lifetime of the
	// session, not just until the next pause. Only session end (see
	// runInterpreter) clears the store.
	frames := make([]*engine.CallFrame, len(info.Stack))
	scopes := make(map[FrameID][]Scope, len(info.Stack))
	for i := range info.Stack {
		f := info.Stack[i]
		frames[i] = &f

		order := make([]string, 0, len(f.Locals))
		for name := range f.Locals {
			order = append(order, name)
		}
		ref := s.variables.addScope("Locals", f.Locals, order, &f, false)
		scopes[FrameID(i)] = []Scope{{
			Name:           "Locals",
			VariablesRef:   ref,
			NamedVariables: len(f.Locals),
		}}
	}

	s.current = &pauseState{info: info, frames: frames, scopes: scopes}
}
