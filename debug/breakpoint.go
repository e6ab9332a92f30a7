// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/scriptdap/scriptdap/engine"
)

// Breakpoint is the public, narrow view of a breakpoint record. The mutable
// fields (condition, hit count, ...) stay on the unexported breakpoint
// struct, matching the teacher's Breakpoint/breakpoint split.
type Breakpoint interface {
	ID() int
	SourceID() string
	Location() engine.Position
}

type breakpoint struct {
	id           int
	sourceID     string
	location     engine.Position
	condition    string
	hitCondition string
	logMessage   string
	hitCount     int
}

func (b *breakpoint) ID() int                     { return b.id }
func (b *breakpoint) SourceID() string             { return b.sourceID }
func (b *breakpoint) Location() engine.Position    { return b.location }

func (b *breakpoint) String() string {
	return fmt.Sprintf("<%d> %s:%d:%d", b.id, b.sourceID, b.location.Line, b.location.Column)
}

// hitResult is the outcome of evaluateHit (spec.md §4.2).
type hitResult int

const (
	hitNone hitResult = iota
	hitBreak
	hitLog
)

// breakpointTable is an owned collection of breakpoint records, indexed by
// SourceId for lookup, mirroring the teacher's breakpointCollection with
// added support for conditions, hit counts, and logpoints.
type breakpointTable struct {
	mu        sync.Mutex
	bySource  map[string][]*breakpoint
	idCounter int
}

func newBreakpointTable() *breakpointTable {
	return &breakpointTable{bySource: map[string][]*breakpoint{}}
}

func (t *breakpointTable) nextID() int {
	t.idCounter++
	return t.idCounter
}

// set inserts bp, overwriting any existing breakpoint at the same
// (sourceID, position) coordinates.
func (t *breakpointTable) set(sourceID string, pos engine.Position, condition, hitCondition, logMessage string) *breakpoint {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.bySource[sourceID]
	for _, existing := range list {
		if existing.location == pos {
			existing.condition = condition
			existing.hitCondition = hitCondition
			existing.logMessage = logMessage
			existing.hitCount = 0
			return existing
		}
	}

	bp := &breakpoint{
		id:           t.nextID(),
		sourceID:     sourceID,
		location:     pos,
		condition:    condition,
		hitCondition: hitCondition,
		logMessage:   logMessage,
	}
	list = append(list, bp)
	sort.Slice(list, func(i, j int) bool { return list[i].location.Less(list[j].location) })
	t.bySource[sourceID] = list
	return bp
}

// clear empties the table.
func (t *breakpointTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bySource = map[string][]*breakpoint{}
}

// clearSource empties just one source's breakpoints, used when a client
// re-sends setBreakpoints for a single file (DAP semantics: replace, not
// append).
func (t *breakpointTable) clearSource(sourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.bySource, sourceID)
}

// lookup returns the breakpoint at (sourceID, pos), or nil.
func (t *breakpointTable) lookup(sourceID string, pos engine.Position) *breakpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, bp := range t.bySource[sourceID] {
		if bp.location == pos {
			return bp
		}
	}
	return nil
}

// allPositions returns the positions of every registered breakpoint, keyed
// by source — used to mirror the table into the engine's own registrar.
func (t *breakpointTable) allPositions() map[string][]engine.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string][]engine.Position, len(t.bySource))
	for src, list := range t.bySource {
		positions := make([]engine.Position, len(list))
		for i, bp := range list {
			positions[i] = bp.location
		}
		out[src] = positions
	}
	return out
}

// evaluateHit implements spec.md §4.2's hit-evaluation procedure. It must be
// called with the breakpoint looked up for the callback's own location; bp
// may be nil, meaning the callback carried no breakpoint reference.
//
// The evaluation order — hit condition before log message — is normative: a
// logpoint with a hit condition logs only when the predicate fires.
func (t *breakpointTable) evaluateHit(ctx context.Context, bp *breakpoint, frame engine.CallFrame, eval engine.Evaluator) (hitResult, string, error) {
	if bp == nil {
		return hitNone, "", nil
	}

	t.mu.Lock()
	bp.hitCount++
	hitCount := bp.hitCount
	hitCondition := bp.hitCondition
	condition := bp.condition
	logMessage := bp.logMessage
	t.mu.Unlock()

	if hitCondition != "" {
		met, err := evaluateHitCondition(ctx, hitCondition, hitCount, frame, eval)
		if err != nil {
			return hitNone, "", &EvaluationFault{Expr: hitCondition, Err: err}
		}
		if !met {
			return hitNone, "", nil
		}
	} else if condition != "" {
		met, err := evaluateBoolExpr(ctx, condition, frame, eval)
		if err != nil {
			return hitNone, "", &EvaluationFault{Expr: condition, Err: err}
		}
		if !met {
			return hitNone, "", nil
		}
	}

	if logMessage != "" {
		msg, err := evaluateLogMessage(ctx, logMessage, frame, eval)
		if err != nil {
			return hitNone, "", &EvaluationFault{Expr: logMessage, Err: err}
		}
		return hitLog, msg, nil
	}

	return hitBreak, "", nil
}
