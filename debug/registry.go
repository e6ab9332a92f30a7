// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import (
	"sort"
	"sync"

	"github.com/scriptdap/scriptdap/engine"
)

// ScriptInfo is the parsed metadata the Script Registry holds for a
// registered source: its AST handle and the sorted set of positions the
// engine will deliver a callback at (spec.md §3/§4.1).
type ScriptInfo struct {
	SourceID              string
	AST                   engine.AST
	breakpointablePositions []engine.Position // sorted, ascending
}

// BreakpointablePositions returns the script's breakpointable positions, in
// ascending order. Callers must not mutate the returned slice.
func (s *ScriptInfo) BreakpointablePositions() []engine.Position {
	return s.breakpointablePositions
}

// scriptRegistry maps SourceId to ScriptInfo. Entries are written once, at
// registration, and never mutated afterward (spec.md §3 invariant).
type scriptRegistry struct {
	mu      sync.RWMutex
	scripts map[string]*ScriptInfo
}

func newScriptRegistry() *scriptRegistry {
	return &scriptRegistry{scripts: map[string]*ScriptInfo{}}
}

// register admits a parsed script. It fails with ErrDuplicateSource if
// sourceID is already present.
func (r *scriptRegistry) register(sourceID string, ast engine.AST, positions []engine.Position) (*ScriptInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scripts[sourceID]; ok {
		return nil, ErrDuplicateSource
	}

	sorted := make([]engine.Position, len(positions))
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	info := &ScriptInfo{
		SourceID:                sourceID,
		AST:                     ast,
		breakpointablePositions: sorted,
	}
	r.scripts[sourceID] = info
	return info, nil
}

// info returns the ScriptInfo for sourceID, or nil if it isn't registered.
func (r *scriptRegistry) info(sourceID string) *ScriptInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scripts[sourceID]
}

// snapBreakpoint returns the least breakpointable position >= pos in
// sourceID's script. If the requested line has no breakpointable position,
// it falls forward to the next line's first one. Fails with
// ErrNoBreakpointLocation if none exists at all.
func (r *scriptRegistry) snapBreakpoint(sourceID string, pos engine.Position) (engine.Position, error) {
	info := r.info(sourceID)
	if info == nil {
		return engine.Position{}, ErrUnknownSource
	}

	positions := info.breakpointablePositions
	idx := sort.Search(len(positions), func(i int) bool {
		return !positions[i].Less(pos)
	})
	if idx >= len(positions) {
		return engine.Position{}, ErrNoBreakpointLocation
	}
	return positions[idx], nil
}
