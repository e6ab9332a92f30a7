// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import (
	"sync"

	"github.com/scriptdap/scriptdap/engine"
)

// VariableContainer is the closed, four-variant union spec.md §3/§9
// describes: a lexical Scope, a generic Object, an Array-like, or a lazy
// Property descriptor. The only polymorphism is on getChildren/setVariable;
// there is no class hierarchy, only this interface and its four unexported
// implementations.
type VariableContainer interface {
	// getChildren returns the named child ValueInfos of this container.
	getChildren(vs *variableStore) ([]namedValue, error)
	// setVariable assigns newValue to name within this container and
	// returns the re-materialized value. Returns ErrReadOnly if the
	// container does not support mutation.
	setVariable(vs *variableStore, name string, newValue engine.Value) (ValueInfo, error)
}

type namedValue struct {
	Name string
	Info ValueInfo
}

// scopeContainer holds a named lexical scope (Locals, Input, Data, ...) and
// the optional call frame it was captured from.
type scopeContainer struct {
	name   string
	vars   map[string]engine.Value
	frame  *engine.CallFrame
	order  []string // preserves the scope's natural enumeration order
	readOnly bool
}

func (s *scopeContainer) getChildren(vs *variableStore) ([]namedValue, error) {
	out := make([]namedValue, 0, len(s.vars))
	for _, name := range s.order {
		out = append(out, namedValue{Name: name, Info: vs.createValue(name, s.vars[name])})
	}
	return out, nil
}

func (s *scopeContainer) setVariable(vs *variableStore, name string, newValue engine.Value) (ValueInfo, error) {
	if s.readOnly {
		return ValueInfo{}, ErrReadOnly
	}
	if _, ok := s.vars[name]; !ok {
		return ValueInfo{}, ErrReadOnly
	}
	s.vars[name] = newValue
	return vs.createValue(name, newValue), nil
}

// objectContainer holds a generic runtime object.
type objectContainer struct {
	obj engine.Value
}

func (o *objectContainer) getChildren(vs *variableStore) ([]namedValue, error) {
	return childrenOf(vs, o.obj), nil
}

func (o *objectContainer) setVariable(vs *variableStore, name string, newValue engine.Value) (ValueInfo, error) {
	updated, err := vs.inspector.SetProperty(o.obj, name, newValue)
	if err != nil {
		return ValueInfo{}, err
	}
	return vs.createValue(name, updated), nil
}

// arrayContainer holds an array-like runtime object (arrays, arguments,
// typed arrays).
type arrayContainer struct {
	obj engine.Value
}

func (a *arrayContainer) getChildren(vs *variableStore) ([]namedValue, error) {
	return childrenOf(vs, a.obj), nil
}

func (a *arrayContainer) setVariable(vs *variableStore, name string, newValue engine.Value) (ValueInfo, error) {
	updated, err := vs.inspector.SetProperty(a.obj, name, newValue)
	if err != nil {
		return ValueInfo{}, err
	}
	return vs.createValue(name, updated), nil
}

// propertyContainer holds a lazy property descriptor. Its getter, if any,
// is invoked only when the client expands this container's handle — never
// during scope enumeration (spec.md §4.3 / §9).
type propertyContainer struct {
	desc  engine.PropertyDescriptor
	owner engine.Value
}

func (p *propertyContainer) getChildren(vs *variableStore) ([]namedValue, error) {
	v := p.desc.Value
	if p.desc.Getter != nil {
		resolved, err := p.desc.Getter()
		if err != nil {
			return nil, &EvaluationFault{Expr: p.desc.Name, Err: err}
		}
		v = resolved
	}
	return childrenOf(vs, v), nil
}

func (p *propertyContainer) setVariable(_ *variableStore, _ string, _ engine.Value) (ValueInfo, error) {
	return ValueInfo{}, ErrReadOnly
}

func childrenOf(vs *variableStore, obj engine.Value) []namedValue {
	props := vs.inspector.Properties(obj)
	out := make([]namedValue, 0, len(props))
	for _, p := range props {
		if p.Getter != nil {
			out = append(out, namedValue{Name: p.Name, Info: vs.createGetterValue(p, obj)})
			continue
		}
		out = append(out, namedValue{Name: p.Name, Info: vs.createValue(p.Name, p.Value)})
	}
	return out
}

// variableStore is the monotonic handle registry of spec.md §4.3: a
// mapping from integer handles to VariableContainers. Handle 0 is reserved
// for "not inspectable"; handles are never reused within a session.
type variableStore struct {
	mu        sync.Mutex
	handles   map[int]VariableContainer
	nextID    int
	inspector engine.Inspector
}

func newVariableStore(inspector engine.Inspector) *variableStore {
	return &variableStore{
		handles:   map[int]VariableContainer{},
		nextID:    1,
		inspector: inspector,
	}
}

func (vs *variableStore) alloc(c VariableContainer) int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	id := vs.nextID
	vs.nextID++
	vs.handles[id] = c
	return id
}

func (vs *variableStore) addScope(name string, vars map[string]engine.Value, order []string, frame *engine.CallFrame, readOnly bool) int {
	return vs.alloc(&scopeContainer{name: name, vars: vars, order: order, frame: frame, readOnly: readOnly})
}

func (vs *variableStore) addObject(obj engine.Value) int {
	return vs.alloc(&objectContainer{obj: obj})
}

func (vs *variableStore) addArrayLike(obj engine.Value) int {
	return vs.alloc(&arrayContainer{obj: obj})
}

func (vs *variableStore) addProperty(desc engine.PropertyDescriptor, owner engine.Value) int {
	return vs.alloc(&propertyContainer{desc: desc, owner: owner})
}

// get returns the container for handle, failing with ErrUnknownHandle.
func (vs *variableStore) get(handle int) (VariableContainer, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	c, ok := vs.handles[handle]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return c, nil
}

// setVariable dispatches to the container's set operation and re-
// materializes the resulting value for display.
func (vs *variableStore) setVariable(parentHandle int, name string, newValue engine.Value) (ValueInfo, error) {
	c, err := vs.get(parentHandle)
	if err != nil {
		return ValueInfo{}, err
	}
	return c.setVariable(vs, name, newValue)
}

// clear invalidates every handle, for session end (spec.md §4.3). nextID is
// left untouched: handles are never reused within a session, so a handle
// issued before clear must never be reissued to a different value after it.
func (vs *variableStore) clear() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.handles = map[int]VariableContainer{}
}
