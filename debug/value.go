// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import (
	"strconv"

	"github.com/scriptdap/scriptdap/engine"
)

// ValueInfo is the materialized, wire-shaped view of an engine.Value: the
// closed union of Null | Primitive | Array | Function | Object | Getter
// from spec.md §4.3, flattened into one struct so presentation and the dap
// package never need a type switch of their own.
type ValueInfo struct {
	Name             string
	Kind             engine.Kind
	Display          string // human-readable rendering, e.g. "42", "[3 items]"
	Type             string // engine-reported type name, e.g. "object", "function"
	VariablesRef     int    // 0 if not further inspectable
	NamedVariables   int
	IndexedVariables int
	IsGetter         bool
}

// createValue materializes v under the given display name, allocating a
// variable-reference handle only when v has children to expand. Getter
// properties are never evaluated here — see createGetterValue.
func (vs *variableStore) createValue(name string, v engine.Value) ValueInfo {
	kind, typeName := vs.inspector.Classify(v)

	info := ValueInfo{
		Name: name,
		Kind: kind,
		Type: typeName,
	}

	switch kind {
	case engine.KindNull:
		info.Display = "null"
	case engine.KindPrimitive:
		info.Display = stringify(v)
	case engine.KindFunction:
		info.Display = "function " + typeName
	case engine.KindArray:
		n := vs.inspector.Len(v)
		info.Display = arraySummary(n)
		info.IndexedVariables = n
		info.VariablesRef = vs.addArrayLike(v)
	case engine.KindObject:
		info.Display = "Object"
		info.NamedVariables = len(vs.inspector.Properties(v))
		info.VariablesRef = vs.addObject(v)
	default:
		info.Display = stringify(v)
	}

	return info
}

// createGetterValue materializes a property descriptor as a Getter
// variant: display text announces the getter without invoking it, and the
// allocated handle defers evaluation until the client expands it (spec.md
// §4.3, §9's "getters are never invoked eagerly" invariant).
func (vs *variableStore) createGetterValue(desc engine.PropertyDescriptor, owner engine.Value) ValueInfo {
	return ValueInfo{
		Name:         desc.Name,
		Kind:         engine.KindObject,
		Display:      "(...)",
		Type:         "getter",
		IsGetter:     true,
		VariablesRef: vs.addProperty(desc, owner),
	}
}

func arraySummary(n int) string {
	if n == 1 {
		return "[1 item]"
	}
	return "[" + strconv.Itoa(n) + " items]"
}
