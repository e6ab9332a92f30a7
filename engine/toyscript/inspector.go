// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package toyscript

import (
	"fmt"

	"github.com/scriptdap/scriptdap/engine"
)

// Inspector classifies toyscript's handful of runtime value kinds
// (float64, string, bool, nil) for package debug's Variable Store.
// toyscript has no composite values, so Properties/Len/SetProperty are all
// no-ops; it exists purely to satisfy engine.Inspector for the reference
// engine's factory pairing.
type Inspector struct{}

func (Inspector) Classify(v engine.Value) (engine.Kind, string) {
	switch t := v.(type) {
	case nil:
		return engine.KindNull, "null"
	case bool:
		return engine.KindPrimitive, "boolean"
	case float64:
		_ = t
		return engine.KindPrimitive, "number"
	case string:
		return engine.KindPrimitive, "string"
	default:
		return engine.KindPrimitive, fmt.Sprintf("%T", v)
	}
}

func (Inspector) Properties(engine.Value) []engine.PropertyDescriptor { return nil }

func (Inspector) Len(engine.Value) int { return 0 }

func (Inspector) SetProperty(parent engine.Value, name string, newValue engine.Value) (engine.Value, error) {
	return nil, fmt.Errorf("toyscript: %s has no settable properties", name)
}
