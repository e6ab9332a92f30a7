// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/scriptdap/scriptdap/engine"
)

// evaluateBoolExpr evaluates expr in frame and coerces the result to a bool.
// Non-boolean, truthy-ish results (non-zero numbers, non-empty strings) are
// accepted the way most embedded-script conditions are, since the engine's
// Value type carries no static type information to the debug package.
func evaluateBoolExpr(ctx context.Context, expr string, frame engine.CallFrame, eval engine.Evaluator) (bool, error) {
	v, err := eval.Evaluate(ctx, expr, frame)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// evaluateHitCondition evaluates hitCondition as an expression over the
// current hit count. By convention the expression may reference the
// variable name "hitCount"; engines that don't support injecting a variable
// for evaluation should still parse conventional forms like ">= 2" or
// "== 3", which this falls back to when direct evaluation fails.
func evaluateHitCondition(ctx context.Context, hitCondition string, hitCount int, frame engine.CallFrame, eval engine.Evaluator) (bool, error) {
	frame.Locals = mergeLocals(frame.Locals, "hitCount", hitCount)
	if v, err := eval.Evaluate(ctx, hitCondition, frame); err == nil {
		return truthy(v), nil
	}
	return evaluateSimpleComparison(hitCondition, hitCount)
}

func mergeLocals(locals map[string]engine.Value, name string, value engine.Value) map[string]engine.Value {
	merged := make(map[string]engine.Value, len(locals)+1)
	for k, v := range locals {
		merged[k] = v
	}
	merged[name] = value
	return merged
}

// evaluateLogMessage evaluates logMessage as an expression and stringifies
// the result for the LogPoint event.
func evaluateLogMessage(ctx context.Context, logMessage string, frame engine.CallFrame, eval engine.Evaluator) (string, error) {
	v, err := eval.Evaluate(ctx, logMessage, frame)
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

func truthy(v engine.Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func stringify(v engine.Value) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// evaluateSimpleComparison is the fallback for engines whose Evaluate
// doesn't understand a synthetic "hitCount" binding: it parses the
// conventional "<op> N" hit-condition syntax directly.
func evaluateSimpleComparison(hitCondition string, hitCount int) (bool, error) {
	op, numStr, err := splitComparison(hitCondition)
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return false, fmt.Errorf("invalid hit condition %q: %w", hitCondition, err)
	}
	switch op {
	case "==", "=":
		return hitCount == n, nil
	case ">=":
		return hitCount >= n, nil
	case "<=":
		return hitCount <= n, nil
	case ">":
		return hitCount > n, nil
	case "<":
		return hitCount < n, nil
	default:
		return false, fmt.Errorf("unsupported hit condition operator in %q", hitCondition)
	}
}

func splitComparison(s string) (op, rest string, err error) {
	trimmed := strings.TrimSpace(s)
	for _, candidate := range []string{">=", "<=", "==", ">", "<", "="} {
		if strings.HasPrefix(trimmed, candidate) {
			return candidate, strings.TrimSpace(trimmed[len(candidate):]), nil
		}
	}
	// No operator: treat the whole string as a bare number, meaning "==".
	return "==", trimmed, nil
}
