// Copyright 2024 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import (
	v1 "github.com/open-policy-agent/opa/v1/debug"
)

type FrameID = v1.FrameID

type StackFrame = v1.StackFrame

// StackTrace represents a StackFrame stack.
type StackTrace = v1.StackTrace
