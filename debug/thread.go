// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

// ThreadID identifies an interpreter thread as presented to the client.
// Exactly one interpreter thread exists per session (spec.md §5), but DAP
// requires a threads response regardless, so the controller always reports
// a single, fixed ThreadID.
type ThreadID int

// MainThreadID is the single ThreadID a session ever reports.
const MainThreadID ThreadID = 1

// Thread is the presentation-ready view of the session's one interpreter
// thread.
type Thread struct {
	ID   ThreadID
	Name string
}
