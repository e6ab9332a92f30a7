// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package debug

import "sync"

// latch is the single-shot, auto-resetting rendezvous primitive the
// suspend/resume protocol is built on: the interpreter thread waits on it
// inside PauseThread, and any client command that resumes execution sets
// it exactly once after updating session state under its own lock. The
// latch's mutex only guards the set flag itself; callers that need
// session-state writes to happen-before a release take session.mu first
// and release() after, so the ordering still falls out of normal
// critical-section discipline rather than anything latch does internally.
type latch struct {
	mu   sync.Mutex
	cond *sync.Cond
	set  bool
}

func newLatch() *latch {
	l := &latch{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// wait blocks until the latch is set, then atomically resets it.
func (l *latch) wait() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for !l.set {
		l.cond.Wait()
	}
	l.set = false
}

// release sets the latch, waking exactly one waiter (PauseThread only ever
// has a single waiter: the lone interpreter thread).
func (l *latch) release() {
	l.mu.Lock()
	l.set = true
	l.mu.Unlock()
	l.cond.Signal()
}
