// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package debug implements the execution-control core of scriptdap: the
// Script Registry, Breakpoint Table, Variable Store, and Session
// Controller that bridge an embedded script engine (package engine) to a
// DAP-speaking client (package dap), without depending on either.
package debug

import (
	"context"

	"github.com/scriptdap/scriptdap/engine"
	"github.com/scriptdap/scriptdap/logging"
)

// LaunchProperties configures a single debug session.
type LaunchProperties struct {
	SourceID     string
	Source       string
	PauseOnEntry bool
}

// Option configures a Debugger at construction time.
type Option func(*Debugger)

// SetEventHandler installs the handler that receives every session event.
func SetEventHandler(h EventHandler) Option {
	return func(d *Debugger) { d.handler = h }
}

// SetLogger installs a logger the Debugger uses for its own diagnostics
// (session lifecycle, not script output); nil disables logging.
func SetLogger(l logging.Logger) Option {
	return func(d *Debugger) { d.logger = l }
}

// Debugger is the top-level facade: one Debugger per embedded engine
// instance, capable of launching sessions against it. Most deployments run
// exactly one session per Debugger (the transport layer creates one
// Debugger per client connection), but nothing here prevents reuse.
type Debugger struct {
	eng     EngineFactory
	handler EventHandler
	logger  logging.Logger
}

// EngineFactory produces a fresh engine and its value inspector for each
// launched session, so concurrent sessions never share interpreter state.
type EngineFactory func() (engine.Engine, engine.Inspector)

// NewDebugger constructs a Debugger that launches sessions against engines
// produced by factory.
func NewDebugger(factory EngineFactory, opts ...Option) *Debugger {
	d := &Debugger{eng: factory, logger: logging.NewNoOpLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Launch parses and runs props.Source as a new Session, returning
// immediately once the interpreter task has been spawned (state
// WaitingForUI); the caller must call Session.NotifyUIReady once its
// client has finished configuring breakpoints.
func (d *Debugger) Launch(ctx context.Context, props LaunchProperties) (*Session, error) {
	eng, inspector := d.eng()
	s := newSession(eng, inspector, d.handler)
	d.logger.Infof("launching session for %s", props.SourceID)
	if err := s.Execute(ctx, props.SourceID, props.Source, props.PauseOnEntry); err != nil {
		d.logger.Errorf("launch failed for %s: %v", props.SourceID, err)
		return nil, err
	}
	return s, nil
}
