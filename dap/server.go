// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package dap is the Debug Adapter Protocol transport collaborator: it
// frames messages over TCP or stdio using github.com/google/go-dap and
// translates decoded requests into debug.Session calls, and debug.Event
// values back into DAP events.
package dap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/scriptdap/scriptdap/debug"
	"github.com/scriptdap/scriptdap/logging"
)

// DefaultPort is the reference TCP port for the debug adapter (spec.md §6).
const DefaultPort = 4711

// DebuggerFactory builds the debug.Debugger a Server drives, wiring handler
// as its event sink. One factory call happens per accepted connection, so
// each client gets an isolated Debugger (and, transitively, its own engine
// instance via the Debugger's own EngineFactory).
type DebuggerFactory func(handler debug.EventHandler) *debug.Debugger

// Server owns one DAP connection and the debug.Debugger it drives. It is
// itself a debug.EventHandler: session events arrive on HandleEvent and are
// translated into DAP events on the wire.
type Server struct {
	id       string
	debugger *debug.Debugger
	logger   logging.Logger

	conn io.ReadWriteCloser
	w    *bufio.Writer
	wmu  sync.Mutex

	session *debug.Session
}

// NewServer wraps conn (a TCP connection or a stdio pipe pair) in a Server
// whose debug.Debugger is produced by factory, with the Server itself
// wired as the Debugger's event handler. Each Server is tagged with a
// random connection ID so a log line can be traced back to one client
// across concurrent connections.
func NewServer(conn io.ReadWriteCloser, factory DebuggerFactory, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	s := &Server{id: uuid.NewString(), logger: logger, conn: conn, w: bufio.NewWriter(conn)}
	s.debugger = factory(s)
	return s
}

// ListenAndServe binds a TCP listener on addr (127.0.0.1:DefaultPort if
// addr is empty) and serves exactly one connection at a time, the way most single-client
// DAP adapters operate: accept, serve to completion, accept the next.
func ListenAndServe(ctx context.Context, addr string, factory DebuggerFactory, logger logging.Logger) error {
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", DefaultPort)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("dap: listen %s: %w", addr, err)
	}
	defer ln.Close()

	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	logger.Infof("dap: listening on %s", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return fmt.Errorf("dap: accept: %w", err)
			}
		}
		logger.Infof("dap: client connected from %s", conn.RemoteAddr())
		srv := NewServer(conn, factory, logger)
		if err := srv.Serve(ctx); err != nil {
			logger.Errorf("dap: session ended: %v", err)
		}
	}
}

// ServeStdio serves a single session over stdin/stdout, for editor clients
// that launch scriptdap as a subprocess rather than dialing a socket.
func ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer, factory DebuggerFactory, logger logging.Logger) error {
	return NewServer(stdioConn{stdin, stdout}, factory, logger).Serve(ctx)
}

type stdioConn struct {
	io.Reader
	io.Writer
}

func (stdioConn) Close() error { return nil }

// Serve reads and dispatches requests until the connection closes or the
// context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Infof("dap[%s]: session started", s.id)
	reader := bufio.NewReader(s.conn)
	for {
		msg, err := dap.ReadBaseMessage(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("dap[%s]: read message: %w", s.id, err)
		}

		req, ok := msg.(dap.RequestMessage)
		if !ok {
			s.logger.Warnf("dap[%s]: dropping non-request message %T", s.id, msg)
			continue
		}

		if err := s.dispatch(ctx, req); err != nil {
			s.logger.Errorf("dap[%s]: handling %T: %v", s.id, req, err)
		}
	}
}

// send serializes and writes resp/event, guarding the shared writer since
// events can be emitted from the interpreter goroutine concurrently with a
// request/response cycle on the read loop's goroutine.
func (s *Server) send(message dap.Message) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := dap.WriteProtocolMessage(s.w, message); err != nil {
		s.logger.Errorf("dap: write message: %v", err)
		return
	}
	if err := s.w.Flush(); err != nil {
		s.logger.Errorf("dap: flush: %v", err)
	}
}
