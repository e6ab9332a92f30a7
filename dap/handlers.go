// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/go-dap"

	"github.com/scriptdap/scriptdap/debug"
	"github.com/scriptdap/scriptdap/engine"
)

func engPosition(line, column int) engine.Position {
	return engine.Position{Line: line, Column: column}
}

var seqCounter int64

func nextSeq() int { return int(atomic.AddInt64(&seqCounter, 1)) }

func newProtocolMessage(typ string) dap.ProtocolMessage {
	return dap.ProtocolMessage{Seq: nextSeq(), Type: typ}
}

func baseResponse(requestSeq int, command string, success bool) dap.Response {
	return dap.Response{
		ProtocolMessage: newProtocolMessage("response"),
		RequestSeq:      requestSeq,
		Success:         success,
		Command:         command,
	}
}

func baseEvent(event string) dap.Event {
	return dap.Event{ProtocolMessage: newProtocolMessage("event"), Event: event}
}

// launchArguments is the subset of the launch request body scriptdap reads;
// clients may send additional editor-specific fields, which json.Unmarshal
// silently ignores.
type launchArguments struct {
	Program      string `json:"program"`
	StopOnEntry  bool   `json:"stopOnEntry"`
}

func (s *Server) dispatch(ctx context.Context, req dap.RequestMessage) error {
	switch r := req.(type) {
	case *dap.InitializeRequest:
		return s.handleInitialize(r)
	case *dap.LaunchRequest:
		return s.handleLaunch(ctx, r)
	case *dap.ConfigurationDoneRequest:
		return s.handleConfigurationDone(r)
	case *dap.SetBreakpointsRequest:
		return s.handleSetBreakpoints(r)
	case *dap.ContinueRequest:
		return s.handleContinue(r)
	case *dap.NextRequest:
		return s.handleNext(r)
	case *dap.StepInRequest:
		return s.handleStepIn(r)
	case *dap.StepOutRequest:
		return s.handleStepOut(r)
	case *dap.PauseRequest:
		return s.handlePause(r)
	case *dap.TerminateRequest:
		return s.handleTerminate(r)
	case *dap.DisconnectRequest:
		return s.handleDisconnect(r)
	case *dap.ThreadsRequest:
		return s.handleThreads(r)
	case *dap.StackTraceRequest:
		return s.handleStackTrace(r)
	case *dap.ScopesRequest:
		return s.handleScopes(r)
	case *dap.VariablesRequest:
		return s.handleVariables(r)
	case *dap.SetVariableRequest:
		return s.handleSetVariable(r)
	case *dap.EvaluateRequest:
		return s.handleEvaluate(ctx, r)
	default:
		return fmt.Errorf("unsupported request %T", req)
	}
}

func (s *Server) sendErrorResponse(requestSeq int, command, message string) {
	resp := &dap.ErrorResponse{
		Response: baseResponse(requestSeq, command, false),
		Body: dap.ErrorResponseBody{
			Error: &dap.ErrorMessage{Format: message},
		},
	}
	s.send(resp)
}

func (s *Server) handleInitialize(req *dap.InitializeRequest) error {
	resp := &dap.InitializeResponse{Response: baseResponse(req.Seq, req.Command, true)}
	resp.Body.SupportsConfigurationDoneRequest = true
	resp.Body.SupportsSetVariable = true
	resp.Body.SupportsEvaluateForHovers = true
	resp.Body.SupportsLogPoints = true
	resp.Body.SupportsConditionalBreakpoints = true
	resp.Body.SupportsHitConditionalBreakpoints = true
	s.send(resp)
	s.send(&dap.InitializedEvent{Event: baseEvent("initialized")})
	return nil
}

func (s *Server) handleLaunch(ctx context.Context, req *dap.LaunchRequest) error {
	var args launchArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		s.sendErrorResponse(req.Seq, req.Command, err.Error())
		return err
	}

	source, err := os.ReadFile(args.Program)
	if err != nil {
		s.sendErrorResponse(req.Seq, req.Command, fmt.Sprintf("reading %s: %v", args.Program, err))
		return err
	}

	session, err := s.debugger.Launch(ctx, debug.LaunchProperties{
		SourceID:     args.Program,
		Source:       string(source),
		PauseOnEntry: args.StopOnEntry,
	})
	if err != nil {
		s.sendErrorResponse(req.Seq, req.Command, err.Error())
		return err
	}
	s.session = session

	s.send(&dap.LaunchResponse{Response: baseResponse(req.Seq, req.Command, true)})
	return nil
}

func (s *Server) handleConfigurationDone(req *dap.ConfigurationDoneRequest) error {
	err := s.session.NotifyUIReady()
	s.send(&dap.ConfigurationDoneResponse{Response: baseResponse(req.Seq, req.Command, err == nil)})
	return err
}

func (s *Server) handleSetBreakpoints(req *dap.SetBreakpointsRequest) error {
	sourceID := req.Arguments.Source.Path
	s.session.ClearBreakpoints(sourceID)

	breakpoints := make([]dap.Breakpoint, 0, len(req.Arguments.Breakpoints))
	for _, want := range req.Arguments.Breakpoints {
		pos := engPosition(want.Line, 0)
		bp, err := s.session.AddBreakpoint(sourceID, pos, want.Condition, want.HitCondition, want.LogMessage)
		if err != nil {
			breakpoints = append(breakpoints, dap.Breakpoint{Verified: false, Message: err.Error()})
			continue
		}
		breakpoints = append(breakpoints, dap.Breakpoint{
			Id:       bp.ID(),
			Verified: true,
			Line:     bp.Location().Line,
		})
	}

	resp := &dap.SetBreakpointsResponse{Response: baseResponse(req.Seq, req.Command, true)}
	resp.Body.Breakpoints = breakpoints
	s.send(resp)
	return nil
}

func (s *Server) handleContinue(req *dap.ContinueRequest) error {
	err := s.session.ResumeAll()
	resp := &dap.ContinueResponse{Response: baseResponse(req.Seq, req.Command, err == nil)}
	resp.Body.AllThreadsContinued = true
	s.send(resp)
	return err
}

func (s *Server) handleNext(req *dap.NextRequest) error {
	err := s.session.StepOver()
	s.send(&dap.NextResponse{Response: baseResponse(req.Seq, req.Command, err == nil)})
	return err
}

func (s *Server) handleStepIn(req *dap.StepInRequest) error {
	err := s.session.StepIn()
	s.send(&dap.StepInResponse{Response: baseResponse(req.Seq, req.Command, err == nil)})
	return err
}

func (s *Server) handleStepOut(req *dap.StepOutRequest) error {
	err := s.session.StepOut()
	s.send(&dap.StepOutResponse{Response: baseResponse(req.Seq, req.Command, err == nil)})
	return err
}

func (s *Server) handlePause(req *dap.PauseRequest) error {
	err := s.session.Pause()
	s.send(&dap.PauseResponse{Response: baseResponse(req.Seq, req.Command, err == nil)})
	return err
}

func (s *Server) handleTerminate(req *dap.TerminateRequest) error {
	err := s.session.Terminate()
	s.send(&dap.TerminateResponse{Response: baseResponse(req.Seq, req.Command, err == nil)})
	return err
}

func (s *Server) handleDisconnect(req *dap.DisconnectRequest) error {
	var err error
	if s.session != nil {
		err = s.session.Terminate()
	}
	s.send(&dap.DisconnectResponse{Response: baseResponse(req.Seq, req.Command, true)})
	return err
}

func (s *Server) handleThreads(req *dap.ThreadsRequest) error {
	resp := &dap.ThreadsResponse{Response: baseResponse(req.Seq, req.Command, true)}
	for _, t := range s.session.Threads() {
		resp.Body.Threads = append(resp.Body.Threads, dap.Thread{Id: int(t.ID), Name: t.Name})
	}
	s.send(resp)
	return nil
}

func (s *Server) handleStackTrace(req *dap.StackTraceRequest) error {
	trace, err := s.session.StackTrace(debug.ThreadID(req.Arguments.ThreadId))
	if err != nil {
		s.sendErrorResponse(req.Seq, req.Command, err.Error())
		return err
	}

	resp := &dap.StackTraceResponse{Response: baseResponse(req.Seq, req.Command, true)}
	resp.Body.TotalFrames = len(trace)
	for _, f := range trace {
		resp.Body.StackFrames = append(resp.Body.StackFrames, dap.StackFrame{
			Id:     int(f.ID),
			Name:   f.Name,
			Line:   f.Location.Line,
			Column: f.Location.Column,
			Source: &dap.Source{Path: f.Source},
		})
	}
	s.send(resp)
	return nil
}

func (s *Server) handleScopes(req *dap.ScopesRequest) error {
	scopes, err := s.session.Scopes(debug.FrameID(req.Arguments.FrameId))
	if err != nil {
		s.sendErrorResponse(req.Seq, req.Command, err.Error())
		return err
	}

	resp := &dap.ScopesResponse{Response: baseResponse(req.Seq, req.Command, true)}
	for _, sc := range scopes {
		resp.Body.Scopes = append(resp.Body.Scopes, dap.Scope{
			Name:               sc.Name,
			VariablesReference: sc.VariablesRef,
			NamedVariables:     sc.NamedVariables,
			Expensive:          sc.Expensive,
		})
	}
	s.send(resp)
	return nil
}

func (s *Server) handleVariables(req *dap.VariablesRequest) error {
	children, err := s.session.Variables(req.Arguments.VariablesReference)
	if err != nil {
		s.sendErrorResponse(req.Seq, req.Command, err.Error())
		return err
	}

	resp := &dap.VariablesResponse{Response: baseResponse(req.Seq, req.Command, true)}
	for _, c := range children {
		resp.Body.Variables = append(resp.Body.Variables, valueToDAP(c.Name, c.Info))
	}
	s.send(resp)
	return nil
}

func (s *Server) handleSetVariable(req *dap.SetVariableRequest) error {
	info, err := s.session.SetVariable(req.Arguments.VariablesReference, req.Arguments.Name, req.Arguments.Value)
	if err != nil {
		s.sendErrorResponse(req.Seq, req.Command, err.Error())
		return err
	}

	resp := &dap.SetVariableResponse{Response: baseResponse(req.Seq, req.Command, true)}
	resp.Body.Value = info.Display
	resp.Body.VariablesReference = info.VariablesRef
	s.send(resp)
	return nil
}

func (s *Server) handleEvaluate(ctx context.Context, req *dap.EvaluateRequest) error {
	v, err := s.session.Evaluate(ctx, req.Arguments.Expression)
	if err != nil {
		s.sendErrorResponse(req.Seq, req.Command, err.Error())
		return err
	}

	resp := &dap.EvaluateResponse{Response: baseResponse(req.Seq, req.Command, true)}
	resp.Body.Result = fmt.Sprintf("%v", v)
	s.send(resp)
	return nil
}

// HandleEvent implements debug.EventHandler: it translates every session
// event into the matching DAP event and writes it to the wire. It may run
// on the interpreter goroutine (T_int), never the read loop's, so it must
// not block on anything the read loop is waiting for.
func (s *Server) HandleEvent(e debug.Event) {
	switch e.Type {
	case debug.StoppedEventType:
		ev := &dap.StoppedEvent{Event: baseEvent("stopped")}
		ev.Body.Reason = stopReasonToDAP(e.StopReason)
		ev.Body.ThreadId = int(e.ThreadID)
		ev.Body.AllThreadsStopped = true
		s.send(ev)
	case debug.ContinuedEventType:
		ev := &dap.ContinuedEvent{Event: baseEvent("continued")}
		ev.Body.ThreadId = int(e.ThreadID)
		ev.Body.AllThreadsContinued = true
		s.send(ev)
	case debug.LogPointEventType:
		ev := &dap.OutputEvent{Event: baseEvent("output")}
		ev.Body.Category = "console"
		ev.Body.Output = e.Message + "\n"
		s.send(ev)
	case debug.DoneEventType:
		if e.Err != nil {
			out := &dap.OutputEvent{Event: baseEvent("output")}
			out.Body.Category = "stderr"
			out.Body.Output = e.Err.Error() + "\n"
			s.send(out)
		}
		s.send(&dap.TerminatedEvent{Event: baseEvent("terminated")})
	case debug.CancelledEventType:
		s.send(&dap.TerminatedEvent{Event: baseEvent("terminated")})
	}
}

func stopReasonToDAP(r debug.StopReason) string {
	switch r {
	case debug.StopEntry:
		return "entry"
	case debug.StopStep:
		return "step"
	case debug.StopPause:
		return "pause"
	case debug.StopBreakpoint:
		return "breakpoint"
	case debug.StopDebuggerStatement:
		return "debugger_statement"
	case debug.StopException:
		return "exception"
	default:
		return "unknown"
	}
}

func valueToDAP(name string, info debug.ValueInfo) dap.Variable {
	return dap.Variable{
		Name:               name,
		Value:              info.Display,
		Type:               info.Type,
		VariablesReference: info.VariablesRef,
		NamedVariables:     info.NamedVariables,
		IndexedVariables:   info.IndexedVariables,
	}
}
