// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/scriptdap/scriptdap/debug"
	"github.com/scriptdap/scriptdap/engine"
	"github.com/scriptdap/scriptdap/engine/toyscript"
	"github.com/scriptdap/scriptdap/logging"
	"github.com/scriptdap/scriptdap/presentation"
)

const defaultHistoryFile = ".scriptdap_history"

// repl drives a debug.Session directly from an interactive local shell,
// bypassing the DAP transport entirely — useful for exercising a script's
// debug hooks without an editor attached.
type repl struct {
	Output      io.Writer
	Session     *debug.Session
	HistoryPath string
	stopped     chan debug.Event
	done        bool
}

func initRepl(rootCommand *cobra.Command, _ string) {
	var stopOnEntry bool

	replCommand := &cobra.Command{
		Use:   "repl <script>",
		Short: "Step a script interactively from the terminal",
		Long: `Run a script under the Session Controller and step through it from an
interactive shell, without a Debug Adapter Protocol client attached.

Commands: continue (c), next (n), step (s), out (o), pause (p), threads,
stack (bt), scopes, vars <ref>, eval <expr>, break <line> [condition],
quit.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			r := &repl{
				Output:      os.Stdout,
				HistoryPath: defaultHistoryFile,
				stopped:     make(chan debug.Event, 1),
			}

			logger := logging.NewNoOpLogger()
			d := debug.NewDebugger(toyscript.Factory, debug.SetEventHandler(r), debug.SetLogger(logger))

			ctx := context.Background()
			session, err := d.Launch(ctx, debug.LaunchProperties{
				SourceID:     args[0],
				Source:       string(source),
				PauseOnEntry: stopOnEntry,
			})
			if err != nil {
				return err
			}
			r.Session = session

			if err := session.NotifyUIReady(); err != nil {
				return err
			}

			r.loop()
			return nil
		},
	}

	replCommand.Flags().BoolVar(&stopOnEntry, "stop-on-entry", true, "pause at the first statement")

	rootCommand.AddCommand(replCommand)
}

// HandleEvent implements debug.EventHandler: Stopped/Done/Cancelled events
// wake the prompt loop, which is otherwise blocked reading a line.
func (r *repl) HandleEvent(e debug.Event) {
	switch e.Type {
	case debug.StoppedEventType:
		fmt.Fprintf(r.Output, "\nstopped (%s)\n", e.StopReason)
		r.stopped <- e
	case debug.LogPointEventType:
		fmt.Fprintf(r.Output, "log: %s\n", e.Message)
	case debug.DoneEventType:
		if e.Err != nil {
			fmt.Fprintf(r.Output, "\nterminated: %v\n", e.Err)
		} else {
			fmt.Fprintln(r.Output, "\nprogram finished")
		}
		r.done = true
		r.stopped <- e
	case debug.CancelledEventType:
		fmt.Fprintln(r.Output, "\ncancelled")
		r.done = true
		r.stopped <- e
	}
}

func (r *repl) loop() {
	<-r.stopped // wait for the entry pause or immediate completion

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	r.loadHistory(line)

	for !r.done {
		input, err := line.Prompt("(scriptdap) ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			r.Session.Terminate()
			break
		}
		if err != nil {
			fmt.Fprintln(r.Output, "error:", err)
			break
		}
		line.AppendHistory(input)
		r.dispatch(strings.TrimSpace(input))
	}

	r.saveHistory(line)
}

func (r *repl) dispatch(input string) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return
	}
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "c", "continue":
		r.resume(r.Session.Resume())
	case "n", "next":
		r.resume(r.Session.StepOver())
	case "s", "step":
		r.resume(r.Session.StepIn())
	case "o", "out":
		r.resume(r.Session.StepOut())
	case "p", "pause":
		if err := r.Session.Pause(); err != nil {
			fmt.Fprintln(r.Output, "error:", err)
		}
	case "threads":
		for _, t := range r.Session.Threads() {
			fmt.Fprintf(r.Output, "%d: %s\n", t.ID, t.Name)
		}
	case "bt", "stack":
		trace, err := r.Session.StackTrace(debug.MainThreadID)
		if err != nil {
			fmt.Fprintln(r.Output, "error:", err)
			return
		}
		presentation.PrintStackTrace(r.Output, trace)
	case "scopes":
		r.printScopes(rest)
	case "vars":
		r.printVariables(rest)
	case "eval":
		r.eval(strings.Join(rest, " "))
	case "break":
		r.setBreak(rest)
	case "quit", "exit":
		r.Session.Terminate()
	default:
		fmt.Fprintf(r.Output, "unknown command %q\n", cmd)
	}
}

func (r *repl) resume(err error) {
	if err != nil {
		fmt.Fprintln(r.Output, "error:", err)
		return
	}
	<-r.stopped
}

func (r *repl) printScopes(args []string) {
	frameID := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintln(r.Output, "usage: scopes [frame]")
			return
		}
		frameID = n
	}
	scopes, err := r.Session.Scopes(debug.FrameID(frameID))
	if err != nil {
		fmt.Fprintln(r.Output, "error:", err)
		return
	}
	for _, s := range scopes {
		fmt.Fprintf(r.Output, "%s (ref %d, %d vars)\n", s.Name, s.VariablesRef, s.NamedVariables)
	}
}

func (r *repl) printVariables(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(r.Output, "usage: vars <ref>")
		return
	}
	ref, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(r.Output, "usage: vars <ref>")
		return
	}
	children, err := r.Session.Variables(ref)
	if err != nil {
		fmt.Fprintln(r.Output, "error:", err)
		return
	}
	infos := make([]debug.ValueInfo, len(children))
	for i, c := range children {
		infos[i] = c.Info
	}
	presentation.PrintVariables(r.Output, fmt.Sprintf("ref %d", ref), infos)
}

func (r *repl) eval(expr string) {
	if expr == "" {
		fmt.Fprintln(r.Output, "usage: eval <expr>")
		return
	}
	v, err := r.Session.Evaluate(context.Background(), expr)
	if err != nil {
		fmt.Fprintln(r.Output, "error:", err)
		return
	}
	presentation.PrintJSON(r.Output, v)
}

func (r *repl) setBreak(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(r.Output, "usage: break <line> [condition]")
		return
	}
	lineNo, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(r.Output, "usage: break <line> [condition]")
		return
	}
	condition := ""
	if len(args) > 1 {
		condition = strings.Join(args[1:], " ")
	}
	bp, err := r.Session.AddBreakpoint(r.sourceID(), engine.Position{Line: lineNo}, condition, "", "")
	if err != nil {
		fmt.Fprintln(r.Output, "error:", err)
		return
	}
	fmt.Fprintf(r.Output, "breakpoint %d at %s:%d\n", bp.ID(), bp.SourceID(), bp.Location().Line)
}

func (r *repl) sourceID() string {
	trace, err := r.Session.StackTrace(debug.MainThreadID)
	if err != nil || len(trace) == 0 {
		return ""
	}
	return trace[0].Source
}

func (r *repl) loadHistory(prompt *liner.State) {
	if f, err := os.Open(r.HistoryPath); err == nil {
		prompt.ReadHistory(f)
		f.Close()
	}
}

func (r *repl) saveHistory(prompt *liner.State) {
	if f, err := os.Create(r.HistoryPath); err == nil {
		prompt.WriteHistory(f)
		f.Close()
	}
}
