// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package presentation renders breakpoint, stack-trace, and variable
// listings in json and tabular formats for the `scriptdap repl` command.
package presentation

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/scriptdap/scriptdap/debug"
)

// PrintJSON prints indented json output, matching the teacher's machine
// consumption mode.
func PrintJSON(writer io.Writer, x interface{}) error {
	buf, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(writer, string(buf))
	return nil
}

// PrintBreakpoints renders a breakpoint table.
func PrintBreakpoints(writer io.Writer, breakpoints []debug.Breakpoint) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader([]string{"Id", "Source", "Line", "Column"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for _, bp := range breakpoints {
		loc := bp.Location()
		table.Append([]string{
			fmt.Sprintf("%d", bp.ID()),
			bp.SourceID(),
			fmt.Sprintf("%d", loc.Line),
			fmt.Sprintf("%d", loc.Column),
		})
	}
	if table.NumLines() > 0 {
		fmt.Fprintln(writer)
		table.Render()
	}
}

// PrintStackTrace renders a stack trace, innermost frame first.
func PrintStackTrace(writer io.Writer, trace debug.StackTrace) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader([]string{"Frame", "Name", "Source", "Line", "Column"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)

	for _, f := range trace {
		table.Append([]string{
			fmt.Sprintf("%d", f.ID),
			f.Name,
			f.Source,
			fmt.Sprintf("%d", f.Location.Line),
			fmt.Sprintf("%d", f.Location.Column),
		})
	}
	if table.NumLines() > 0 {
		fmt.Fprintln(writer)
		table.Render()
	}
}

// PrintVariables renders a flat listing of one scope's children. Nested
// containers show their variablesReference instead of recursing, matching
// a DAP client's own lazy-expand behavior.
func PrintVariables(writer io.Writer, name string, children []debug.ValueInfo) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader([]string{"Name", "Value", "Type", "Ref"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
	})

	for _, c := range children {
		ref := ""
		if c.VariablesRef != 0 {
			ref = fmt.Sprintf("%d", c.VariablesRef)
		}
		table.Append([]string{c.Name, c.Display, c.Type, ref})
	}

	if table.NumLines() > 0 {
		fmt.Fprintf(writer, "\n%s:\n", name)
		table.Render()
	}
}
