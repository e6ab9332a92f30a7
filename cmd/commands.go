// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package cmd assembles scriptdap's cobra command tree: `scriptdap debug`
// speaks DAP over TCP or stdio, and `scriptdap repl` drives the same
// Session Controller from an interactive local shell.
package cmd

import (
	"github.com/spf13/cobra"
)

// Command builds (or extends) the root cobra command, registering every
// scriptdap subcommand onto it, the way the teacher's own Command(root,
// brand) entry point composes its CLI.
func Command(rootCommand *cobra.Command, brand string) *cobra.Command {
	if rootCommand == nil {
		rootCommand = &cobra.Command{
			Use:   "scriptdap",
			Short: "A Debug Adapter Protocol bridge for embedded scripts",
			Long:  "scriptdap bridges an embedded script engine to a Debug Adapter Protocol client.",
		}
	}

	initDebug(rootCommand, brand)
	initRepl(rootCommand, brand)
	initConfig(rootCommand, brand)
	return rootCommand
}
