// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Command scriptdap is a Debug Adapter Protocol bridge for an embedded
// script engine.
package main

import (
	"fmt"
	"os"

	"github.com/scriptdap/scriptdap/cmd"
)

func main() {
	rootCommand := cmd.Command(nil, "scriptdap")
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
