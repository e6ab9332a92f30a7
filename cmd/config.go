// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scriptdap/scriptdap/internal/config"
)

func initConfig(rootCommand *cobra.Command, _ string) {
	configCommand := &cobra.Command{
		Use:   "config",
		Short: "Inspect and seed scriptdap's configuration file",
	}

	initCommand := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration as YAML",
		Long: `Write scriptdap's built-in defaults to path as YAML, for a user to hand-edit
and pass to 'scriptdap debug --config'.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.Defaults()); err != nil {
				return err
			}
			fmt.Printf("wrote default configuration to %s\n", args[0])
			return nil
		},
	}

	configCommand.AddCommand(initCommand)
	rootCommand.AddCommand(configCommand)
}
