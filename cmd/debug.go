// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/scriptdap/scriptdap/dap"
	"github.com/scriptdap/scriptdap/debug"
	"github.com/scriptdap/scriptdap/engine/toyscript"
	"github.com/scriptdap/scriptdap/internal/config"
	"github.com/scriptdap/scriptdap/logging"
	"github.com/scriptdap/scriptdap/metrics"
)

func initDebug(rootCommand *cobra.Command, _ string) {
	var (
		addr        string
		stdio       bool
		stopOnEntry bool
		metricsAddr string
		logLevel    string
		configFile  string
	)

	debugCommand := &cobra.Command{
		Use:   "debug <script>",
		Short: "Launch a Debug Adapter Protocol server for a script",
		Long: `Launch a Debug Adapter Protocol server bridging a script engine to a DAP
client such as an editor's debug pane.

By default scriptdap listens on a loopback TCP socket:

	$ scriptdap debug ./script.toy

To speak DAP over stdin/stdout instead, e.g. when launched as a subprocess
by the client itself:

	$ scriptdap debug --stdio ./script.toy

The '--stop-on-entry' flag has no effect under 'scriptdap debug': whether
the interpreter pauses at the first statement is decided by the client's
launch request (its stopOnEntry argument).
`,
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			cfg, err := config.Load(command.Flags(), configFile)
			if err != nil {
				return err
			}

			logger := logging.New()
			logger.SetLevel(parseLevel(logLevel))

			if configFile != "" {
				watcher, err := config.Watch(configFile, func() {
					reloaded, err := config.Load(command.Flags(), configFile)
					if err != nil {
						logger.Warnf("config: reload %s: %v", configFile, err)
						return
					}
					logger.SetLevel(parseLevel(reloaded.LogLevel))
					logger.Infof("config: reloaded log level %s from %s", reloaded.LogLevel, configFile)
				})
				if err != nil {
					return fmt.Errorf("watching %s: %w", configFile, err)
				}
				defer watcher.Close()
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go trapInterrupt(cancel)

			if metricsAddr != "" {
				go serveMetrics(metricsAddr, logger)
			}

			factory := func(handler debug.EventHandler) *debug.Debugger {
				return debug.NewDebugger(toyscript.Factory, debug.SetEventHandler(handler), debug.SetLogger(logger))
			}

			if stdio {
				return dap.ServeStdio(ctx, os.Stdin, os.Stdout, factory, logger)
			}
			listenAddr := addr
			if listenAddr == "" {
				listenAddr = cfg.Addr
			}
			return dap.ListenAndServe(ctx, listenAddr, factory, logger)
		},
	}

	debugCommand.Flags().StringVar(&addr, "addr", "", "listen address (default 127.0.0.1:4711)")
	debugCommand.Flags().BoolVar(&stdio, "stdio", false, "speak DAP over stdin/stdout instead of TCP")
	debugCommand.Flags().BoolVar(&stopOnEntry, "stop-on-entry", false, "accepted but unused; the launch request's stopOnEntry decides")
	debugCommand.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, empty disables")
	debugCommand.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	debugCommand.Flags().StringVar(&configFile, "config", "", "YAML config file; log-level changes are picked up live")

	rootCommand.AddCommand(debugCommand)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.Debug
	case "warn":
		return logging.Warn
	case "error":
		return logging.Error
	default:
		return logging.Info
	}
}

func trapInterrupt(cancel context.CancelFunc) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	cancel()
}

func serveMetrics(addr string, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Infof("serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("metrics server: %v", err)
	}
}
