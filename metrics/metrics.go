// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics exposes scriptdap's own Prometheus collectors: pause and
// step counts, breakpoint hits, and active-session gauges, scraped over the
// optional /metrics endpoint (SPEC_FULL.md §4.12).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the scriptdap metrics registry singleton, mirroring the
// teacher's GlobalMetricsRegistry pattern.
var Registry *prometheus.Registry

var (
	// Pauses counts every time the interpreter thread actually stopped at a
	// rendezvous, broken down by the stop reason (entry, step, pause,
	// breakpoint, debugger_statement).
	Pauses *prometheus.CounterVec
	// Steps counts engine step callbacks that did NOT result in a pause,
	// i.e. free-running statement boundaries.
	Steps prometheus.Counter
	// BreakpointHits counts breakpoint-table evaluations that resolved to a
	// hit (condition true, hit-count satisfied), whether or not the hit
	// actually suspended execution (logpoints hit without pausing).
	BreakpointHits prometheus.Counter
	// ActiveSessions tracks how many Session Controllers are currently
	// attached to a running interpreter.
	ActiveSessions prometheus.Gauge
)

func init() {
	Reset()
}

// Reset rebuilds Registry and every collector from scratch. Tests that spin
// up multiple servers in-process call this between runs to avoid duplicate
// registration panics, the same reason the teacher exposes an equivalent
// reset hook.
func Reset() {
	Registry = prometheus.NewRegistry()
	Registry.MustRegister(prometheus.NewGoCollector())

	Pauses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scriptdap",
		Name:      "pauses_total",
		Help:      "Total number of times the interpreter thread suspended at a rendezvous, by stop reason.",
	}, []string{"reason"})

	Steps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scriptdap",
		Name:      "steps_total",
		Help:      "Total number of step callbacks that did not result in a pause.",
	})

	BreakpointHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scriptdap",
		Name:      "breakpoint_hits_total",
		Help:      "Total number of breakpoint-table evaluations that resolved to a hit.",
	})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scriptdap",
		Name:      "active_sessions",
		Help:      "Number of Session Controllers currently attached to a running interpreter.",
	})

	Registry.MustRegister(Pauses, Steps, BreakpointHits, ActiveSessions)
}

// Handler returns the http.Handler that serves Registry in the Prometheus
// exposition format, for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
