// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package logging provides the leveled logging interface used throughout
// scriptdap, plus a logrus-backed standard implementation.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level is a logging level.
type Level int

const (
	Error Level = iota
	Warn
	Info
	Debug
)

func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warn:
		return "warn"
	case Info:
		return "info"
	case Debug:
		return "debug"
	default:
		return "unknown"
	}
}

func (l Level) toLogrus() logrus.Level {
	switch l {
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	case Info:
		return logrus.InfoLevel
	case Debug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the interface every scriptdap component logs through: the
// Session Controller, the dap transport, and the CLI all depend on this,
// never on *logrus.Logger directly, so a host embedding scriptdap can
// supply its own implementation.
type Logger interface {
	Debugf(fmt string, args ...interface{})
	Infof(fmt string, args ...interface{})
	Warnf(fmt string, args ...interface{})
	Errorf(fmt string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	GetLevel() Level
	SetLevel(Level)
}

// StandardLogger is the default Logger implementation, backed by logrus.
type StandardLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// New returns a StandardLogger writing to stderr at Info level with the
// JSON formatter, matching the teacher's default output mode.
func New() *StandardLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &StandardLogger{logger: l, entry: logrus.NewEntry(l)}
}

// NewText returns a StandardLogger using the human-readable text formatter,
// writing to w.
func NewText(w io.Writer) *StandardLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &StandardLogger{logger: l, entry: logrus.NewEntry(l)}
}

func (s *StandardLogger) Debugf(format string, args ...interface{}) { s.entry.Debugf(format, args...) }
func (s *StandardLogger) Infof(format string, args ...interface{})  { s.entry.Infof(format, args...) }
func (s *StandardLogger) Warnf(format string, args ...interface{})  { s.entry.Warnf(format, args...) }
func (s *StandardLogger) Errorf(format string, args ...interface{}) { s.entry.Errorf(format, args...) }

func (s *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	return &StandardLogger{logger: s.logger, entry: s.entry.WithFields(fields)}
}

func (s *StandardLogger) GetLevel() Level {
	switch s.logger.GetLevel() {
	case logrus.DebugLevel:
		return Debug
	case logrus.WarnLevel:
		return Warn
	case logrus.ErrorLevel:
		return Error
	default:
		return Info
	}
}

func (s *StandardLogger) SetLevel(l Level) { s.logger.SetLevel(l.toLogrus()) }

// NoOpLogger discards everything. It satisfies Logger for tests and
// embedders that don't want scriptdap's own diagnostics.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (NoOpLogger) Debugf(string, ...interface{})       {}
func (NoOpLogger) Infof(string, ...interface{})        {}
func (NoOpLogger) Warnf(string, ...interface{})        {}
func (NoOpLogger) Errorf(string, ...interface{})       {}
func (n *NoOpLogger) WithFields(map[string]interface{}) Logger { return n }
func (*NoOpLogger) GetLevel() Level                     { return Error }
func (*NoOpLogger) SetLevel(Level)                      {}
