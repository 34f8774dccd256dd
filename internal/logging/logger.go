// Package logging defines the Logger interface every component depends on,
// plus the two concrete backends the repository ships with: a logrus-backed
// default and a prometheus/common/log-backed adapter for the transport code,
// following the shape of the teacher's pkg/mcast/types.Logger +
// pkg/mcast/definition.DefaultLogger split.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Logger is implemented by anything the daemon, election engine, and
// client can log through. A caller that doesn't want logging can pass
// NewNop().
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
}

// logrusLogger is the default Logger, backing onto logrus. The teacher's
// go.mod pulled in logrus transitively but never imported it; this wires
// it directly.
type logrusLogger struct {
	entry *logrus.Entry
}

// New returns the default Logger, tagging every line with the given
// component name (e.g. "daemon", "election", "client").
func New(component string) Logger {
	base := logrus.New()
	base.SetLevel(logrus.InfoLevel)
	return &logrusLogger{entry: base.WithField("component", component)}
}

// NewWithLevel is like New but sets the minimum level explicitly, used by
// cmd/ binaries that expose a --debug flag.
func NewWithLevel(component string, debug bool) Logger {
	base := logrus.New()
	if debug {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}
	return &logrusLogger{entry: base.WithField("component", component)}
}

func (l *logrusLogger) Info(v ...interface{})                 { l.entry.Info(v...) }
func (l *logrusLogger) Infof(format string, v ...interface{})  { l.entry.Infof(format, v...) }
func (l *logrusLogger) Warn(v ...interface{})                 { l.entry.Warn(v...) }
func (l *logrusLogger) Warnf(format string, v ...interface{})  { l.entry.Warnf(format, v...) }
func (l *logrusLogger) Error(v ...interface{})                { l.entry.Error(v...) }
func (l *logrusLogger) Errorf(format string, v ...interface{}) { l.entry.Errorf(format, v...) }
func (l *logrusLogger) Debug(v ...interface{})                { l.entry.Debug(v...) }
func (l *logrusLogger) Debugf(format string, v ...interface{}) { l.entry.Debugf(format, v...) }

// nopLogger discards everything; used by tests that don't care about logs.
type nopLogger struct{}

// NewNop returns a Logger that discards all output.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Info(v ...interface{})                  {}
func (nopLogger) Infof(format string, v ...interface{})  {}
func (nopLogger) Warn(v ...interface{})                  {}
func (nopLogger) Warnf(format string, v ...interface{})  {}
func (nopLogger) Error(v ...interface{})                 {}
func (nopLogger) Errorf(format string, v ...interface{}) {}
func (nopLogger) Debug(v ...interface{})                 {}
func (nopLogger) Debugf(format string, v ...interface{}) {}
