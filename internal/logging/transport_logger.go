package logging

import (
	plog "github.com/prometheus/common/log"
)

// transportLogger adapts github.com/prometheus/common/log to the Logger
// interface. The teacher's pkg/mcast/core/transport.go imports this exact
// package and calls log.Errorf directly on its global logger; we keep that
// dependency alive for the one package that plays the same role here,
// internal/netio, instead of dropping it.
type transportLogger struct{}

// NewTransportLogger returns the prometheus/common/log-backed Logger that
// internal/netio falls back to when its caller passes no logger.
func NewTransportLogger() Logger { return transportLogger{} }

func (transportLogger) Info(v ...interface{})                  { plog.Info(v...) }
func (transportLogger) Infof(format string, v ...interface{})  { plog.Infof(format, v...) }
func (transportLogger) Warn(v ...interface{})                  { plog.Warn(v...) }
func (transportLogger) Warnf(format string, v ...interface{})  { plog.Warnf(format, v...) }
func (transportLogger) Error(v ...interface{})                 { plog.Error(v...) }
func (transportLogger) Errorf(format string, v ...interface{}) { plog.Errorf(format, v...) }
func (transportLogger) Debug(v ...interface{})                 { plog.Debug(v...) }
func (transportLogger) Debugf(format string, v ...interface{}) { plog.Debugf(format, v...) }
