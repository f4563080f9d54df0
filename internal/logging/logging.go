// Package logging builds the per-subsystem structured loggers used across
// the transition core. Every component gets its own named, leveled logger
// rather than sharing one global instance.
package logging

import "go.uber.org/zap"

// New builds a sugared logger named after the requesting subsystem, e.g.
// "wasmvm", "worldstate", "phase". Fields passed through are attached to
// every entry the logger emits.
func New(component string, fields ...interface{}) *zap.SugaredLogger {
	base, err := zap.NewProduction()
	if err != nil {
		base = zap.NewNop()
	}
	return base.Sugar().Named(component).With(fields...)
}

// Nop returns a logger that discards everything, for tests that don't
// care about log output.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
