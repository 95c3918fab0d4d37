// Package klog provides component-scoped structured logging for the
// kernel, built on go.uber.org/zap. It mirrors the With-chaining shape
// the pack's telemetry packages use, but delegates all formatting and
// sinking to zap instead of a hand-rolled JSON writer.
package klog

import "go.uber.org/zap"

// Logger wraps a *zap.Logger scoped to one kernel component (e.g.
// "slicer", "evidence.verifier", "atlas.overlap").
type Logger struct {
	z *zap.Logger
}

// New wraps an existing *zap.Logger. Passing zap.NewNop() is the
// correct choice for callers that want the kernel silent.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Component returns a logger scoped to the named component.
func (l *Logger) Component(name string) *Logger {
	return &Logger{z: l.z.With(zap.String("component", name))}
}

// With returns a logger with the given structured fields attached.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }
