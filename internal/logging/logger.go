// Package logging is the diagnostics sink used by the coordinator and CLI.
//
// Callers depend on the Logger interface; main picks a sink (slog, zerolog
// or no-op) once at startup and passes it down explicitly.
package logging

import "time"

// Logger provides structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field with key "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Tagged prefixes every entry with a component field.
type Tagged struct {
	next Logger
	tag  Field
}

// WithComponent returns a Logger that adds component=name to every entry.
// A nil logger yields a no-op logger.
func WithComponent(l Logger, name string) Logger {
	if l == nil {
		return NewNoop()
	}
	return &Tagged{next: l, tag: String("component", name)}
}

func (t *Tagged) Debug(msg string, fields ...Field) { t.next.Debug(msg, t.with(fields)...) }
func (t *Tagged) Info(msg string, fields ...Field)  { t.next.Info(msg, t.with(fields)...) }
func (t *Tagged) Warn(msg string, fields ...Field)  { t.next.Warn(msg, t.with(fields)...) }
func (t *Tagged) Error(msg string, fields ...Field) { t.next.Error(msg, t.with(fields)...) }

func (t *Tagged) with(fields []Field) []Field {
	out := make([]Field, 0, len(fields)+1)
	out = append(out, t.tag)
	return append(out, fields...)
}
