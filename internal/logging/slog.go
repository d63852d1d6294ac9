package logging

import (
	"context"
	"io"
	"log/slog"
)

// Slog implements Logger on log/slog.
type Slog struct {
	logger *slog.Logger
}

// NewSlog wraps an existing slog.Logger. Nil uses slog.Default().
func NewSlog(l *slog.Logger) *Slog {
	if l == nil {
		l = slog.Default()
	}
	return &Slog{logger: l}
}

// NewSlogText writes key=value lines to w at the given level.
func NewSlogText(w io.Writer, level slog.Level) *Slog {
	return NewSlog(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// NewSlogJSON writes JSON lines to w at the given level.
func NewSlogJSON(w io.Writer, level slog.Level) *Slog {
	return NewSlog(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

func (s *Slog) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }
func (s *Slog) Info(msg string, fields ...Field)  { s.log(slog.LevelInfo, msg, fields) }
func (s *Slog) Warn(msg string, fields ...Field)  { s.log(slog.LevelWarn, msg, fields) }
func (s *Slog) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

func (s *Slog) log(level slog.Level, msg string, fields []Field) {
	ctx := context.Background()
	if !s.logger.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	s.logger.LogAttrs(ctx, level, msg, attrs...)
}
