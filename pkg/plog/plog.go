// Package plog is a thin wrapper around log/slog that adds a NOTICE level and
// routes WARN and above to stderr while everything else goes to stdout.
package plog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Log levels. LevelNotice sits between Debug and Info and is used for
// per-file progress lines that are too chatty for Info.
const (
	LevelDebug  = slog.LevelDebug
	LevelNotice = slog.Level(-2)
	LevelInfo   = slog.LevelInfo
	LevelWarn   = slog.LevelWarn
	LevelError  = slog.LevelError
)

// LevelDispatchHandler is a slog.Handler that writes log records to different
// handlers based on the record's level. INFO and below go to one handler,
// while WARNING and above go to another.
type LevelDispatchHandler struct {
	stdoutHandler slog.Handler
	stderrHandler slog.Handler
}

// Enabled checks if the level is enabled for either of the underlying handlers.
func (h *LevelDispatchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.stdoutHandler.Enabled(ctx, level) || h.stderrHandler.Enabled(ctx, level)
}

// Handle dispatches the record to the appropriate handler.
func (h *LevelDispatchHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.stderrHandler.Handle(ctx, r)
	}
	return h.stdoutHandler.Handle(ctx, r)
}

// WithAttrs returns a new LevelDispatchHandler with the given attributes added.
func (h *LevelDispatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelDispatchHandler{
		stdoutHandler: h.stdoutHandler.WithAttrs(attrs),
		stderrHandler: h.stderrHandler.WithAttrs(attrs),
	}
}

// WithGroup returns a new LevelDispatchHandler with the given group.
func (h *LevelDispatchHandler) WithGroup(name string) slog.Handler {
	return &LevelDispatchHandler{
		stdoutHandler: h.stdoutHandler.WithGroup(name),
		stderrHandler: h.stderrHandler.WithGroup(name),
	}
}

var (
	defaultLogger *slog.Logger
	levelVar      = new(slog.LevelVar)
	quietMode     atomic.Bool
)

// replaceLevelName renders our custom NOTICE level by name instead of "DEBUG+2".
func replaceLevelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelNotice {
		a.Value = slog.StringValue("NOTICE")
	}
	return a
}

func newHandlerOptions(minLevel slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:       minLevel,
		ReplaceAttr: replaceLevelName,
	}
}

func init() {
	levelVar.Set(LevelWarn)

	stdoutHandler := slog.NewTextHandler(os.Stdout, newHandlerOptions(levelVar))
	stderrHandler := slog.NewTextHandler(os.Stderr, newHandlerOptions(levelVar))

	defaultLogger = slog.New(&LevelDispatchHandler{
		stdoutHandler: stdoutHandler,
		stderrHandler: stderrHandler,
	})
}

// SetOutput allows redirecting the logger's output, primarily for testing.
// All levels are written to w.
func SetOutput(w io.Writer) {
	quietMode.Store(false)
	defaultLogger = slog.New(slog.NewTextHandler(w, newHandlerOptions(levelVar)))
}

// SetLevel sets the minimum level that is emitted.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// GetLevel returns the currently active minimum level.
func GetLevel() slog.Level {
	return levelVar.Level()
}

// LevelFromString maps a user supplied level name to a slog.Level.
// Unknown names fall back to LevelWarn.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "notice":
		return LevelNotice
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelWarn
	}
}

// IsValidLevel reports whether s names one of the supported levels.
func IsValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "notice", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// SetQuiet enables or disables quiet mode. In quiet mode, INFO and NOTICE
// logs are suppressed regardless of the level.
func SetQuiet(quiet bool) {
	quietMode.Store(quiet)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Notice logs a notice message.
func Notice(msg string, args ...any) {
	if quietMode.Load() {
		return
	}
	defaultLogger.Log(context.Background(), LevelNotice, msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	if quietMode.Load() {
		return
	}
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}
