package seekgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with seekgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithID adds a document ID field to the logger.
func (l *Logger) WithID(id uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// WithK adds a k (result count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogBuild logs an index build.
func (l *Logger) LogBuild(ctx context.Context, docs, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"documents", docs,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"documents", docs,
			"dimension", dimension,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, mode Mode, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"mode", mode.String(),
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"mode", mode.String(),
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogSnapshot logs a snapshot save.
func (l *Logger) LogSnapshot(ctx context.Context, fingerprint string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"fingerprint", fingerprint,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"fingerprint", fingerprint,
		)
	}
}

// LogRestore logs a snapshot load attempt.
func (l *Logger) LogRestore(ctx context.Context, fingerprint string, loaded bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"fingerprint", fingerprint,
			"error", err,
		)
	} else if loaded {
		l.InfoContext(ctx, "restore completed",
			"fingerprint", fingerprint,
		)
	} else {
		l.InfoContext(ctx, "restore skipped",
			"fingerprint", fingerprint,
		)
	}
}
