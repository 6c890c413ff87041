package logger

import (
	"log/slog"
	"time"
)

// LogQuery logs a database statement. Successful statements are logged at
// debug level so they stay out of production output.
func LogQuery(operation, query string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.String("operation", operation),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs,
			slog.String("query", query),
			slog.Any("error", err),
		)...)
		return
	}
	slog.Debug("Query executed", append(attrs,
		slog.String("query", query),
	)...)
}

func LogRequest(method, path string, status int, duration time.Duration, attrs ...any) {
	base := []any{
		slog.String("type", "http"),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("code", status),
		slog.Duration("took", duration),
	}
	if status >= 500 {
		slog.Error("Request failed", append(base, attrs...)...)
		return
	}
	slog.Info("Request handled", append(base, attrs...)...)
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
