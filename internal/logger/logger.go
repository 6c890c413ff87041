package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeHTTP   LogType = "HTTP"
	TypeDB     LogType = "DB"
	TypeSystem LogType = "SYS"
	TypeNotify LogType = "NOTIFY"
	TypeError  LogType = "ERR"
)

type Options struct {
	Level slog.Leveler
	// Color wraps each line in ANSI colors.
	Color bool
	// Quiet lists message substrings that are dropped.
	Quiet []string
}

// Handler renders records as single lines of the form
//
//	[exploration] [15:04:05] [INFO] [SYS] message key=value
type Handler struct {
	mu     *sync.Mutex
	out    io.Writer
	opts   Options
	attrs  []slog.Attr
	groups []string
}

func NewHandler(out io.Writer, opts Options) *Handler {
	if out == nil {
		out = os.Stdout
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &Handler{
		mu:   &sync.Mutex{},
		out:  out,
		opts: opts,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	if h.shouldSkip(&r) {
		return nil
	}

	levelColor, levelText := levelStyle(r.Level)
	logType := TypeSystem
	var status, errorDetails string
	var sb strings.Builder

	prefix := strings.Join(h.groups, ".")
	writeAttr := func(a slog.Attr) {
		switch a.Key {
		case "type":
			logType = parseType(a.Value.String())
			return
		case "status":
			status = a.Value.String()
			return
		case "error":
			errorDetails = fmt.Sprintf("%v", a.Value.Any())
			return
		}
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&sb, " %s=%v", key, a.Value.Resolve())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})

	message := r.Message
	if errorDetails != "" {
		message = fmt.Sprintf("%s: %s", message, errorDetails)
		if r.Level < slog.LevelError && logType == TypeSystem {
			logType = TypeError
		}
	}
	if status != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, status)
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	line := fmt.Sprintf("[exploration] [%s] [%s] [%s] %s%s",
		ts.Format("15:04:05"), levelText, logType, message, sb.String())
	if h.opts.Color {
		line = fmt.Sprintf("%s[exploration] [%s] [%s%s%s] [%s] %s%s%s",
			colorWhite, ts.Format("15:04:05"), levelColor, levelText, colorWhite,
			logType, message, sb.String(), colorReset)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.out, line)
	return err
}

func (h *Handler) shouldSkip(r *slog.Record) bool {
	msg := strings.ToLower(r.Message)
	for _, skip := range h.opts.Quiet {
		if strings.Contains(msg, strings.ToLower(skip)) {
			return true
		}
	}
	return false
}

func levelStyle(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return colorRed, "ERROR"
	case level >= slog.LevelWarn:
		return colorYellow, "WARN"
	case level >= slog.LevelInfo:
		return colorGreen, "INFO"
	default:
		return colorPurple, "DEBUG"
	}
}

func parseType(v string) LogType {
	switch strings.ToLower(v) {
	case "http":
		return TypeHTTP
	case "db":
		return TypeDB
	case "notify":
		return TypeNotify
	case "error":
		return TypeError
	default:
		return TypeSystem
	}
}

// ParseLevel maps a config string to a slog level. Unknown values yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs a Handler as the process-wide default logger.
func Setup(out io.Writer, level string, color bool) *slog.Logger {
	l := slog.New(NewHandler(out, Options{Level: ParseLevel(level), Color: color}))
	slog.SetDefault(l)
	return l
}
