package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Dir is the log directory created under the configured path.
const Dir = ".tum_logs"

// Options mirrors the [log] config section.
type Options struct {
	Enabled bool
	Path    string
	Level   string
	Now     func() time.Time
}

// New opens <path>/.tum_logs/<timestamp>.log and returns a logger writing
// JSON records to it. The terminal belongs to the TUI, so nothing is
// written to stdout or stderr. A disabled logger discards everything.
// The returned func closes the file.
func New(opts Options) (*slog.Logger, func() error, error) {
	if !opts.Enabled {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logDir := filepath.Join(opts.Path, Dir)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := filepath.Join(logDir, opts.Now().Format("2006-01-02_15-04-05")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return NewWithWriter(f, opts.Level), f.Close, nil
}

// NewWithWriter builds a logger on w at the given level name.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h).With("app", "tum")
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is
// info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
