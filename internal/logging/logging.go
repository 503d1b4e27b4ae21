package logging

import (
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Buffer keeps the most recent log lines in memory for the /logs endpoint.
type Buffer struct {
	lines []string
	max   int
	mu    sync.Mutex
}

// NewBuffer creates a Buffer holding at most max lines.
func NewBuffer(max int) *Buffer {
	return &Buffer{lines: make([]string, 0, max), max: max}
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, strings.TrimRight(string(p), "\n"))
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
	return len(p), nil
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Setup installs a text handler writing to all of w as the default logger.
func Setup(level string, w ...io.Writer) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(io.MultiWriter(w...), &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}
