// Package applog builds the launcher's logger: text records on stderr and
// in a per-run log file under the user data directory.
package applog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileName is the active log file inside the log directory.
const FileName = "maskbrowser.log"

// Retain is how long rotated log files are kept.
const Retain = 24 * time.Hour

// Options configures Setup.
type Options struct {
	// Dir holds the log file; empty disables the file sink.
	Dir   string
	Debug bool
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// Setup rotates the previous log file, opens a fresh one and returns a
// logger writing to both sinks. The file always receives debug records; the
// console only with Debug set. close flushes and closes the file.
func Setup(opts Options) (logger *slog.Logger, path string, closeFn func(), err error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	consoleLevel := slog.LevelInfo
	if opts.Debug {
		consoleLevel = slog.LevelDebug
	}
	console := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: consoleLevel})
	closeFn = func() {}

	if opts.Dir == "" {
		return slog.New(console), "", closeFn, nil
	}

	path = filepath.Join(opts.Dir, FileName)
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return slog.New(console), "", closeFn, fmt.Errorf("create log dir: %w", err)
	}
	if err := RotateLogFile(path, Retain); err != nil {
		// Keep logging into the old file rather than not at all.
		fmt.Fprintf(stderr, "log rotation failed: %v\n", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return slog.New(console), "", closeFn, fmt.Errorf("open log file %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(f, "----- launcher start %s pid=%d -----\n", time.Now().Format(time.RFC3339Nano), os.Getpid())

	file := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger = slog.New(newMultiHandler(console, file))
	return logger, path, func() { _ = f.Close() }, nil
}

type multiHandler struct {
	handlers []slog.Handler
}

func newMultiHandler(handlers ...slog.Handler) slog.Handler {
	filtered := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return &multiHandler{handlers: filtered}
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, rec slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, rec.Level) {
			continue
		}
		if err := handler.Handle(ctx, rec.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		next = append(next, handler.WithAttrs(attrs))
	}
	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		next = append(next, handler.WithGroup(name))
	}
	return &multiHandler{handlers: next}
}
