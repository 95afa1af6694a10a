package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Options controls where and how much the service logs
type Options struct {
	Dir            string // empty disables the file output
	Level          string
	RetentionWeeks int
	MaxFileSize    int64 // bytes, 0 means unlimited
}

// RotatingWriter writes log lines to one file per ISO week, starting a
// numbered continuation file when the size limit is reached.
type RotatingWriter struct {
	dir         string
	prefix      string
	retention   time.Duration
	maxFileSize int64

	mu      sync.Mutex
	file    *os.File
	week    string
	seq     int
	size    int64
	nowFunc func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRotatingWriter opens the file for the current week and starts the
// daily retention sweep
func NewRotatingWriter(dir string, retentionWeeks int, maxFileSize int64) (*RotatingWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if retentionWeeks <= 0 {
		retentionWeeks = 4
	}

	rw := &RotatingWriter{
		dir:         dir,
		prefix:      "drugbase",
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		nowFunc:     time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	rw.mu.Lock()
	err := rw.openLocked(weekKey(rw.nowFunc()))
	rw.mu.Unlock()
	if err != nil {
		return nil, err
	}

	go rw.sweepLoop(24 * time.Hour)
	return rw, nil
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (rw *RotatingWriter) fileName(week string, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("%s-%s.log", rw.prefix, week)
	}
	return fmt.Sprintf("%s-%s_%02d.log", rw.prefix, week, seq)
}

// openLocked opens the newest file of the week that still has room.
// Caller must hold rw.mu.
func (rw *RotatingWriter) openLocked(week string) error {
	if rw.file != nil {
		if err := rw.file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		rw.file = nil
	}
	if week != rw.week {
		rw.seq = 0
	}

	for {
		path := filepath.Join(rw.dir, rw.fileName(week, rw.seq))
		info, err := os.Stat(path)
		if err == nil && rw.maxFileSize > 0 && info.Size() >= rw.maxFileSize {
			rw.seq++
			continue
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", path, err)
		}
		rw.file = f
		rw.week = week
		rw.size = 0
		if info != nil {
			rw.size = info.Size()
		}
		return nil
	}
}

// Write implements io.Writer
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	week := weekKey(rw.nowFunc())
	switch {
	case week != rw.week:
		if err := rw.openLocked(week); err != nil {
			return 0, err
		}
	case rw.maxFileSize > 0 && rw.size > 0 && rw.size+int64(len(p)) > rw.maxFileSize:
		rw.seq++
		if err := rw.openLocked(week); err != nil {
			return 0, err
		}
	}

	if rw.file == nil {
		return 0, fmt.Errorf("no log file available")
	}
	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

func (rw *RotatingWriter) sweepLoop(every time.Duration) {
	defer close(rw.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rw.stop:
			return
		case <-ticker.C:
			if _, err := rw.Sweep(); err != nil {
				fmt.Fprintf(os.Stderr, "log retention sweep failed: %v\n", err)
			}
		}
	}
}

// Sweep removes log files last modified before the retention window and
// returns their names
func (rw *RotatingWriter) Sweep() ([]string, error) {
	entries, err := os.ReadDir(rw.dir)
	if err != nil {
		return nil, fmt.Errorf("read log directory: %w", err)
	}

	cutoff := rw.nowFunc().Add(-rw.retention)
	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, rw.prefix+"-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rw.dir, name)); err == nil {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed, nil
}

// Close stops the retention sweep and closes the current file
func (rw *RotatingWriter) Close() error {
	rw.stopOnce.Do(func() { close(rw.stop) })
	<-rw.done

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info
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

// NewLogger builds a logger writing text to console and, when a directory is
// configured, JSON to a rotating file. The returned closer releases the file.
func NewLogger(console io.Writer, opts Options) (*slog.Logger, io.Closer) {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	consoleHandler := slog.NewTextHandler(console, handlerOpts)

	if opts.Dir == "" {
		return slog.New(consoleHandler), io.NopCloser(nil)
	}

	rw, err := NewRotatingWriter(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to initialize rotating log file, logging to console only", "error", err)
		return logger, io.NopCloser(nil)
	}

	// Console gets text, the file gets JSON for machine parsing
	fileHandler := slog.NewJSONHandler(rw, handlerOpts)
	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), rw
}

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
