package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

type LoggingService struct {
	Logger *slog.Logger
	closer io.Closer
}

var (
	DefaultLoggingService *LoggingService
	initMu                sync.Mutex
)

// InitLogger initializes the global logger with default options
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{Dir: logDir, Level: "info", RetentionWeeks: 4, MaxFileSize: 100 * 1024 * 1024})
}

// InitLoggerWithOptions replaces the global logger, closing the previous
// file output if there was one
func InitLoggerWithOptions(opts Options) {
	initMu.Lock()
	defer initMu.Unlock()

	if DefaultLoggingService != nil && DefaultLoggingService.closer != nil {
		_ = DefaultLoggingService.closer.Close()
	}

	logger, closer := NewLogger(os.Stdout, opts)
	DefaultLoggingService = &LoggingService{Logger: logger, closer: closer}
	slog.SetDefault(logger)
}

// Close flushes and closes the global file output
func Close() error {
	initMu.Lock()
	defer initMu.Unlock()
	if DefaultLoggingService == nil || DefaultLoggingService.closer == nil {
		return nil
	}
	err := DefaultLoggingService.closer.Close()
	DefaultLoggingService.closer = nil
	return err
}

// Logger returns the global logger, or a stderr fallback when uninitialized
func Logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return DefaultLoggingService.Logger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
