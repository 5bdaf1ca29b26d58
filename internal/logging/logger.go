// Package logging provides the process-wide structured logger used by
// cmd/rspstubd and the internal packages, grounded on the logger package's
// atomic level/format reconfiguration pattern but trimmed to what a single
// debug-stub daemon needs: no color terminal detection, no per-request
// trace-context propagation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Config selects the logger's level, encoding, and destination.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	currentLevel atomic.Int32

	mu            sync.RWMutex
	output        io.Writer = os.Stderr
	currentFormat           = "text"
	slogger       *slog.Logger
)

func init() {
	currentLevel.Store(int32(slog.LevelInfo))
	reconfigure("text")
}

func reconfigure(format string) {
	mu.Lock()
	defer mu.Unlock()

	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.Level(currentLevel.Load()))

	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	currentFormat = format
	slogger = slog.New(handler)
}

// Init configures the package logger from cfg. It is safe to call more than
// once (e.g. after a config reload, see internal/transport's fsnotify
// watcher).
func Init(cfg Config) error {
	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "text"
	}

	mu.Lock()

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			mu.Unlock()
			return fmt.Errorf("open log file %q: %w", cfg.Output, err)
		}

		output = f
	}

	mu.Unlock()

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}

	reconfigure(format)

	return nil
}

// SetLevel changes the minimum logged level at runtime.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel.Store(int32(slog.LevelDebug))
	case "INFO":
		currentLevel.Store(int32(slog.LevelInfo))
	case "WARN":
		currentLevel.Store(int32(slog.LevelWarn))
	case "ERROR":
		currentLevel.Store(int32(slog.LevelError))
	default:
		return
	}

	mu.RLock()
	l, format := slogger, currentFormat
	mu.RUnlock()

	if l != nil {
		reconfigure(format)
	}
}

// Logger returns the process-wide *slog.Logger, for packages that want to
// attach it to a per-component context (e.g. rsp.NewProtocolCore).
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return slogger
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// With returns a child logger carrying the given bound fields.
func With(args ...any) *slog.Logger { return Logger().With(args...) }
