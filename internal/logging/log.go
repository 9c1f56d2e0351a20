// Package logging wraps log/slog with the handful of helpers the simulator
// uses. Methods accept a nil *Logger: debug and info are dropped, warnings
// and errors fall through to the slog default logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// Dir enables JSON logging to a rotating file in Dir. Empty means text
	// to Stderr.
	Dir    string
	Stderr io.Writer
}

type Logger struct {
	*slog.Logger
	LogFile string
	Start   time.Time

	closer io.Closer
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}

func New(opts Options) (*Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	l := &Logger{Start: time.Now()}
	var h slog.Handler
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		w := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "landersim.slog"),
			MaxSize:    32, // MB
			MaxBackups: 3,
			MaxAge:     14,
		}
		if lvl == slog.LevelDebug {
			w.MaxSize = 256
		}
		l.LogFile = w.Filename
		l.closer = w
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		h = slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})
	}
	l.Logger = slog.New(h)

	l.Info("logging started",
		slog.Time("start", l.Start),
		slog.String("GOOS", runtime.GOOS),
		slog.String("GOARCH", runtime.GOARCH),
		slog.Int("NumCPUs", runtime.NumCPU()))
	return l, nil
}

// NewWriter returns a logger writing text records to w. Mostly for tests.
func NewWriter(w io.Writer, lvl slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})),
		Start:  time.Now(),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, slog.LevelError+1)
}

func (l *Logger) enabled(lvl slog.Level) bool {
	return l != nil && l.Logger != nil && l.Logger.Enabled(context.Background(), lvl)
}

func (l *Logger) Debug(msg string, args ...any) {
	if l.enabled(slog.LevelDebug) {
		l.Logger.Debug(msg, args...)
	}
}

func (l *Logger) Debugf(msg string, args ...any) {
	if l.enabled(slog.LevelDebug) {
		l.Logger.Debug(fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Info(msg string, args ...any) {
	if l.enabled(slog.LevelInfo) {
		l.Logger.Info(msg, args...)
	}
}

func (l *Logger) Infof(msg string, args ...any) {
	if l.enabled(slog.LevelInfo) {
		l.Logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Warn(msg string, args ...any) {
	if l == nil || l.Logger == nil {
		slog.Warn(msg, args...)
	} else {
		l.Logger.Warn(msg, args...)
	}
}

func (l *Logger) Warnf(msg string, args ...any) {
	l.Warn(fmt.Sprintf(msg, args...))
}

func (l *Logger) Error(msg string, args ...any) {
	if l == nil || l.Logger == nil {
		slog.Error(msg, args...)
	} else {
		l.Logger.Error(msg, args...)
	}
}

func (l *Logger) Errorf(msg string, args ...any) {
	l.Error(fmt.Sprintf(msg, args...))
}

func (l *Logger) With(args ...any) *Logger {
	if l == nil || l.Logger == nil {
		return nil
	}
	return &Logger{
		Logger:  l.Logger.With(args...),
		LogFile: l.LogFile,
		Start:   l.Start,
	}
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
