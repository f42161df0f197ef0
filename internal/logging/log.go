// Package logging wraps log/slog for the command-line tool. Messages go to
// the console as text; a rotating JSON log file is added when a path is given.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*slog.Logger
	LogFile string
	Start   time.Time

	closer io.Closer
}

// ParseLevel maps the configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%s: invalid log level", level)
	}
}

// New returns a logger writing to console at the given level. If file is
// non-empty, records are also written as JSON to a lumberjack-rotated file.
func New(level string, file string, console io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if console == nil {
		console = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler = slog.NewTextHandler(console, opts)

	l := &Logger{LogFile: file, Start: time.Now()}
	if file != "" {
		w := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    16, // MB
			MaxBackups: 3,
		}
		l.closer = w
		h = slogmulti.Fanout(h, slog.NewJSONHandler(w, opts))
	}
	l.Logger = slog.New(h)
	return l, nil
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})),
		Start:  time.Now(),
	}
}

// Debugf and Infof tolerate a nil *Logger, in which case the message is
// dropped.
func (l *Logger) Debugf(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(context.Background(), slog.LevelDebug) {
		l.Logger.Debug(fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Infof(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(context.Background(), slog.LevelInfo) {
		l.Logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Errorf(msg string, args ...any) {
	if l == nil {
		slog.Error(fmt.Sprintf(msg, args...))
		return
	}
	l.Logger.Error(fmt.Sprintf(msg, args...))
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
