package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide logger. It discards everything until Init is called.
var Log = slog.New(slog.NewTextHandler(io.Discard, nil))

var file *lumberjack.Logger

// Init points Log at a rotating JSON log file.
func Init(logFilePath string, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	w := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    16, // MB
		MaxBackups: 3,
		MaxAge:     14,
	}
	Log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	file = w

	Log.Info("Logger initialized.", slog.String("file", logFilePath), slog.String("level", lvl.String()))
	return nil
}

// Writer returns the rotating file behind Log, or io.Discard before Init.
func Writer() io.Writer {
	if file == nil {
		return io.Discard
	}
	return file
}

// Close flushes and closes the log file opened by Init.
func Close() error {
	if file == nil {
		return nil
	}
	return file.Close()
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
}
