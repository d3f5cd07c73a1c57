// Package logger builds the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level slog.Level
	// File, when set, receives a copy of every record with size-based
	// rotation. Stdout (or Stderr) always gets one too.
	File string
	// Stderr sends console output to stderr, for commands whose stdout is
	// a protocol stream.
	Stderr bool
}

// New returns a JSON slog logger and a closer for the rotating file sink.
func New(opts Options) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	if opts.Stderr {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    20, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = io.MultiWriter(out, rotating)
		closer = rotating
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level})), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
