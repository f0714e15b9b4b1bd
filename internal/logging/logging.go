// Package logging builds the zerolog logger the bot passes to its components.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Output is stdout, stderr or file.
	Output string
	File   string
	// MaxSize is in megabytes, MaxAge in days.
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// New returns a logger and a closer for its output. Terminals get the console writer,
// everything else gets JSON.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = l
	}

	w, closer, err := output(opts)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return log, closer, nil
}

func output(opts Options) (io.Writer, io.Closer, error) {
	switch opts.Output {
	case "", "stdout":
		return console(os.Stdout), nopCloser{}, nil
	case "stderr":
		return console(os.Stderr), nopCloser{}, nil
	case "file":
		if opts.File == "" {
			return nil, nil, fmt.Errorf("log file is required when output is 'file'")
		}
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   true,
			LocalTime:  true,
		}
		return lj, lj, nil
	}
	return nil, nil, fmt.Errorf("unknown log output: %s", opts.Output)
}

func console(f *os.File) io.Writer {
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return f
	}
	return zerolog.ConsoleWriter{Out: f, TimeFormat: time.DateTime}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
