// Package logging builds the diagnostic logger shared by all components.
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

const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 28
)

type Options struct {
	// Verbose lowers the level from warn to debug.
	Verbose bool
	// LogFile, when set, receives a copy of every entry with rotation.
	LogFile string
	// Writer is the console sink. Defaults to os.Stderr.
	Writer io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the logger and a closer for any file sink it opened. A log file
// that cannot be created is reported and the logger falls back to the console.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	console := opts.Writer
	if console == nil {
		console = os.Stderr
	}
	console = selectOutput(console)

	level := zerolog.WarnLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	var writer io.Writer = console
	var closer io.Closer = nopCloser{}
	var fileErr error
	if opts.LogFile != "" {
		lj, err := newFileWriter(opts.LogFile)
		if err != nil {
			fileErr = err
		} else {
			writer = zerolog.MultiLevelWriter(console, lj)
			closer = lj
		}
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closer, fileErr
}

// selectOutput uses the human-readable console writer on a color-capable TTY
// and plain JSON everywhere else.
func selectOutput(w io.Writer) io.Writer {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return w
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return w
	}
	return zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
}

func newFileWriter(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    LogMaxSizeMB,
		MaxBackups: LogMaxBackups,
		MaxAge:     LogMaxAgeDays,
		Compress:   true,
	}, nil
}
