// Package logger provides opinionated *slog.Logger construction for ragloop.
//
// Three handler flavors are supported: slog's text handler (default), slog's
// JSON handler for service logs, and charmbracelet/log for colorized CLI output.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	prefix  string
	writers []io.Writer
	file    *FileConfig
}

// FileConfig configures a rotating JSON log file written alongside the
// primary writers.
type FileConfig struct {
	// Path is the log file location.
	Path string

	// MaxSizeMB is the size at which the file is rotated. Defaults to 50.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Defaults to 3.
	MaxBackups int
}

// New creates a *slog.Logger from the given options.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level: slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.writers) == 0 {
		c.writers = []io.Writer{os.Stdout}
	}

	var w io.Writer
	if len(c.writers) == 1 {
		w = c.writers[0]
	} else {
		w = io.MultiWriter(c.writers...)
	}

	primary := slog.New(newHandler(c, w))
	if c.file == nil || c.file.Path == "" {
		return primary
	}

	// The log file is always JSON so it can be shipped and parsed.
	rotating := &lumberjack.Logger{
		Filename:   c.file.Path,
		MaxSize:    valueOr(c.file.MaxSizeMB, 50),
		MaxBackups: valueOr(c.file.MaxBackups, 3),
	}
	fileLogger := slog.New(slog.NewJSONHandler(rotating, &slog.HandlerOptions{
		Level:     c.level,
		AddSource: c.source,
	}))

	return Multi(primary, fileLogger)
}

func newHandler(c *config, w io.Writer) slog.Handler {
	switch {
	case c.pretty:
		h := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
			Prefix:          c.prefix,
		})
		return h

	case c.json:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})

	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

func valueOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
