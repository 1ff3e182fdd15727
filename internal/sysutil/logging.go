package sysutil

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configure the global logger.
type LogOptions struct {
	Level   string
	Pretty  bool   // human readable console output
	File    string // optional; rotated by size
	Service string

	// Console overrides os.Stdout (tests).
	Console io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogger installs the global zerolog logger: console output, plus a
// rotated JSON file when File is set. The returned Closer releases the file.
func SetupLogger(opts LogOptions) io.Closer {
	SetLogLevel(opts.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	}

	var (
		w      io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(console, lj)
		closer = lj
	}

	ctx := zerolog.New(w).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	log.Logger = ctx.Logger()
	return closer
}
