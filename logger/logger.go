package logger

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
	defaultMaxAgeDays = 15
)

var (
	once        sync.Once
	initialized atomic.Bool
	instance    = zerolog.Nop()
)

// Bootstrap routes warnings and errors to w until InitLogger runs, so that
// problems found while loading the configuration are not lost. It does
// nothing once InitLogger has been called.
func Bootstrap(w io.Writer) {
	if initialized.Load() {
		return
	}
	instance = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
}

// Options controls where log output goes.
type Options struct {
	Debug bool
	// File is the rotating log file path. Empty disables file output.
	File string
	// Console receives human readable output. Defaults to os.Stderr so that
	// stdout stays free for the JSON protocol spoken with the host UI.
	Console io.Writer
}

// InitLogger initializes the logger with configurations for console and file output
func InitLogger(opts Options) zerolog.Logger {
	once.Do(func() {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}

		consoleWriter := zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
		}

		writers := []io.Writer{consoleWriter}
		if opts.File != "" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    defaultMaxSizeMB,
				MaxBackups: defaultMaxBackups,
				MaxAge:     defaultMaxAgeDays,
				Compress:   true,
			})
		}
		multiWriter := zerolog.MultiLevelWriter(writers...)

		level := zerolog.InfoLevel
		ctx := zerolog.New(multiWriter).With().Timestamp()
		if opts.Debug {
			level = zerolog.DebugLevel
			// file and line number for detailed troubleshooting
			ctx = ctx.Caller()
		}

		instance = ctx.Logger().Level(level)
		initialized.Store(true)
	})

	instance.Info().Bool("debug_mode", opts.Debug).Str("file", opts.File).Msg("Logger initialized")
	return instance
}

// GetLogger returns the logger instance. Before InitLogger or Bootstrap runs it is a no-op logger.
func GetLogger() zerolog.Logger {
	return instance
}

// Helper functions for consistent logging
func Info() *zerolog.Event {
	return instance.Info()
}

func Error() *zerolog.Event {
	return instance.Error()
}

func Debug() *zerolog.Event {
	return instance.Debug()
}

func Warn() *zerolog.Event {
	return instance.Warn()
}

func Fatal() *zerolog.Event {
	return instance.Fatal()
}
