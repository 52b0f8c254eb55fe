// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level and destinations.
type Options struct {
	Level string
	// File, when set, receives a rotated copy of every entry.
	File string
	// Stderr controls whether entries are also written to stderr.
	Stderr bool
}

// ParseLevel maps user-facing level names to logrus levels. Unknown names
// map to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "verbose":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "quiet", "silent":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// SetLogLevel applies ParseLevel(s) to the standard logger.
func SetLogLevel(s string) {
	log.SetLevel(ParseLevel(s))
}

// Setup configures the standard logger and returns a closer for the log
// file (a no-op when no file is configured).
func Setup(opts Options) io.Closer {
	SetLogLevel(opts.Level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	var writers []io.Writer
	if opts.Stderr {
		writers = append(writers, os.Stderr)
	}
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		writers = append(writers, lj)
		closer = lj
	}
	switch len(writers) {
	case 0:
		log.SetOutput(io.Discard)
	case 1:
		log.SetOutput(writers[0])
	default:
		log.SetOutput(io.MultiWriter(writers...))
	}
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
