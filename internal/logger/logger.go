// Package logger owns the process-wide zerolog logger.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	once sync.Once
	log  zerolog.Logger
)

func configure() {
	zerolog.TimeFieldFormat = timeFormat
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: timeFormat,
	}
	log = zerolog.New(output).With().Timestamp().Logger()
}

// Configure initialises the logger with the given level.
// Only the first call to Configure or Get configures the output.
func Configure(level zerolog.Level) *zerolog.Logger {
	once.Do(configure)
	zerolog.SetGlobalLevel(level)
	return &log
}

// Get returns the process logger, configuring it with defaults on first use.
func Get() *zerolog.Logger {
	once.Do(configure)
	return &log
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

// ParseLevel maps a config string to a level, falling back to info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}
