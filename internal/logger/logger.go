// Package logger builds the process-wide zerolog logger.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New creates a logger based on the ENV environment variable: human-readable
// console output during development, JSON elsewhere. Logs always go to
// stderr so stdout stays reserved for command output.
func New() zerolog.Logger {
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" || env == "dev" || env == "development" {
		return NewDevelopment()
	}
	return NewProduction()
}

// NewDevelopment creates a console logger with timestamps.
func NewDevelopment() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// NewProduction creates a JSON logger with UNIX timestamps.
func NewProduction() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
