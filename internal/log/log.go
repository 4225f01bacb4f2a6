package log

import (
	"io"
	"log"
	"os"
	"strings"
)

const flags = log.Ldate | log.Ltime | log.Lshortfile

var (
	// InfoLogger for standard, non-error messages.
	InfoLogger = log.New(os.Stdout, "INFO: ", flags)
	// ErrorLogger for error messages.
	ErrorLogger = log.New(os.Stderr, "ERROR: ", flags)
	// DebugLogger for verbose request tracing. Silent unless SetLevel("debug") is called.
	DebugLogger = log.New(io.Discard, "DEBUG: ", flags)
)

// SetLevel adjusts which loggers write output. "debug" enables DebugLogger,
// "error" silences InfoLogger, anything else keeps the defaults.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		InfoLogger.SetOutput(os.Stdout)
		DebugLogger.SetOutput(os.Stdout)
	case "error":
		InfoLogger.SetOutput(io.Discard)
		DebugLogger.SetOutput(io.Discard)
	default:
		InfoLogger.SetOutput(os.Stdout)
		DebugLogger.SetOutput(io.Discard)
	}
}

// Discard silences every logger.
func Discard() {
	InfoLogger.SetOutput(io.Discard)
	ErrorLogger.SetOutput(io.Discard)
	DebugLogger.SetOutput(io.Discard)
}
