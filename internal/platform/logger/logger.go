// Package logger provides leveled logging for the game server.
// Engine lifecycle, resets, offline gains and persistence failures go through here.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

const flags = log.Ldate | log.Ltime | log.Lshortfile

// Logger provides leveled logging with fixed prefixes.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger creates a logger writing info and warnings to stdout and errors to stderr.
func NewLogger() *Logger {
	return New(os.Stdout, os.Stderr)
}

// New creates a logger over arbitrary writers.
func New(out, errOut io.Writer) *Logger {
	return &Logger{
		infoLogger:  log.New(out, "[COSMIC-INFO] ", flags),
		warnLogger:  log.New(out, "[COSMIC-WARN] ", flags),
		errorLogger: log.New(errOut, "[COSMIC-ERROR] ", flags),
	}
}

// Discard returns a logger that drops everything. Used by tests and headless runs.
func Discard() *Logger {
	return New(io.Discard, io.Discard)
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Output(2, msg)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Output(2, msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Output(2, msg)
}

func (l *Logger) Infof(format string, args ...any) {
	l.infoLogger.Output(2, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.warnLogger.Output(2, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.errorLogger.Output(2, fmt.Sprintf(format, args...))
}

// Event logs a game event trace.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.infoLogger.Output(2, fmt.Sprintf("[EVENT:%s] Actor:%s | %s", eventType, actorID, details))
}
