// Package fscplog adds FSCP's structured event shape on top of
// pion/logging's leveled text logger, so callers can get both a
// human-readable line and a machine-parseable Event from the same call.
package fscplog

import (
	"fmt"
	"runtime"
	"time"

	"github.com/pion/logging"
)

// Level mirrors the seven severities the core's logging callback accepts.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInformation
	LevelImportant
	LevelWarning
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInformation:
		return "INFORMATION"
	case LevelImportant:
		return "IMPORTANT"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Event is one structured log record: level, timestamp, the subsystem
// that raised it, a stable code for programmatic matching, a free-form
// payload, and the call site.
type Event struct {
	Level     Level
	Timestamp time.Time
	Domain    string
	Code      string
	Payload   []interface{}
	File      string
	Line      int
}

// Sink receives every Event emitted through a Logger, in addition to the
// text line pion/logging already prints. Sink is optional; a nil sink
// means only the leveled text logger is used.
type Sink func(Event)

// Logger pairs a pion/logging.LeveledLogger (for human-readable output)
// with an optional Sink (for structured consumption), as described by the
// core's logging callback contract.
type Logger struct {
	domain string
	text   logging.LeveledLogger
	sink   Sink
}

// New builds a Logger for the given domain (e.g. "peer", "endpoint",
// "router"), using factory to build the underlying text logger.
func New(factory logging.LoggerFactory, domain string, sink Sink) *Logger {
	var text logging.LeveledLogger
	if factory != nil {
		text = factory.NewLogger(domain)
	}
	return &Logger{domain: domain, text: text, sink: sink}
}

func (l *Logger) emit(level Level, code, format string, args ...interface{}) {
	_, file, line, _ := runtime.Caller(2)
	if l.sink != nil {
		l.sink(Event{
			Level:     level,
			Timestamp: time.Now(),
			Domain:    l.domain,
			Code:      code,
			Payload:   args,
			File:      file,
			Line:      line,
		})
	}
	if l.text == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelTrace:
		l.text.Trace(msg)
	case LevelDebug:
		l.text.Debug(msg)
	case LevelInformation, LevelImportant:
		l.text.Info(msg)
	case LevelWarning:
		l.text.Warn(msg)
	case LevelError, LevelFatal:
		l.text.Error(msg)
	}
}

func (l *Logger) Tracef(code, format string, args ...interface{})       { l.emit(LevelTrace, code, format, args...) }
func (l *Logger) Debugf(code, format string, args ...interface{})       { l.emit(LevelDebug, code, format, args...) }
func (l *Logger) Infof(code, format string, args ...interface{})        { l.emit(LevelInformation, code, format, args...) }
func (l *Logger) Importantf(code, format string, args ...interface{})   { l.emit(LevelImportant, code, format, args...) }
func (l *Logger) Warnf(code, format string, args ...interface{})        { l.emit(LevelWarning, code, format, args...) }
func (l *Logger) Errorf(code, format string, args ...interface{})       { l.emit(LevelError, code, format, args...) }
func (l *Logger) Fatalf(code, format string, args ...interface{})       { l.emit(LevelFatal, code, format, args...) }
