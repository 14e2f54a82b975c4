// Package eventlog is the leveled logger shared by every daemon. Lines go
// to a standard *log.Logger and, through an optional Sink, to the daemon's
// log ring and WebSocket hub so bfrbctl can tail them.
package eventlog

import (
	"fmt"
	"io"
	"log"
	"time"
)

// Level orders log severities.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	}
	return "unknown"
}

// ParseLevel maps a config string to a Level, defaulting to Info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	}
	return Info
}

// Entry is one log line as kept in the ring and sent to clients.
type Entry struct {
	TS        string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Component string `json:"component"`
}

// Sink receives every entry at or above the logger's level.
type Sink interface {
	Record(Entry)
}

// Logger writes leveled, component-tagged lines.
type Logger struct {
	out       *log.Logger
	min       Level
	component string
	sink      Sink
}

// New returns a logger writing to out at the given minimum level.
func New(out *log.Logger, level string, sink Sink) *Logger {
	return &Logger{out: out, min: ParseLevel(level), sink: sink}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	return New(log.New(io.Discard, "", 0), "error", nil)
}

// With returns a copy tagged with component.
func (l *Logger) With(component string) *Logger {
	c := *l
	c.component = component
	return &c
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(Error, format, args...) }

// Std exposes the underlying logger for libraries that want one.
func (l *Logger) Std() *log.Logger { return l.out }

func (l *Logger) logf(level Level, format string, args ...any) {
	if level < l.min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		l.out.Printf("%s [%s] %s", level, l.component, msg)
	} else {
		l.out.Printf("%s %s", level, msg)
	}
	if l.sink != nil {
		l.sink.Record(Entry{
			TS:        time.Now().UTC().Format(time.RFC3339Nano),
			Level:     level.String(),
			Message:   msg,
			Component: l.component,
		})
	}
}
