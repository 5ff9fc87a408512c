// Package logger is a small leveled, colorized logger used throughout the
// gateway in place of the standard library's log package.
package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
)

// Level is a logging verbosity level, ordered low to high.
type Level int

const (
	Trace Level = iota
	Debug
	Info
	Warn
	Error
)

var levelNames = map[Level]string{
	Trace: "TRC",
	Debug: "DBG",
	Info:  "INF",
	Warn:  "WRN",
	Error: "ERR",
}

var levelColor = map[Level]*color.Color{
	Trace: color.New(color.FgHiBlack),
	Debug: color.New(color.FgCyan),
	Info:  color.New(color.FgGreen),
	Warn:  color.New(color.FgYellow),
	Error: color.New(color.FgRed, color.Bold),
}

// threshold is the minimum level that is actually written out.
var threshold = Info

// SetLevel adjusts the global logging threshold.
func SetLevel(l Level) { threshold = l }

// ParseLevel maps a config string onto a Level, defaulting to Info on an
// unrecognized value.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return Trace
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Logger writes lines at a fixed level.
type Logger struct {
	level Level
}

var (
	T = &Logger{Trace}
	D = &Logger{Debug}
	I = &Logger{Info}
	W = &Logger{Warn}
	E = &Logger{Error}
)

func (l *Logger) emit(msg string) {
	if l.level < threshold {
		return
	}
	tag := levelColor[l.level].Sprint(levelNames[l.level])
	ts := time.Now().UTC().Format("15:04:05.000")
	fmt.Fprintf(os.Stderr, "%s %s %s\n", tag, ts, msg)
}

// F formats and logs a line, in the manner of fmt.Sprintf.
func (l *Logger) F(format string, args ...interface{}) {
	l.emit(fmt.Sprintf(format, args...))
}

// Ln joins its arguments with spaces and logs the result, in the manner of
// fmt.Sprintln but without the trailing newline (emit adds one).
func (l *Logger) Ln(args ...interface{}) {
	l.emit(fmt.Sprintln(args...))
}
