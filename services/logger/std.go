package logsvc

import (
	"io"
	"log"

	"github.com/trezcool/mergington/core"
)

// StdLogger writes entries to a *log.Logger, one line for the message and one per argument.
type StdLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*StdLogger)(nil)

// NewStdLogger returns a logger writing to std; Debug entries are dropped unless debug is set.
func NewStdLogger(std *log.Logger, debug bool) *StdLogger {
	return &StdLogger{std: std, debug: debug}
}

// NewDiscardLogger drops everything.
func NewDiscardLogger() *StdLogger {
	return NewStdLogger(log.New(io.Discard, "", 0), false)
}

func (l StdLogger) print(level, msg string, args []interface{}) {
	l.std.Println(level + ": " + msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l StdLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print("DEBUG", msg, args)
	}
}

func (l StdLogger) Info(msg string, args ...interface{}) { l.print("INFO", msg, args) }

func (l StdLogger) Warn(msg string, args ...interface{}) { l.print("WARN", msg, args) }

func (l StdLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }

func (l StdLogger) Fatal(msg string, args ...interface{}) {
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}
