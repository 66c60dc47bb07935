// Package xlog defines the logging interface every subsystem config takes,
// and a default implementation backed by logrus.
//
// (grounds raft/logger.go's Logger interface, generalized to accept
// structured fields the way logrus.FieldLogger does, rather than the
// teacher's string-only Logger methods)
package xlog

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface every subsystem config accepts. It is
// intentionally modeled on the teacher's raft.Logger (Panic/Fatal/Error/
// Warning/Print/Info/Debug families). logrus types do not satisfy it
// directly, because their WithFields returns *logrus.Entry rather than
// Logger; logrusLogger below adapts a *logrus.Entry.
type Logger interface {
	Panic(v ...interface{})
	Panicln(v ...interface{})
	Panicf(format string, v ...interface{})

	Fatal(v ...interface{})
	Fatalln(v ...interface{})
	Fatalf(format string, v ...interface{})

	Error(v ...interface{})
	Errorln(v ...interface{})
	Errorf(format string, v ...interface{})

	Warning(v ...interface{})
	Warningln(v ...interface{})
	Warningf(format string, v ...interface{})

	Print(v ...interface{})
	Println(v ...interface{})
	Printf(format string, v ...interface{})

	Info(v ...interface{})
	Infoln(v ...interface{})
	Infof(format string, v ...interface{})

	Debug(v ...interface{})
	Debugln(v ...interface{})
	Debugf(format string, v ...interface{})

	// WithFields returns a Logger carrying the given structured fields on
	// every subsequent line, the way logrus scopes per-component loggers.
	WithFields(fields Fields) Logger
}

// Fields is a structured logging field set, re-exported so callers don't
// need to import logrus directly.
type Fields = logrus.Fields

type logrusLogger struct {
	*logrus.Entry
}

// New returns a Logger writing JSON-less text lines to w at the given
// level, scoped with a "component" field, matching the per-package
// logger convention of raft/logger.go but with structured fields
// instead of string prefixing (SPEC_FULL §2.1).
func New(w io.Writer, level logrus.Level, component string) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	return &logrusLogger{Entry: l.WithField("component", component)}
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{Entry: l.Entry.WithFields(fields)}
}

// Warning satisfies the interface; logrus.Entry already exposes Warning
// as an alias of Warn, but we spell it out so the method set is obvious
// at a glance.
func (l *logrusLogger) Warning(v ...interface{})                 { l.Entry.Warning(v...) }
func (l *logrusLogger) Warningln(v ...interface{})               { l.Entry.Warnln(v...) }
func (l *logrusLogger) Warningf(format string, v ...interface{}) { l.Entry.Warnf(format, v...) }

type nopLogger struct{}

// NopLogger returns a Logger that discards everything, for tests and
// optional-logging defaults.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Panic(v ...interface{})                 {}
func (nopLogger) Panicln(v ...interface{})               {}
func (nopLogger) Panicf(format string, v ...interface{}) {}
func (nopLogger) Fatal(v ...interface{})                 {}
func (nopLogger) Fatalln(v ...interface{})               {}
func (nopLogger) Fatalf(format string, v ...interface{}) {}
func (nopLogger) Error(v ...interface{})                 {}
func (nopLogger) Errorln(v ...interface{})               {}
func (nopLogger) Errorf(format string, v ...interface{}) {}
func (nopLogger) Warning(v ...interface{})               {}
func (nopLogger) Warningln(v ...interface{})             {}
func (nopLogger) Warningf(format string, v ...interface{}) {}
func (nopLogger) Print(v ...interface{})                 {}
func (nopLogger) Println(v ...interface{})               {}
func (nopLogger) Printf(format string, v ...interface{}) {}
func (nopLogger) Info(v ...interface{})                  {}
func (nopLogger) Infoln(v ...interface{})                {}
func (nopLogger) Infof(format string, v ...interface{})  {}
func (nopLogger) Debug(v ...interface{})                 {}
func (nopLogger) Debugln(v ...interface{})               {}
func (nopLogger) Debugf(format string, v ...interface{}) {}
func (nopLogger) WithFields(fields Fields) Logger        { return nopLogger{} }
