package rpclog

import (
	"log/slog"
	"os"

	"github.com/joeycumines/logiface"
	islog "github.com/joeycumines/logiface-slog"
)

// logifaceLogger adapts a *logiface.Logger[*islog.Event] to the Logger
// interface, the default ambient logging backend for go-rpccore: a
// structured, low-allocation logger (logiface) over the standard library's
// log/slog, consistent with how the rest of the retrieved pack wires
// logiface backends (logiface-slog, logiface-zerolog, logiface-logrus)
// rather than reaching for a bespoke logging package.
type logifaceLogger struct {
	l *logiface.Logger[*islog.Event]
}

// NewLogifaceLogger wraps logger as a Logger.
func NewLogifaceLogger(logger *logiface.Logger[*islog.Event]) Logger {
	return logifaceLogger{l: logger}
}

// NewDefaultLogger builds the out-of-the-box Logger: logiface over a JSON
// slog.Handler writing to os.Stderr, at LevelInfo and above.
func NewDefaultLogger() Logger {
	handler := slog.NewJSONHandler(os.Stderr, nil)
	logger := logiface.New[*islog.Event](islog.NewLogger(handler))
	return NewLogifaceLogger(logger)
}

func (a logifaceLogger) Enabled(level Level) bool {
	return a.l.Level() >= toLogifaceLevel(level)
}

func (a logifaceLogger) Log(e Entry) {
	b := a.l.Build(toLogifaceLevel(e.Level))
	if e.Method != "" {
		b = b.Str("method", e.Method)
	}
	if e.Err != nil {
		b = b.Err(e.Err)
	}
	for k, v := range e.Fields {
		b = b.Field(k, v)
	}
	b.Log(e.Message)
}

func toLogifaceLevel(level Level) logiface.Level {
	switch level {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}
