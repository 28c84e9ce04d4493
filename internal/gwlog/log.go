// Package gwlog adapts cosmossdk.io/log's four-level Logger interface to
// the gateway's seven winston-style levels (spec §6, ETHRPC_LOG_LEVEL).
package gwlog

import (
	"os"

	"cosmossdk.io/log"
)

// Level is one of the seven levels spec §6 recognizes for ETHRPC_LOG_LEVEL.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelHTTP
	LevelVerbose
	LevelDebug
	LevelSilly
)

func ParseLevel(s string) Level {
	switch s {
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "info":
		return LevelInfo
	case "http":
		return LevelHTTP
	case "verbose":
		return LevelVerbose
	case "debug":
		return LevelDebug
	case "silly":
		return LevelSilly
	default:
		return LevelInfo
	}
}

// Logger wraps a cosmossdk.io/log.Logger, gating the three levels that
// don't exist on the underlying interface (http, verbose, silly) behind an
// explicit threshold check and tagging them with a "level" key so they
// remain greppable.
type Logger struct {
	base      log.Logger
	threshold Level
}

// New builds a Logger writing to stderr at the given threshold, matching
// the teacher's practice of deriving a module logger at startup
// (`srvCtx.Logger.With("module", "geth")`).
func New(module string, threshold Level) *Logger {
	base := log.NewLogger(os.Stderr).With("module", module)
	return &Logger{base: base, threshold: threshold}
}

func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{base: l.base.With(keyvals...), threshold: l.threshold}
}

func (l *Logger) Error(msg string, keyvals ...interface{}) { l.base.Error(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.base.Warn(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.base.Info(msg, keyvals...) }
func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.base.Debug(msg, keyvals...) }

// HTTP logs request/response traffic, the level the Router uses for a
// successful result (§4.1 step 5); request entry is logged at Info.
func (l *Logger) HTTP(msg string, keyvals ...interface{}) {
	if l.threshold < LevelHTTP {
		return
	}
	l.base.Debug(msg, append([]interface{}{"level", "http"}, keyvals...)...)
}

// Verbose logs param-level tracing (§4.1 step 5, "debug on params").
func (l *Logger) Verbose(msg string, keyvals ...interface{}) {
	if l.threshold < LevelVerbose {
		return
	}
	l.base.Debug(msg, append([]interface{}{"level", "verbose"}, keyvals...)...)
}

// Silly is the lowest-priority trace level; it is skipped entirely unless
// explicitly requested.
func (l *Logger) Silly(msg string, keyvals ...interface{}) {
	if l.threshold < LevelSilly {
		return
	}
	l.base.Debug(msg, append([]interface{}{"level", "silly"}, keyvals...)...)
}
