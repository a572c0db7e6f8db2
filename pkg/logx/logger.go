// Package logx provides the structured logger used across mktrend's
// collaborators (CLI, metrics server, streaming bridge). The core
// statistical packages never import logx directly; they accept an
// optional *Logger field on config.Config and are silent without one.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with the key-value call convention used throughout
// this codebase: Debug/Info/Warn/Error/Trace accept a message followed
// by either a single map[string]interface{} or an alternating list of
// string keys and arbitrary values.
type Logger struct {
	logger    *logrus.Logger
	component string
	fields    logrus.Fields
}

// NewLogger creates a logger at the given level, tagged with component.
func NewLogger(level, component string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(ParseLevel(level))
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &Logger{logger: l, component: component, fields: logrus.Fields{}}
}

// NewLoggerWithWriter creates a logger writing structured JSON logs to an
// arbitrary sink.
func NewLoggerWithWriter(level, component string, w io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(ParseLevel(level))
	l.SetFormatter(&logrus.JSONFormatter{})

	return &Logger{logger: l, component: component, fields: logrus.Fields{}}
}

// ParseLevel maps the mktrend log-level vocabulary to logrus.Level,
// defaulting to Info on an unrecognized string.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithFields returns a derived logger that always attaches the given
// fields, matching the teacher's fluent-context idiom.
func (l *Logger) WithFields(kv ...interface{}) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(kv)/2)
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range toFields(kv) {
		merged[k] = v
	}
	return &Logger{logger: l.logger, component: l.component, fields: merged}
}

func (l *Logger) entry() *logrus.Entry {
	return l.logger.WithFields(l.fields).WithField("component", l.component)
}

func toFields(kv []interface{}) logrus.Fields {
	if len(kv) == 1 {
		if m, ok := kv[0].(map[string]interface{}); ok {
			f := make(logrus.Fields, len(m))
			for k, v := range m {
				f[k] = v
			}
			return f
		}
	}
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		f[key] = kv[i+1]
	}
	return f
}

// Trace logs at trace level.
func (l *Logger) Trace(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.entry().WithFields(toFields(kv)).Trace(msg)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.entry().WithFields(toFields(kv)).Debug(msg)
}

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.entry().WithFields(toFields(kv)).Info(msg)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.entry().WithFields(toFields(kv)).Warn(msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.entry().WithFields(toFields(kv)).Error(msg)
}

// Note logs an analysis note emitted by the core at debug level, tagging
// it with the operation it came from. Nothing in this module calls it:
// the core packages and the public operations in pkg/trend return their
// notes in their results and do not log them.
func (l *Logger) Note(operation, note string) {
	if l == nil {
		return
	}
	l.Debug("analysis note", "operation", operation, "note", note)
}
