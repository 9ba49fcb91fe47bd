// Package pipelog is a thin structured-logging wrapper around logrus.
// Loggers are cached by sink name behind a mutex so that repeated
// requests for the same sink (e.g. "stderr") return the same instance.
package pipelog

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is a structured set of key/value pairs attached to a log line.
type Fields = logrus.Fields

// Logger is the logging surface every pipeline stage is handed.
type Logger interface {
	Fields(kv ...interface{}) Logger
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Fields(kv ...interface{}) Logger {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return &logrusLogger{entry: l.entry.WithFields(f)}
}

func (l *logrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *logrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *logrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *logrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }

var (
	mu     sync.Mutex
	cached = map[string]Logger{}
)

// Get returns the cached Logger for dest, creating it on first use.
// dest may be "stdout", "stderr", "off", or a filesystem path.
func Get(dest string) Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := cached[dest]; ok {
		return l
	}
	l := newLogger(dest)
	cached[dest] = l
	return l
}

func newLogger(dest string) Logger {
	base := logrus.New()
	base.Out = sinkWriter(dest)
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

func sinkWriter(dest string) io.Writer {
	switch dest {
	case "off":
		return io.Discard
	case "stdout":
		return os.Stdout
	case "stderr", "":
		return os.Stderr
	default:
		f, err := os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return os.Stderr
		}
		return f
	}
}

// Reset clears the logger cache. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cached = map[string]Logger{}
}
