// Package obslog provides a pluggable, process-wide log sink for libproteus.
//
// Subsystems never write to stderr on their own; they log through this
// package's package-level logger, which discards everything until a host
// process installs a sink with SetSink.
package obslog

import (
	"io"
	"log"
	"sync"
)

var (
	mu     sync.Mutex
	logger = log.New(io.Discard, "", log.LstdFlags)
)

// SetSink installs w as the destination for all subsequent log output.
// Passing nil restores the default discarding sink.
func SetSink(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	logger = log.New(w, "", log.LstdFlags)
}

func output(level string, format string, v ...interface{}) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Printf(level+": "+format, v...)
}

// Errorf logs a failure that caused a request to be downgraded to a
// no-data/no-file fallback.
func Errorf(format string, v ...interface{}) { output("ERROR", format, v...) }

// Warnf logs a recoverable anomaly, such as a skipped malformed record.
func Warnf(format string, v ...interface{}) { output("WARN", format, v...) }

// Infof logs routine lifecycle events (grid init, snapshot rotation).
func Infof(format string, v ...interface{}) { output("INFO", format, v...) }

// Debugf logs fine-grained diagnostic detail.
func Debugf(format string, v ...interface{}) { output("DEBUG", format, v...) }
