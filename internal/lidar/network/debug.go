package network

import (
	"io"
	"log"
	"sync"
)

var (
	logMu       sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three logging streams for the network package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	opsLogger = newLogger(ops)
	diagLogger = newLogger(diag)
	traceLogger = newLogger(trace)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[network] ", log.LstdFlags|log.Lmicroseconds)
}

// opsf logs to the ops stream (actionable warnings, errors, lifecycle events).
func opsf(format string, args ...interface{}) {
	logMu.RLock()
	l := opsLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// diagf logs to the diag stream (progress, dropped payloads).
func diagf(format string, args ...interface{}) {
	logMu.RLock()
	l := diagLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// tracef logs to the trace stream (per-packet telemetry).
func tracef(format string, args ...interface{}) {
	logMu.RLock()
	l := traceLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}
