package calibration

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

// SetLogWriters configures the logging streams for the calibration loader.
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
	return log.New(w, "[calibration] ", log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...interface{}) {
	logMu.RLock()
	l := opsLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

func diagf(format string, args ...interface{}) {
	logMu.RLock()
	l := diagLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

func tracef(format string, args ...interface{}) {
	logMu.RLock()
	l := traceLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}
