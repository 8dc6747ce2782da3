package logger

import corelogger "github.com/kilianp07/eld/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards every message.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component using the process-wide
// settings installed by Configure.
func New(component string) Logger {
	return NewZerologLogger(component)
}
