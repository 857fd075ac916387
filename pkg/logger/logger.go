// Package logger is the operational log channel of the runtime. Turn
// outcomes, persistence failures and lifecycle events go here, never to the
// user-facing speaker.
package logger

// Logger interface for logging
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})

	// Named returns a child logger tagged with a component name.
	Named(name string) Logger
}

var globalLogger Logger = noOpLogger{}

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) {
	globalLogger.Debugf(format, v...)
}

// Info logs an info message
func Info(msg string) {
	globalLogger.Infof("%s", msg)
}

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) {
	globalLogger.Infof(format, v...)
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) {
	globalLogger.Warnf(format, v...)
}

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) {
	globalLogger.Errorf(format, v...)
}

// Fatalf logs a formatted fatal message and exits
func Fatalf(format string, v ...interface{}) {
	globalLogger.Fatalf(format, v...)
}

// Named returns a component logger derived from the global one.
func Named(name string) Logger {
	return globalLogger.Named(name)
}

type noOpLogger struct{}

func (noOpLogger) Debugf(string, ...interface{}) {}
func (noOpLogger) Infof(string, ...interface{})  {}
func (noOpLogger) Warnf(string, ...interface{})  {}
func (noOpLogger) Errorf(string, ...interface{}) {}
func (noOpLogger) Fatalf(string, ...interface{}) {}
func (l noOpLogger) Named(string) Logger         { return l }
