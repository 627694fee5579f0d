package objtable

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the objtable package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the objtable package's logger.
// This must be called before any table operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

// traceOn reports whether debug tracing is enabled.
func traceOn() bool {
	return Logger().Core().Enabled(zapcore.DebugLevel)
}
