package batchman

import (
	"go.uber.org/zap"
)

// log is the package-level logger that components derive their child loggers
// from at construction time. It stays silent unless replaced via SetLogger.
var log = zap.NewNop().Sugar()

// SetLogger replaces the package-level logger. Call it before constructing any
// component; loggers are captured at construction and not swapped afterwards.
func SetLogger(lg *zap.SugaredLogger) {
	if lg != nil {
		log = lg
	}
}

// UseDevelopmentLogger switches the package logger to a zap development logger
// writing human-readable debug output, handy for observing the scheduler live.
func UseDevelopmentLogger() {
	if lg, err := zap.NewDevelopment(); err == nil {
		log = lg.Sugar()
	}
}
