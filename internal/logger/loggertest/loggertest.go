// Package loggertest provides loggers that capture entries for assertions in tests.
package loggertest

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/littlelifetrip/ai-recommender/internal/logger"
)

// New returns a debug-level Logger whose entries are recorded in memory.
func New() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}
