package gorm

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// SlowQueryThreshold is the duration above which GORM logs a query as slow
const SlowQueryThreshold = 200 * time.Millisecond

// NewLogger routes GORM's statement log into zap
func NewLogger(log *zap.Logger, level string) logger.Interface {
	logLevel := logger.Silent
	switch level {
	case "debug", "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	}

	return logger.New(
		&logWriter{logger: log.Named("gorm").WithOptions(zap.AddCallerSkip(3))},
		logger.Config{
			SlowThreshold:             SlowQueryThreshold,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type logWriter struct {
	logger *zap.Logger
}

func (w *logWriter) Printf(format string, args ...interface{}) {
	w.logger.Sugar().Infof(format, args...)
}
