package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// L returns the process-wide logger, building it on first use.
// LOG_LEVEL and LOG_FORMAT ("console" for development) come from the
// environment; production defaults to JSON on stdout.
func L() *zap.Logger {
	once.Do(func() {
		log = build(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	})
	return log
}

// SetForTesting swaps the logger, for tests that want a no-op or observer.
func SetForTesting(l *zap.Logger) {
	once.Do(func() {})
	log = l
}

func build(level string, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	built, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return built
}
