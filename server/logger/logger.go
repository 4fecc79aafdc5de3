package logger

import (
	"log"

	"github.com/Daskott/safepoint/shared"
	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func NewLogger() *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		log.Panic(err)
	}

	// flushes buffer, if any
	defer logger.Sync()

	return logger.Sugar()
}

// NewLoggerWithFile returns a logger that writes to the console as NewLogger does
// and also to a rotating json log file described by 'logConfig'.
func NewLoggerWithFile(logConfig shared.LogConfig) *zap.SugaredLogger {
	if logConfig.File == "" {
		return NewLogger()
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logConfig.File,
		MaxSize:    valueOrDefault(logConfig.MaxSizeMB, 50),
		MaxBackups: valueOrDefault(logConfig.MaxBackups, 5),
		MaxAge:     valueOrDefault(logConfig.MaxAgeDays, 28),
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(zapcore.AddSync(color.Output)), zapcore.DebugLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), fileWriter, zapcore.InfoLevel),
	)

	return zap.New(core, zap.AddCaller()).Sugar()
}

func valueOrDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
