package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options - параметры логгера
type Options struct {
	// Level - уровень zap (debug, info, warn, error). Неизвестный уровень означает info.
	Level string
	// Verbose принудительно включает debug
	Verbose bool
	// OutputPaths - куда писать логи, по умолчанию stdout
	OutputPaths []string
}

// New создает логгер сервиса по уровню из конфигурации
func New(level string) (*zap.Logger, error) {
	return NewWithOptions(Options{Level: level})
}

// NewWithOptions строит zap логгер: JSON в проде, цветная консоль для debug
func NewWithOptions(opts Options) (*zap.Logger, error) {
	zapLevel := ParseLevel(opts.Level)
	if opts.Verbose {
		zapLevel = zapcore.DebugLevel
	}

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if zapLevel == zapcore.DebugLevel {
		config.Development = true
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return config.Build()
}

// ParseLevel переводит строку в уровень zap, info по умолчанию
func ParseLevel(level string) zapcore.Level {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return zapLevel
}
