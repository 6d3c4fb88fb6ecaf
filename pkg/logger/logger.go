// Package logger builds the zap loggers shared by the chat server and client.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger writing to stdout.
func NewLogger(debug bool) *zap.Logger {
	return newLogger(os.Stdout, debug, true)
}

// NewFileLogger returns a logger writing to w without colors. The terminal
// client uses it so log lines never interleave with the rendered screen.
func NewFileLogger(w io.Writer, debug bool) *zap.Logger {
	return newLogger(w, debug, false)
}

func newLogger(w io.Writer, debug, color bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}
