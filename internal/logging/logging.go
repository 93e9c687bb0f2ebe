// Package logging builds the application's zap logger. The TUI owns the
// terminal, so logs go to a rotating file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level  string // debug, info, warn, error
	File   string // empty disables the file sink
	Stderr bool   // also write human-readable logs to stderr
}

// New returns a logger and a function that flushes it.
func New(opts Options) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	var cores []zapcore.Core
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: opts.File, MaxSize: 20, MaxBackups: 3, MaxAge: 28, Compress: true,
			}),
			level,
		))
	}
	if opts.Stderr {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.Lock(os.Stderr),
			level,
		))
	}
	if len(cores) == 0 {
		return zap.NewNop(), func() {}, nil
	}

	log := zap.New(zapcore.NewTee(cores...))
	return log, func() { _ = log.Sync() }, nil
}

// LogDuration lets you do: defer logging.LogDuration(log, "ListSessions")()
func LogDuration(log *zap.Logger, name string, fields ...zap.Field) func() {
	start := time.Now()
	return func() {
		log.Debug("timed", append(fields,
			zap.String("func", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)...)
	}
}
