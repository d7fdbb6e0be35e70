package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig describes a rotating log file written in addition to stdout.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Option customizes NewLogger.
type Option func(*options)

type options struct {
	level string
	file  *FileConfig
}

// WithLevel overrides the log level: debug, info, warn, error. Empty keeps the env default.
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithFile tees JSON logs into a rotating file. An empty path is ignored.
func WithFile(fc FileConfig) Option {
	return func(o *options) {
		if fc.Path != "" {
			o.file = &fc
		}
	}
}

// NewLogger creates a zap logger for the given environment.
// prod uses JSON output, local/dev/docker/test use colored console output.
func NewLogger(env string, opts ...Option) (*zap.Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev", "docker", "test":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if o.level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(o.level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", o.level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	zapOpts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if o.file != nil {
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   o.file.Path,
				MaxSize:    o.file.MaxSizeMB,
				MaxBackups: o.file.MaxBackups,
				MaxAge:     o.file.MaxAgeDays,
				Compress:   o.file.Compress,
			}),
			cfg.Level,
		)
		zapOpts = append(zapOpts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	l, err := cfg.Build(zapOpts...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
