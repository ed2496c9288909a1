package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zlog is the process-wide logger. It is a no-op logger until New is called.
var Zlog = zap.NewNop()

// New builds the process logger and installs it as Zlog.
func New(level, env string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	Zlog = l
	return l, nil
}
