// Package logging provides the hub's structured logger, built on zap in
// the teacher's idiom: a package-level constructor returning a
// *zap.SugaredLogger configured from the node's log level and format,
// never a global logger reached into directly by other packages.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the logger's level and encoding.
type Config struct {
	Level  string // debug, info, warn, error
	JSON   bool
}

func New(cfg Config) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	zcfg := zap.NewProductionConfig()
	if !cfg.JSON {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// NewNop is used by tests and components that accept an optional logger.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
