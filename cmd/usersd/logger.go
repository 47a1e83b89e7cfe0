package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a zap sugared logger to the users.Logger interface.
type zapLogger struct {
	log *zap.SugaredLogger
}

func newZapLogger(production bool, name string) (*zapLogger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &zapLogger{log: base.Named(name).Sugar()}, nil
}

func (l *zapLogger) Debug(format string, args ...any) {
	l.log.Debugf(format, args...)
}

func (l *zapLogger) Info(format string, args ...any) {
	l.log.Infof(format, args...)
}

func (l *zapLogger) Warn(format string, args ...any) {
	l.log.Warnf(format, args...)
}

func (l *zapLogger) Error(format string, args ...any) {
	l.log.Errorf(format, args...)
}

func (l *zapLogger) Sync() {
	_ = l.log.Sync()
}
