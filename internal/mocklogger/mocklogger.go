package mocklogger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type ZapLoggerMock struct {
	l *zap.Logger
}

func ZapTestLogger(enab zapcore.LevelEnabler) (*ZapLoggerMock, *observer.ObservedLogs) {
	core, logs := observer.New(enab)
	obsLog := zap.New(core, zap.Development())

	return &ZapLoggerMock{
		l: obsLog,
	}, logs
}

func (z *ZapLoggerMock) NamedLogger(name string) *zap.Logger {
	return z.l.Named(name)
}
