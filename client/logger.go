package client

import "go.uber.org/zap"

// Logger 日志接口
//
// args 为交替的 key/value 对
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NopLogger 丢弃所有日志
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

// zapLogger 基于 zap SugaredLogger 的实现
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger 将 zap.Logger 适配为 Logger
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return &zapLogger{sugar: l.Sugar()}
}

// NewDevelopmentLogger 开发模式日志（控制台格式，Debug 级别）
func NewDevelopmentLogger() (Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(l), nil
}

// NewProductionLogger 生产模式日志（JSON 格式，Info 级别）
func NewProductionLogger() (Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(l), nil
}

func (z *zapLogger) Debug(msg string, args ...interface{}) { z.sugar.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...interface{})  { z.sugar.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...interface{})  { z.sugar.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...interface{}) { z.sugar.Errorw(msg, args...) }

// OrNop 返回 l，l 为 nil 时返回 NopLogger
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
