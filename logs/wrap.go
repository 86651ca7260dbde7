package logs

import (
	"github.com/Trinoooo/eventqueue/consts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component 带固定 component 字段的 logger
type Component struct {
	logger *zap.Logger
}

func Named(component string) *Component {
	return &Component{
		logger: Logger.With(zap.String(consts.LogFieldComponent, component)).WithOptions(zap.AddCallerSkip(1)),
	}
}

// With 返回追加了公共字段的子 logger
func (c *Component) With(fields ...zap.Field) *Component {
	return &Component{logger: c.logger.With(fields...)}
}

// Enabled 用于跳过开销较大的日志字段构造
func (c *Component) Enabled(lvl zapcore.Level) bool {
	return c.logger.Core().Enabled(lvl)
}

func (c *Component) Debug(msg string, fields ...zap.Field) {
	c.logger.Debug(msg, fields...)
}

func (c *Component) Info(msg string, fields ...zap.Field) {
	c.logger.Info(msg, fields...)
}

func (c *Component) Warn(msg string, fields ...zap.Field) {
	c.logger.Warn(msg, fields...)
}

func (c *Component) Error(msg string, fields ...zap.Field) {
	c.logger.Error(msg, fields...)
}

func (c *Component) Fatal(msg string, fields ...zap.Field) {
	c.logger.Fatal(msg, fields...)
}

var defaultComponent *Component

func Debug(msg string, fields ...zap.Field) {
	defaultComponent.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	defaultComponent.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	defaultComponent.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	defaultComponent.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	defaultComponent.Fatal(msg, fields...)
}
