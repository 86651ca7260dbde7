package logs

import (
	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger *zap.Logger
	level  zap.AtomicLevel
)

func init() {
	var (
		cfg zap.Config
		err error
	)
	if utils.IsTest() {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	level = cfg.Level

	Logger, err = cfg.Build(zap.AddCaller())
	if err != nil {
		panic(err)
	}

	defaultComponent = &Component{
		logger: Logger.With(zap.String(consts.LogFieldComponent, consts.AppName)).WithOptions(zap.AddCallerSkip(2)),
	}
}

// SetLevel 调整全局日志级别，非法的级别保持原状并返回错误
func SetLevel(text string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(text)); err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}

func Sync() {
	_ = Logger.Sync()
}
