package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/errs"
	"github.com/Trinoooo/eventqueue/logs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var log = logs.Named("config")

type Config struct {
	Host           string
	Port           int
	Requests       int
	BaseDelay      time.Duration
	EventCapacity  int
	ReadBufferSize int
	WaitTimeout    time.Duration // 0 表示无限期阻塞
	LogLevel       string
	PushGateway    string
	PushInterval   time.Duration
	ServerWorkers  int
}

// Load 读取配置，优先级：环境变量 > 配置文件 > 默认值。
// path 为空时读取 $HOME/eventqueue/config.yaml，文件不存在不算错误。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(consts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			e := errs.NewReadConfigErr().WithErr(err)
			log.Error(e.Error(), zap.String(consts.LogFieldParams, path))
			return nil, e
		}
		v.SetConfigFile(filepath.Clean(expanded))
	} else {
		v.AddConfigPath(consts.DefaultConfigPath)
		v.SetConfigName(consts.ConfigName)
		v.SetConfigType(consts.ConfigType)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			e := errs.NewReadConfigErr().WithErr(err)
			log.Error(e.Error(), zap.String(consts.LogFieldParams, path))
			return nil, e
		}
		log.Debug("config file not found, use defaults", zap.String(consts.LogFieldParams, consts.DefaultConfigPath))
	}

	return &Config{
		Host:           v.GetString(consts.ConfigHost),
		Port:           v.GetInt(consts.ConfigPort),
		Requests:       v.GetInt(consts.ConfigRequests),
		BaseDelay:      v.GetDuration(consts.ConfigBaseDelay),
		EventCapacity:  v.GetInt(consts.ConfigEventCapacity),
		ReadBufferSize: v.GetInt(consts.ConfigReadBufferSize),
		WaitTimeout:    v.GetDuration(consts.ConfigWaitTimeout),
		LogLevel:       v.GetString(consts.ConfigLogLevel),
		PushGateway:    v.GetString(consts.ConfigPushGateway),
		PushInterval:   v.GetDuration(consts.ConfigPushInterval),
		ServerWorkers:  v.GetInt(consts.ConfigServerWorkers),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(consts.ConfigHost, "127.0.0.1")
	v.SetDefault(consts.ConfigPort, 8080)
	v.SetDefault(consts.ConfigRequests, 5)
	v.SetDefault(consts.ConfigBaseDelay, time.Second)
	v.SetDefault(consts.ConfigEventCapacity, 10)
	v.SetDefault(consts.ConfigReadBufferSize, 4*consts.KB)
	v.SetDefault(consts.ConfigWaitTimeout, time.Duration(0))
	v.SetDefault(consts.ConfigLogLevel, "info")
	v.SetDefault(consts.ConfigPushGateway, "")
	v.SetDefault(consts.ConfigPushInterval, 5*time.Second)
	v.SetDefault(consts.ConfigServerWorkers, 100)
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	var (
		field string
		value interface{}
	)
	switch {
	case c.Host == "":
		field, value = consts.ConfigHost, c.Host
	case c.Port <= 0 || c.Port > 65535:
		field, value = consts.ConfigPort, c.Port
	case c.Requests <= 0:
		field, value = consts.ConfigRequests, c.Requests
	case c.BaseDelay < 0:
		field, value = consts.ConfigBaseDelay, c.BaseDelay
	case c.EventCapacity <= 0:
		field, value = consts.ConfigEventCapacity, c.EventCapacity
	case c.ReadBufferSize <= 0:
		field, value = consts.ConfigReadBufferSize, c.ReadBufferSize
	case c.WaitTimeout < 0:
		field, value = consts.ConfigWaitTimeout, c.WaitTimeout
	case c.PushInterval < 0:
		field, value = consts.ConfigPushInterval, c.PushInterval
	case c.ServerWorkers <= 0:
		field, value = consts.ConfigServerWorkers, c.ServerWorkers
	default:
		return nil
	}

	e := errs.NewInvalidParamErr()
	log.Error(e.Error(), zap.String(consts.LogFieldParams, field), zap.Any(consts.LogFieldValue, value))
	return e
}
