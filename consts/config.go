package consts

// 配置项 key
const (
	ConfigHost           = "host"
	ConfigPort           = "port"
	ConfigRequests       = "requests"
	ConfigBaseDelay      = "base_delay"
	ConfigEventCapacity  = "event_capacity"
	ConfigReadBufferSize = "read_buffer_size"
	ConfigWaitTimeout    = "wait_timeout"
	ConfigLogLevel       = "log_level"
	ConfigPushGateway    = "metrics.push_gateway"
	ConfigPushInterval   = "metrics.push_interval"
	ConfigServerWorkers  = "server.workers"
)

const (
	ConfigName = "config"
	ConfigType = "yaml"
)
