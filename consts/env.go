package consts

const (
	EnvPrefix   = "EVENTQUEUE"      // viper 环境变量前缀
	Env         = "EVENTQUEUE_ENV"  // 运行环境，test 时日志使用 development 配置
	Host        = "EVENTQUEUE_HOST" // 主机名，目前只支持ipv4
	Port        = "EVENTQUEUE_PORT" // 端口
	Requests    = "EVENTQUEUE_REQUESTS"
	Config      = "EVENTQUEUE_CONFIG"
	LogLevel    = "EVENTQUEUE_LOG_LEVEL"
	PushGateway = "EVENTQUEUE_METRICS_PUSH_GATEWAY"
)
