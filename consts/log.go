package consts

// zap field keys
const (
	LogFieldComponent = "component"
	LogFieldParams    = "params"
	LogFieldValue     = "value"
	LogFieldToken     = "token"
	LogFieldFd        = "fd"
	LogFieldBytes     = "bytes"
	LogFieldCount     = "count"
	LogFieldTimeout   = "timeout"
	LogFieldRunId     = "run_id"
	LogFieldAddr      = "addr"
	LogFieldEvent     = "event"
)
