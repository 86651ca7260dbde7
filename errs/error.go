package errs

import (
	"errors"
	"fmt"
	"syscall"
)

type ReactorErr struct {
	msg  string
	code int64
	err  error
}

// Error 输出格式：
// [错误码] 错误类型描述 ( => 包含错误详细描述 )
// 解释：(xxx) 表示可选内容
func (re *ReactorErr) Error() string {
	details := fmt.Sprintf("[%d] %s", re.code, re.msg)
	if re.err != nil {
		details += fmt.Sprintf(" => %s", re.err)
	}

	return details
}

func (re *ReactorErr) Code() int64 {
	return re.code
}

func (re *ReactorErr) WithErr(err error) *ReactorErr {
	re.err = err
	return re
}

func (re *ReactorErr) Unwrap() error {
	return re.err
}

func GetCode(err error) int64 {
	var re *ReactorErr
	if errors.As(err, &re) {
		return re.code
	}
	return UnknownErrCode
}

// Errno 取出错误链上的平台错误码
func Errno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

const (
	UnknownErrCode       = 0
	InvalidParamErrCode  = 100001
	OsResourceErrCode    = 100002
	IoErrCode            = 100003
	TokenNotFoundErrCode = 100004
	ChannelClosedErrCode = 100005
	ReadConfigErrCode    = 100006
	DialErrCode          = 100007
	WriteSocketErrCode   = 100008
	ParseRequestErrCode  = 100009
	ListenErrCode        = 100010
	UnsupportedErrCode   = 100011
)

func NewUnknownErr() *ReactorErr {
	return &ReactorErr{msg: "unknown error", code: UnknownErrCode}
}

func NewInvalidParamErr() *ReactorErr {
	return &ReactorErr{msg: "invalid params", code: InvalidParamErrCode}
}

func NewOsResourceErr() *ReactorErr {
	return &ReactorErr{msg: "kernel rejected reactor operation", code: OsResourceErrCode}
}

func NewIoErr() *ReactorErr {
	return &ReactorErr{msg: "read connection failed", code: IoErrCode}
}

func NewTokenNotFoundErr() *ReactorErr {
	return &ReactorErr{msg: "token not registered", code: TokenNotFoundErrCode}
}

func NewChannelClosedErr() *ReactorErr {
	return &ReactorErr{msg: "notification channel already closed", code: ChannelClosedErrCode}
}

func NewReadConfigErr() *ReactorErr {
	return &ReactorErr{msg: "read config failed", code: ReadConfigErrCode}
}

func NewDialErr() *ReactorErr {
	return &ReactorErr{msg: "dial server failed", code: DialErrCode}
}

func NewWriteSocketErr() *ReactorErr {
	return &ReactorErr{msg: "write socket failed", code: WriteSocketErrCode}
}

func NewParseRequestErr() *ReactorErr {
	return &ReactorErr{msg: "parse request failed", code: ParseRequestErrCode}
}

func NewListenErr() *ReactorErr {
	return &ReactorErr{msg: "listen socket failed", code: ListenErrCode}
}

func NewUnsupportedErr() *ReactorErr {
	return &ReactorErr{msg: "platform not supported", code: UnsupportedErrCode}
}
