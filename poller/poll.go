package poller

import (
	"runtime"
	"time"

	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/errs"
	"go.uber.org/zap"
)

// Poll 持有 Registry，负责阻塞等待就绪事件
type Poll struct {
	registry *Registry
}

func NewPoll() (*Poll, error) {
	registry, err := newRegistry()
	if err != nil {
		return nil, err
	}
	return &Poll{registry: registry}, nil
}

func (p *Poll) Registry() *Registry {
	return p.registry
}

// Wait 阻塞直到至少一个已注册的 fd 就绪、timeout 到期或出错。
// 返回时 *events 的长度为本次就绪事件数，不超过 cap(*events)；
// 长度为 0 表示 timeout 内没有就绪（或被信号打断），不是错误。
// timeout < 0 无限期阻塞。事件之间的顺序由内核决定，调用方不应依赖。
func (p *Poll) Wait(events *Events, timeout time.Duration) error {
	if events == nil || cap(*events) == 0 {
		e := errs.NewInvalidParamErr()
		log.Error(e.Error(), zap.String(consts.LogFieldParams, "events"))
		return e
	}
	if p.registry.closed {
		return errs.NewChannelClosedErr()
	}

	buf := (*events)[:cap(*events)]
	n, err := p.registry.wait(buf, timeout)
	// 阻塞期间 finalizer 不能关闭通知通道
	runtime.KeepAlive(p.registry)
	if err != nil {
		*events = buf[:0]
		e := errs.NewOsResourceErr().WithErr(err)
		log.Error(e.Error(), zap.Duration(consts.LogFieldTimeout, timeout))
		return e
	}

	*events = buf[:n]
	return nil
}

// Close 释放底层通知通道
func (p *Poll) Close() error {
	return p.registry.Close()
}
