package dispatch

import (
	"errors"
	"io"
	"time"

	"github.com/Trinoooo/eventqueue/connections"
	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/errs"
	"github.com/Trinoooo/eventqueue/logs"
	"github.com/Trinoooo/eventqueue/metrics"
	"github.com/Trinoooo/eventqueue/poller"
	"github.com/luci/go-render/render"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = logs.Named("dispatch")

const (
	defaultCapacity       = 10
	defaultReadBufferSize = 4 * consts.KB
)

// Handler 处理从连接中读到的一段数据，data 在 Handler 返回后会被复用
type Handler func(token poller.Token, data []byte)

// Dispatcher 单线程事件循环：等待就绪事件，把对应连接读到 EAGAIN 或 EOF 为止。
// 与 Poll、Table 一样不是并发安全的。
type Dispatcher struct {
	poll    *poller.Poll
	table   *Table
	events  poller.Events
	buf     []byte
	timeout time.Duration
	handler Handler
	metrics *metrics.Helper
}

type Option func(d *Dispatcher)

// WithCapacity 单次 wait 最多取回的事件数
func WithCapacity(capacity int) Option {
	return func(d *Dispatcher) {
		if capacity > 0 {
			d.events = poller.NewEvents(capacity)
		}
	}
}

func WithReadBufferSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.buf = make([]byte, size)
		}
	}
}

// WithTimeout 单次 wait 的超时，<= 0 表示无限期阻塞
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithHandler(handler Handler) Option {
	return func(d *Dispatcher) {
		d.handler = handler
	}
}

func WithMetrics(helper *metrics.Helper) Option {
	return func(d *Dispatcher) {
		d.metrics = helper
	}
}

func New(poll *poller.Poll, table *Table, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		poll:    poll,
		table:   table,
		events:  poller.NewEvents(defaultCapacity),
		buf:     make([]byte, defaultReadBufferSize),
		timeout: poller.Infinite,
		handler: func(poller.Token, []byte) {},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewHelper()
	}
	return d
}

// Register 把连接加入 table，并以分配到的 token 注册读事件
func (d *Dispatcher) Register(conn Conn) (poller.Token, error) {
	token := d.table.Add(conn)
	if err := d.poll.Registry().Register(conn, token, poller.Readable); err != nil {
		// 注册失败的连接不会再有事件，直接视为完成，避免 Run 永远等待
		d.table.MarkComplete(token)
		return token, err
	}
	d.metrics.RegisterCounter.Inc()
	return token, nil
}

// Run 循环等待并处理事件，直到 table 中所有连接都读到 EOF。
// 超时或被信号打断的空结果不会终止循环。
func (d *Dispatcher) Run() error {
	for !d.table.AllComplete() {
		start := time.Now()
		err := d.poll.Wait(&d.events, d.timeout)
		d.metrics.WaitCounter.Inc()
		d.metrics.WaitDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}

		if len(d.events) == 0 {
			log.Debug("wait returned without events",
				zap.Duration(consts.LogFieldTimeout, d.timeout),
				zap.Int(consts.LogFieldCount, d.table.Pending()))
			continue
		}

		if _, err = d.HandleEvents(d.events); err != nil {
			return err
		}
	}

	log.Debug("all connections complete", zap.Int(consts.LogFieldCount, d.table.Len()))
	return nil
}

// HandleEvents 依次排空每个事件对应的连接，返回本批次新完成的连接数。
// 未知 token 与已完成的 token 会被跳过；读出错时立即返回。
func (d *Dispatcher) HandleEvents(events poller.Events) (int, error) {
	d.metrics.EventCounter.Add(float64(len(events)))
	if log.Enabled(zapcore.DebugLevel) {
		log.Debug("events delivered", zap.String(consts.LogFieldEvent, render.Render(events)))
	}

	completed := 0
	for i := range events {
		token := events[i].Token()
		conn, exist := d.table.Lookup(token)
		if !exist {
			log.Warn("event for unknown token", zap.Uint64(consts.LogFieldToken, uint64(token)))
			continue
		}
		if d.table.IsComplete(token) {
			continue
		}

		done, err := d.drain(token, conn)
		if err != nil {
			return completed, err
		}
		if done && d.table.MarkComplete(token) {
			completed++
			d.metrics.CompletedCounter.Inc()
			d.release(token, conn)
		}
	}
	return completed, nil
}

// drain 边缘触发下必须一直读到 EAGAIN，否则剩余数据不会再触发通知。
// 返回 true 表示读到了 EOF。
func (d *Dispatcher) drain(token poller.Token, conn Conn) (bool, error) {
	for {
		n, err := conn.Read(d.buf)
		// io.Reader 允许同时返回数据和错误，先交付数据再判断错误
		if n > 0 {
			d.metrics.ReadBytesCounter.Add(float64(n))
			d.handler(token, d.buf[:n])
		}
		switch {
		case err == nil && n == 0:
			return true, nil
		case err == nil:
		case errors.Is(err, io.EOF):
			return true, nil
		case connections.IsInterrupted(err):
		case connections.IsWouldBlock(err):
			d.metrics.WouldBlockCounter.Inc()
			return false, nil
		default:
			e := errs.NewIoErr().WithErr(err)
			log.Error(e.Error(), zap.Uint64(consts.LogFieldToken, uint64(token)), zap.Int(consts.LogFieldFd, conn.RawFd()))
			return false, e
		}
	}
}

// release 完成的连接不再需要通知，注销失败只记录日志
func (d *Dispatcher) release(token poller.Token, conn Conn) {
	if err := d.poll.Registry().Deregister(conn); err != nil {
		log.Warn("deregister completed connection failed",
			zap.Uint64(consts.LogFieldToken, uint64(token)),
			zap.Error(err))
	}
}
