package delayserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/Trinoooo/eventqueue/connections"
	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/errs"
	"github.com/Trinoooo/eventqueue/logs"
	"github.com/Trinoooo/eventqueue/metrics"
	"github.com/Trinoooo/eventqueue/poller"
	"github.com/Trinoooo/eventqueue/protocol"
	"github.com/Trinoooo/eventqueue/utils"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var log = logs.Named("delayserver")

const (
	defaultWorkers     = 100
	acceptPollInterval = 100 * time.Millisecond
	listenerToken      = poller.Token(0)
)

// Server 收到 GET /{delay}/{name} 后等待 delay 毫秒，再把 name 作为响应体返回并关闭连接。
// 监听 socket 由 poller 驱动，每个连接在 gopool 上阻塞处理。
type Server struct {
	mutex    sync.Mutex
	listener *connections.Listener
	poll     *poller.Poll
	pool     gopool.Pool
	metrics  *metrics.Helper
	stop     chan struct{}
	done     sync.WaitGroup
	closed   bool
}

type Option func(s *Server)

func WithWorkers(workers int) Option {
	return func(s *Server) {
		if workers > 0 {
			s.pool = newPool(workers)
		}
	}
}

func WithMetrics(helper *metrics.Helper) Option {
	return func(s *Server) {
		s.metrics = helper
	}
}

func New(host string, port int, opts ...Option) (*Server, error) {
	srv := &Server{
		pool: newPool(defaultWorkers),
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.metrics == nil {
		srv.metrics = metrics.NewHelper()
	}

	var err error
	srv.listener, err = connections.Listen(host, port)
	if err != nil {
		log.Error("listen failed", zap.String(consts.LogFieldAddr, fmt.Sprintf("%s:%d", host, port)), zap.Error(err))
		return nil, err
	}

	srv.poll, err = poller.NewPoll()
	if err != nil {
		if e := srv.listener.Close(); e != nil {
			err = errors.Wrap(err, e.Error())
		}
		return nil, err
	}

	if err = srv.poll.Registry().Register(srv.listener, listenerToken, poller.Readable); err != nil {
		srv.release()
		return nil, err
	}
	return srv, nil
}

// readTimeout 测试环境缩短，避免 Close 等待读不到请求的连接
func readTimeout() time.Duration {
	return utils.GetValueOnEnv(5*time.Second, time.Second).(time.Duration)
}

func newPool(workers int) gopool.Pool {
	pool := gopool.NewPool("delay_handlers", int32(workers), gopool.NewConfig())
	pool.SetPanicHandler(func(ctx context.Context, r interface{}) {
		log.Error("handler panic", zap.Any(consts.LogFieldValue, r))
	})
	return pool
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve 阻塞地接受连接，直到 Close 被调用或 accept 出现无法恢复的错误
func (s *Server) Serve() error {
	s.mutex.Lock()
	select {
	case <-s.stop:
		s.mutex.Unlock()
		return nil
	default:
	}
	s.done.Add(1)
	s.mutex.Unlock()
	defer s.done.Done()

	log.Info("delay server start", zap.Stringer(consts.LogFieldAddr, s.Addr()))
	events := poller.NewEvents(1)
	for {
		select {
		case <-s.stop:
			log.Info("delay server stop", zap.Stringer(consts.LogFieldAddr, s.Addr()))
			return nil
		default:
		}

		if err := s.poll.Wait(&events, acceptPollInterval); err != nil {
			s.shutdown()
			return err
		}
		if len(events) == 0 {
			continue
		}

		if err := s.acceptAll(); err != nil {
			e := errs.NewListenErr().WithErr(err)
			log.Error(e.Error(), zap.Stringer(consts.LogFieldAddr, s.Addr()))
			s.shutdown()
			return e
		}
	}
}

// acceptAll 监听 socket 同样是边缘触发，必须 accept 到 EAGAIN
func (s *Server) acceptAll() error {
	for {
		conn, err := s.listener.Accept()
		switch {
		case err == nil:
		case connections.IsWouldBlock(err):
			return nil
		case connections.IsInterrupted(err):
			continue
		case errors.Is(err, syscall.ECONNABORTED):
			log.Warn("software caused connection abort, ignore")
			continue
		default:
			return err
		}

		log.Debug("accept connection",
			zap.Stringer(consts.LogFieldAddr, conn.RemoteAddr()),
			zap.Int(consts.LogFieldFd, conn.RawFd()))
		s.done.Add(1)
		s.pool.Go(func() {
			defer s.done.Done()
			s.handle(conn)
		})
	}
}

func (s *Server) handle(conn connections.IConnection) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("close connection failed", zap.Error(err))
		}
	}()

	if err := conn.SetReadTimeout(readTimeout()); err != nil {
		log.Warn("set read timeout failed", zap.Error(err))
	}

	req, err := protocol.ReadDelayRequest(conn)
	if err != nil {
		log.Warn(err.Error(), zap.Stringer(consts.LogFieldAddr, conn.RemoteAddr()))
		s.reply(conn, protocol.NewResponse(http.StatusBadRequest, err.Error()))
		return
	}

	log.Debug("delay request", zap.String(consts.LogFieldParams, req.Path()))
	timer := time.NewTimer(req.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.stop:
		return
	}

	s.reply(conn, protocol.NewResponse(http.StatusOK, req.Name))
	s.metrics.DelayRequestCounter.Inc()
}

func (s *Server) reply(conn connections.IConnection, resp []byte) {
	if err := connections.WriteAll(conn, resp); err != nil {
		e := errs.NewWriteSocketErr().WithErr(err)
		log.Warn(e.Error(), zap.Stringer(consts.LogFieldAddr, conn.RemoteAddr()))
	}
}

// Close 停止接受新连接，未完成的请求直接断开。可重复调用。
func (s *Server) Close() error {
	s.shutdown()
	s.done.Wait()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.release()
}

func (s *Server) shutdown() {
	utils.WrapLock(&s.mutex, func() {
		select {
		case <-s.stop:
		default:
			close(s.stop)
		}
	})
}

func (s *Server) release() error {
	var err error
	if e := s.poll.Close(); e != nil {
		err = e
	}
	if e := s.listener.Close(); e != nil {
		if err != nil {
			err = errors.Wrap(err, e.Error())
		} else {
			err = e
		}
	}
	return err
}
