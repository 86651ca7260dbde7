package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/Trinoooo/eventqueue/config"
	"github.com/Trinoooo/eventqueue/connections"
	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/delayserver"
	"github.com/Trinoooo/eventqueue/dispatch"
	"github.com/Trinoooo/eventqueue/errs"
	"github.com/Trinoooo/eventqueue/metrics"
	"github.com/Trinoooo/eventqueue/poller"
	"github.com/Trinoooo/eventqueue/protocol"
	"github.com/Trinoooo/eventqueue/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// runRequests 建立 cfg.Requests 个连接，第 i 个请求让服务端等待 (Requests-i)*BaseDelay，
// 所以响应大致按 token 倒序到达。所有连接读到 EOF 后返回。
func runRequests(cfg *config.Config, out io.Writer) error {
	runLog := log.With(zap.String(consts.LogFieldRunId, uuid.NewString()))

	helper := metrics.NewHelper(metrics.WithPushGateway(cfg.PushGateway, cfg.PushInterval))
	defer helper.Close()

	poll, err := poller.NewPoll()
	if err != nil {
		return err
	}
	defer func() {
		if e := poll.Close(); e != nil {
			runLog.Error("close poll failed", zap.Error(e))
		}
	}()

	table := dispatch.NewTable()
	defer table.Each(func(token poller.Token, conn dispatch.Conn, complete bool) bool {
		if c, ok := conn.(io.Closer); ok {
			if e := c.Close(); e != nil {
				runLog.Warn("close connection failed", zap.Uint64(consts.LogFieldToken, uint64(token)), zap.Error(e))
			}
		}
		return true
	})

	d := dispatch.New(poll, table,
		dispatch.WithCapacity(cfg.EventCapacity),
		dispatch.WithReadBufferSize(cfg.ReadBufferSize),
		dispatch.WithTimeout(cfg.WaitTimeout),
		dispatch.WithMetrics(helper),
		dispatch.WithHandler(func(token poller.Token, data []byte) {
			_, _ = fmt.Fprintln(out, utils.WrapData(uint64(token), string(data)))
		}))

	for i := 0; i < cfg.Requests; i++ {
		req := protocol.NewDelayRequest(time.Duration(cfg.Requests-i)*cfg.BaseDelay, fmt.Sprintf("request-%d", i))
		conn, err := connections.Dial(cfg.Host, cfg.Port)
		if err != nil {
			runLog.Error(err.Error(), zap.String(consts.LogFieldAddr, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)))
			return err
		}

		if err = connections.WriteAll(conn, req.Bytes()); err != nil {
			e := errs.NewWriteSocketErr().WithErr(err)
			runLog.Error(e.Error(), zap.String(consts.LogFieldParams, req.Path()))
			if ce := conn.Close(); ce != nil {
				return errors.Wrap(e, ce.Error())
			}
			return e
		}

		token, err := d.Register(conn)
		if err != nil {
			return err
		}
		runLog.Debug("request sent", zap.Uint64(consts.LogFieldToken, uint64(token)), zap.String(consts.LogFieldParams, req.Path()))
	}

	if err = d.Run(); err != nil {
		runLog.Error("event loop failed", zap.Error(err))
		return err
	}

	runLog.Info("FINISHED", zap.Int(consts.LogFieldCount, table.Len()))
	_, _ = fmt.Fprintln(out, utils.WrapInfo("FINISHED"))
	return nil
}

// startDelayServer 在当前进程里启动 delay server
func startDelayServer(cfg *config.Config) (*delayserver.Server, error) {
	srv, err := delayserver.New(cfg.Host, cfg.Port, delayserver.WithWorkers(cfg.ServerWorkers))
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Serve(); err != nil {
			log.Error("delay server stopped", zap.Error(err))
		}
	}()

	log.Info("in-process delay server started", zap.Stringer(consts.LogFieldAddr, srv.Addr()))
	return srv, nil
}
