package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Trinoooo/eventqueue/config"
	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/delayserver"
	"github.com/Trinoooo/eventqueue/errs"
	"github.com/Trinoooo/eventqueue/logs"
	"github.com/Trinoooo/eventqueue/metrics"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var log = logs.Named("cli")

var (
	flagConfig = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "config file path, default $HOME/eventqueue/config.yaml.",
		EnvVars: []string{consts.Config},
	}
	flagHost = &cli.StringFlag{
		Name:    "host",
		Aliases: []string{"h"},
		Value:   "127.0.0.1",
		Usage:   "delay server host name, only ipv4 is supported.",
		EnvVars: []string{consts.Host},
	}
	flagPort = &cli.IntFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   8080,
		Usage:   "delay server port number, 0 < port <= 65535 are available.",
		Action: func(c *cli.Context, port int) error {
			if port <= 0 || port > 65535 {
				e := errs.NewInvalidParamErr()
				logs.Error(e.Error(), zap.String(consts.LogFieldParams, "port"), zap.Int(consts.LogFieldValue, port))
				return e
			}
			return nil
		},
		EnvVars: []string{consts.Port},
	}
	flagLogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		Usage:   "debug, info, warn or error.",
		EnvVars: []string{consts.LogLevel},
	}
	flagRequests = &cli.IntFlag{
		Name:    "requests",
		Aliases: []string{"n"},
		Value:   5,
		Usage:   "number of concurrent delayed requests.",
		Action: func(c *cli.Context, n int) error {
			if n <= 0 {
				e := errs.NewInvalidParamErr()
				logs.Error(e.Error(), zap.String(consts.LogFieldParams, "requests"), zap.Int(consts.LogFieldValue, n))
				return e
			}
			return nil
		},
		EnvVars: []string{consts.Requests},
	}
	flagBaseDelay = &cli.DurationFlag{
		Name:  "base-delay",
		Value: time.Second,
		Usage: "request i asks the server to wait (requests - i) * base-delay.",
	}
	flagWaitTimeout = &cli.DurationFlag{
		Name:  "wait-timeout",
		Usage: "timeout of a single poll wait, 0 blocks until an event arrives.",
	}
	flagServe = &cli.BoolFlag{
		Name:  "serve",
		Usage: "start an in-process delay server before sending requests.",
	}
	flagWorkers = &cli.IntFlag{
		Name:  "workers",
		Value: 100,
		Usage: "max goroutines handling delayed requests.",
	}
)

type Wrapper struct {
	app *cli.App
}

func NewWrapper() *Wrapper {
	wrapper := &Wrapper{
		app: &cli.App{
			Name:    consts.AppName,
			Usage:   "readiness based event queue over epoll / kqueue",
			Version: "0.1.0",
		},
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withCommands()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *Wrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *Wrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
	cli.AppHelpTemplate = consts.HelpTemplate
}

func (wrapper *Wrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagConfig,
		flagHost,
		flagPort,
		flagLogLevel,
	}
}

func (wrapper *Wrapper) withCommands() {
	wrapper.app.Commands = []*cli.Command{
		{
			Name:  "run",
			Usage: "send delayed requests and drive them with the event queue until all finish",
			Flags: []cli.Flag{
				flagRequests,
				flagBaseDelay,
				flagWaitTimeout,
				flagServe,
				flagWorkers,
			},
			Action: func(ctx *cli.Context) error {
				cfg, err := loadConfig(ctx)
				if err != nil {
					return err
				}

				if ctx.Bool(flagServe.Name) {
					srv, err := startDelayServer(cfg)
					if err != nil {
						return err
					}
					defer func() {
						if err := srv.Close(); err != nil {
							log.Error("close delay server failed", zap.Error(err))
						}
					}()
				}

				return runRequests(cfg, ctx.App.Writer)
			},
		},
		{
			Name:  "delayserver",
			Usage: "serve GET /{delay ms}/{name}, respond with name after delay",
			Flags: []cli.Flag{
				flagWorkers,
			},
			Action: func(ctx *cli.Context) error {
				cfg, err := loadConfig(ctx)
				if err != nil {
					return err
				}

				helper := metrics.NewHelper(metrics.WithPushGateway(cfg.PushGateway, cfg.PushInterval))
				defer helper.Close()
				srv, err := delayserver.New(cfg.Host, cfg.Port,
					delayserver.WithWorkers(cfg.ServerWorkers),
					delayserver.WithMetrics(helper))
				if err != nil {
					return err
				}

				go func() {
					// bugfix: 使用缓冲通道避免执行信号处理程序（下面的for）之前有信号到达会被丢弃
					sig := make(chan os.Signal, 5)
					signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
					for range sig {
						logs.Info("shutdown...")
						if err := srv.Close(); err != nil {
							logs.Error("server shutdown failed", zap.Error(err))
						}
					}
				}()

				err = srv.Serve()
				if e := srv.Close(); e != nil {
					log.Error("close delay server failed", zap.Error(e))
				}
				return err
			},
		},
	}
}

func (wrapper *Wrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name:  "Trino",
			Email: "sujun.trinoooo@gmail.com",
		},
	}
}

// loadConfig 读取配置文件后用显式设置的 flag 覆盖
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String(flagConfig.Name))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet(flagHost.Name) {
		cfg.Host = ctx.String(flagHost.Name)
	}
	if ctx.IsSet(flagPort.Name) {
		cfg.Port = ctx.Int(flagPort.Name)
	}
	if ctx.IsSet(flagLogLevel.Name) {
		cfg.LogLevel = ctx.String(flagLogLevel.Name)
	}
	if ctx.IsSet(flagRequests.Name) {
		cfg.Requests = ctx.Int(flagRequests.Name)
	}
	if ctx.IsSet(flagBaseDelay.Name) {
		cfg.BaseDelay = ctx.Duration(flagBaseDelay.Name)
	}
	if ctx.IsSet(flagWaitTimeout.Name) {
		cfg.WaitTimeout = ctx.Duration(flagWaitTimeout.Name)
	}
	if ctx.IsSet(flagWorkers.Name) {
		cfg.ServerWorkers = ctx.Int(flagWorkers.Name)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	if err = logs.SetLevel(cfg.LogLevel); err != nil {
		e := errs.NewInvalidParamErr().WithErr(err)
		log.Error(e.Error(), zap.String(consts.LogFieldParams, flagLogLevel.Name), zap.String(consts.LogFieldValue, cfg.LogLevel))
		return nil, e
	}
	return cfg, nil
}
