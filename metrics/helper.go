package metrics

import (
	"sync"
	"time"

	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/logs"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

var log = logs.Named("metrics")

const namespace = consts.AppName

type Helper struct {
	WaitCounter         prometheus.Counter   // poll wait 调用次数
	WaitDuration        prometheus.Histogram // 单次 wait 阻塞时长
	EventCounter        prometheus.Counter   // 收到的就绪事件
	ReadBytesCounter    prometheus.Counter   // 读到的字节数
	WouldBlockCounter   prometheus.Counter   // 读到 EAGAIN 的次数
	CompletedCounter    prometheus.Counter   // 读到 EOF 的连接数
	RegisterCounter     prometheus.Counter   // 注册的连接数
	DelayRequestCounter prometheus.Counter   // delay server 处理的请求数

	registry *prometheus.Registry
	stop     chan struct{}
	done     sync.WaitGroup
	once     sync.Once
}

type Option func(h *Helper)

// WithPushGateway 周期性地把指标推送到 pushgateway，url 为空时不推送
func WithPushGateway(url string, interval time.Duration) Option {
	return func(h *Helper) {
		if url == "" || interval <= 0 {
			return
		}
		pusher := push.New(url, namespace).Gatherer(h.registry)
		h.done.Add(1)
		gopool.Go(func() {
			defer h.done.Done()
			h.pushLoop(pusher, interval)
		})
	}
}

func NewHelper(opts ...Option) *Helper {
	waitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "wait_seconds",
		Help:      "time spent blocked in a single poll wait",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
	})

	h := &Helper{
		WaitCounter:         newCounter("wait_total", "number of poll wait calls"),
		WaitDuration:        waitDuration,
		EventCounter:        newCounter("events_total", "readiness events delivered by the kernel"),
		ReadBytesCounter:    newCounter("read_bytes_total", "bytes read from ready connections"),
		WouldBlockCounter:   newCounter("would_block_total", "reads that stopped on would-block"),
		CompletedCounter:    newCounter("connections_completed_total", "connections that reached end of stream"),
		RegisterCounter:     newCounter("register_total", "connections registered with the poller"),
		DelayRequestCounter: newCounter("delay_requests_total", "requests answered by the delay server"),
		registry:            prometheus.NewRegistry(),
		stop:                make(chan struct{}),
	}

	h.registry.MustRegister(
		h.WaitCounter,
		h.WaitDuration,
		h.EventCounter,
		h.ReadBytesCounter,
		h.WouldBlockCounter,
		h.CompletedCounter,
		h.RegisterCounter,
		h.DelayRequestCounter,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Helper) Registry() *prometheus.Registry {
	return h.registry
}

// Close 停止推送，可重复调用
func (h *Helper) Close() {
	h.once.Do(func() {
		close(h.stop)
	})
	h.done.Wait()
}

func (h *Helper) pushLoop(pusher *push.Pusher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			// 退出前补推一次，保证短生命周期的进程也能留下数据
			if err := pusher.Add(); err != nil {
				log.Warn("prometheus pusher push failed", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := pusher.Add(); err != nil {
				log.Warn("prometheus pusher push failed", zap.Error(err))
			}
		}
	}
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
}
