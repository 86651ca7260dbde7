package poller

import (
	"strings"
	"time"
)

// Token 调用方在注册时选定的关联标识，内核原样带回，不具有任何内核含义
type Token uint64

// Interest 注册关注的就绪类型
type Interest uint8

const (
	// Readable 读就绪。epoll 下为持久的边缘触发，kqueue 下为一次性事件，
	// 由 Poll 在下一次 Wait 时自动重新挂载，调用方不感知差异。
	Readable Interest = 1 << iota
)

func (i Interest) IsReadable() bool {
	return i&Readable != 0
}

func (i Interest) String() string {
	var parts []string
	if i.IsReadable() {
		parts = append(parts, "READABLE")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Source 可被 Registry 监听的对象，只借用其 fd，不持有其生命周期
type Source interface {
	RawFd() int
}

// Events 复用的事件缓冲区，cap 决定单次 Wait 最多返回的事件数
type Events []Event

// NewEvents 创建容量为 capacity 的事件缓冲区
func NewEvents(capacity int) Events {
	return make(Events, 0, capacity)
}

// Infinite 作为 Wait 的 timeout 时表示无限期阻塞
const Infinite time.Duration = -1
