package poller

import (
	"math"
	"os"
	"time"
	"unsafe"

	"github.com/Trinoooo/eventqueue/poller/sys"
	"golang.org/x/sys/unix"
)

// Event epoll 上报的一条就绪记录，内存布局与 struct epoll_event 一致
type Event sys.EpollEvent

func (e Event) Token() Token {
	raw := sys.EpollEvent(e)
	return Token(raw.GetData())
}

func (e Event) IsReadable() bool {
	return e.Events&sys.EPOLLIN != 0
}

// IsReadClosed 对端已关闭写方向，缓冲区内可能仍有数据
func (e Event) IsReadClosed() bool {
	return e.Events&(sys.EPOLLRDHUP|sys.EPOLLHUP) != 0
}

func (e Event) IsError() bool {
	return e.Events&sys.EPOLLERR != 0
}

// epoll 的兴趣表是持久的，不需要额外状态
type backendState struct{}

func openChannel() (int, error) {
	fd, err := sys.EpollCreate1(sys.EPOLL_CLOEXEC)
	if err != nil {
		return -1, os.NewSyscallError("epoll_create1", err)
	}
	return fd, nil
}

func closeChannel(fd int) error {
	return sys.Close(fd)
}

func (r *Registry) add(fd int, token Token, interest Interest) error {
	ev := toEpollEvent(token, interest)
	return sys.EpollCtl(r.fd, sys.EPOLL_CTL_ADD, fd, &ev)
}

func (r *Registry) modify(fd int, token Token, interest Interest) error {
	ev := toEpollEvent(token, interest)
	return sys.EpollCtl(r.fd, sys.EPOLL_CTL_MOD, fd, &ev)
}

func (r *Registry) remove(fd int) error {
	return sys.EpollCtl(r.fd, sys.EPOLL_CTL_DEL, fd, nil)
}

func (r *Registry) wait(events []Event, timeout time.Duration) (int, error) {
	raw := unsafe.Slice((*sys.EpollEvent)(unsafe.Pointer(&events[0])), len(events))
	n, err := sys.EpollWait(r.fd, raw, toEpollTimeout(timeout))
	if err != nil {
		// 被信号打断按超时处理，由调用方决定是否再次 Wait
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, os.NewSyscallError("epoll_pwait", err)
	}
	return n, nil
}

func toEpollEvent(token Token, interest Interest) sys.EpollEvent {
	var ev sys.EpollEvent
	if interest.IsReadable() {
		ev.Events |= sys.EPOLLIN | sys.EPOLLRDHUP | sys.EPOLLET
	}
	ev.SetData(uint64(token))
	return ev
}

// toEpollTimeout 换算为毫秒，不足 1ms 的部分向上取整，避免忙等
func toEpollTimeout(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	if ms > math.MaxInt32 {
		ms = math.MaxInt32
	}
	return int(ms)
}
