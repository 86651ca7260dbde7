//go:build darwin || (freebsd && (amd64 || arm64))

package poller

import (
	"os"
	"syscall"
	"time"
	"unsafe"

	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/poller/sys"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Event kqueue 上报的一条就绪记录，内存布局与 struct kevent 一致
type Event sys.Kevent

func (e Event) Token() Token {
	return Token(e.Udata)
}

func (e Event) IsReadable() bool {
	return e.Filter == sys.EVFILT_READ
}

// IsReadClosed 对端已关闭写方向，缓冲区内可能仍有数据
func (e Event) IsReadClosed() bool {
	return e.Flags&sys.EV_EOF != 0
}

func (e Event) IsError() bool {
	return e.Flags&sys.EV_ERROR != 0
}

// backendState kqueue 的读事件以 EV_ONESHOT 注册，触发一次后即失效。
// 已上报的注册记在 rearm 中，在下一次 kevent 调用的 changelist 里重新挂载，
// 对调用方表现为与 epoll 相同的持久边缘触发语义。
type backendState struct {
	rearm []sys.Kevent
}

func openChannel() (int, error) {
	kq, err := sys.Kqueue()
	if err != nil {
		return -1, os.NewSyscallError("kqueue", err)
	}
	return kq, nil
}

func closeChannel(fd int) error {
	return sys.Close(fd)
}

func (r *Registry) add(fd int, token Token, interest Interest) error {
	return r.submit(toReadChange(fd, token))
}

func (r *Registry) modify(fd int, token Token, interest Interest) error {
	// EV_ADD 作用于已存在的 knote 时即为修改
	r.dropRearm(fd)
	return r.submit(toReadChange(fd, token))
}

func (r *Registry) remove(fd int) error {
	r.dropRearm(fd)
	err := r.submit(sys.Kevent{
		Ident:  uint64(fd),
		Filter: sys.EVFILT_READ,
		Flags:  sys.EV_DELETE,
	})
	// 一次性事件触发后 knote 已被内核删除
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (r *Registry) submit(change sys.Kevent) error {
	_, err := sys.Kevent(r.fd, []sys.Kevent{change}, nil, nil)
	return err
}

func (r *Registry) wait(events []Event, timeout time.Duration) (int, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}

	raw := unsafe.Slice((*sys.Kevent)(unsafe.Pointer(&events[0])), len(events))
	n, err := sys.Kevent(r.fd, r.state.rearm, raw, ts)
	// changelist 在扫描事件之前已被内核处理，无论成功与否都不再重复提交
	r.state.rearm = r.state.rearm[:0]
	if err != nil {
		// 被信号打断按超时处理，由调用方决定是否再次 Wait
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, os.NewSyscallError("kevent", err)
	}

	kept := 0
	for i := 0; i < n; i++ {
		ev := events[i]
		if ev.IsError() {
			// changelist 中某条变更失败，通常是调用方在注册期间关闭了 fd
			log.Warn("kevent change rejected",
				zap.Uint64(consts.LogFieldFd, ev.Ident),
				zap.Uint64(consts.LogFieldToken, ev.Udata),
				zap.Error(syscall.Errno(ev.Data)))
			continue
		}
		if !ev.IsReadClosed() {
			if token, exist := r.fds[int(ev.Ident)]; exist && token == ev.Token() {
				r.state.rearm = append(r.state.rearm, toReadChange(int(ev.Ident), token))
			}
		}
		events[kept] = ev
		kept++
	}
	return kept, nil
}

func (r *Registry) dropRearm(fd int) {
	kept := r.state.rearm[:0]
	for _, change := range r.state.rearm {
		if change.Ident != uint64(fd) {
			kept = append(kept, change)
		}
	}
	r.state.rearm = kept
}

func toReadChange(fd int, token Token) sys.Kevent {
	return sys.Kevent{
		Ident:  uint64(fd),
		Filter: sys.EVFILT_READ,
		Flags:  sys.EV_ADD | sys.EV_ENABLE | sys.EV_ONESHOT,
		Udata:  uint64(token),
	}
}
