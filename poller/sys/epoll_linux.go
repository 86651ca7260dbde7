//go:build linux

package sys

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	EPOLL_CTL_ADD = unix.EPOLL_CTL_ADD
	EPOLL_CTL_MOD = unix.EPOLL_CTL_MOD
	EPOLL_CTL_DEL = unix.EPOLL_CTL_DEL
	EPOLL_CLOEXEC = unix.EPOLL_CLOEXEC

	EPOLLIN    = unix.EPOLLIN
	EPOLLERR   = unix.EPOLLERR
	EPOLLHUP   = unix.EPOLLHUP
	EPOLLRDHUP = unix.EPOLLRDHUP
	EPOLLET    = unix.EPOLLET
)

// EpollCreate1 epoll_create1(2)
func EpollCreate1(flags int) (int, error) {
	r1, _, e := unix.RawSyscall(unix.SYS_EPOLL_CREATE1, uintptr(flags), 0, 0)
	if e != 0 {
		return -1, errnoErr(e)
	}
	return int(r1), nil
}

// EpollCtl epoll_ctl(2). ev may be nil for EPOLL_CTL_DEL.
func EpollCtl(epfd, op, fd int, ev *EpollEvent) error {
	_, _, e := unix.RawSyscall6(
		unix.SYS_EPOLL_CTL,
		uintptr(epfd),
		uintptr(op),
		uintptr(fd),
		uintptr(unsafe.Pointer(ev)),
		0, 0)
	return errnoErr(e)
}

// EpollWait blocks in epoll_pwait(2) with a nil signal mask, which is the
// only wait entry point present on every linux architecture.
// msec < 0 blocks indefinitely.
func EpollWait(epfd int, events []EpollEvent, msec int) (int, error) {
	var (
		ev    unsafe.Pointer
		_zero uintptr
	)
	if len(events) > 0 {
		ev = unsafe.Pointer(&events[0])
	} else {
		ev = unsafe.Pointer(&_zero)
	}
	r1, _, e := unix.Syscall6(
		unix.SYS_EPOLL_PWAIT,
		uintptr(epfd),
		uintptr(ev),
		uintptr(len(events)),
		uintptr(msec),
		0, 0)
	if e != 0 {
		return 0, errnoErr(e)
	}
	return int(r1), nil
}

func Close(fd int) error {
	return unix.Close(fd)
}
