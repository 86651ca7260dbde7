//go:build darwin || (freebsd && (amd64 || arm64))

package sys

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	EVFILT_READ = unix.EVFILT_READ

	EV_ADD     = unix.EV_ADD
	EV_DELETE  = unix.EV_DELETE
	EV_ENABLE  = unix.EV_ENABLE
	EV_ONESHOT = unix.EV_ONESHOT
	EV_ERROR   = unix.EV_ERROR
	EV_EOF     = unix.EV_EOF
)

// compile time layout checks against x/sys generated definitions
var (
	_ [unsafe.Sizeof(Kevent{}) - unsafe.Sizeof(unix.Kevent_t{})]struct{}
	_ [unsafe.Sizeof(unix.Kevent_t{}) - unsafe.Sizeof(Kevent{})]struct{}
	_ [unsafe.Offsetof(Kevent{}.Filter) - unsafe.Offsetof(unix.Kevent_t{}.Filter)]struct{}
	_ [unsafe.Offsetof(unix.Kevent_t{}.Filter) - unsafe.Offsetof(Kevent{}.Filter)]struct{}
	_ [unsafe.Offsetof(Kevent{}.Flags) - unsafe.Offsetof(unix.Kevent_t{}.Flags)]struct{}
	_ [unsafe.Offsetof(unix.Kevent_t{}.Flags) - unsafe.Offsetof(Kevent{}.Flags)]struct{}
	_ [unsafe.Offsetof(Kevent{}.Data) - unsafe.Offsetof(unix.Kevent_t{}.Data)]struct{}
	_ [unsafe.Offsetof(unix.Kevent_t{}.Data) - unsafe.Offsetof(Kevent{}.Data)]struct{}
	_ [unsafe.Offsetof(Kevent{}.Udata) - unsafe.Offsetof(unix.Kevent_t{}.Udata)]struct{}
	_ [unsafe.Offsetof(unix.Kevent_t{}.Udata) - unsafe.Offsetof(Kevent{}.Udata)]struct{}
)

// Kqueue kqueue(2), close-on-exec.
func Kqueue() (int, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(kq)
	return kq, nil
}

// Kevent kevent(2): submits changes and collects up to len(events) ready
// records in one call. A nil timeout blocks indefinitely.
func Kevent(kq int, changes, events []Kevent, timeout *unix.Timespec) (int, error) {
	return unix.Kevent(kq, toKevent_t(changes), toKevent_t(events), timeout)
}

func Close(fd int) error {
	return unix.Close(fd)
}

// toKevent_t reinterprets the records for x/sys. Kevent and unix.Kevent_t share
// one layout, only the Go type of Udata differs.
func toKevent_t(kevs []Kevent) []unix.Kevent_t {
	if len(kevs) == 0 {
		return nil
	}
	return unsafe.Slice((*unix.Kevent_t)(unsafe.Pointer(&kevs[0])), len(kevs))
}
