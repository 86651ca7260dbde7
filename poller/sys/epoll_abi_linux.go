//go:build linux

package sys

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// compile time layout checks against x/sys generated definitions
var (
	_ [unsafe.Sizeof(EpollEvent{}) - unsafe.Sizeof(unix.EpollEvent{})]struct{}
	_ [unsafe.Sizeof(unix.EpollEvent{}) - unsafe.Sizeof(EpollEvent{})]struct{}
	_ [unsafe.Offsetof(EpollEvent{}.Data) - unsafe.Offsetof(unix.EpollEvent{}.Fd)]struct{}
	_ [unsafe.Offsetof(unix.EpollEvent{}.Fd) - unsafe.Offsetof(EpollEvent{}.Data)]struct{}
)

// SetData stores v in epoll_data_t as the kernel will hand it back: a u64 in
// host byte order.
func (ev *EpollEvent) SetData(v uint64) {
	binary.NativeEndian.PutUint64(ev.Data[:], v)
}

func (ev *EpollEvent) GetData() uint64 {
	return binary.NativeEndian.Uint64(ev.Data[:])
}
