//go:build linux && !amd64 && !386

package sys

// EpollEvent struct epoll_event with natural alignment: 4 bytes of padding
// after events, 16 bytes in total.
type EpollEvent struct {
	Events uint32
	_      uint32
	Data   [8]byte // epoll_data_t
}
