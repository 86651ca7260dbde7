//go:build linux && (amd64 || 386)

package sys

// EpollEvent struct epoll_event. The kernel declares it packed on x86, so
// data starts right after events and the record is 12 bytes.
type EpollEvent struct {
	Events uint32
	Data   [8]byte // unaligned epoll_data_t
}
