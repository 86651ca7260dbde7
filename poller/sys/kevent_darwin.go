//go:build darwin

package sys

// Kevent struct kevent from <sys/event.h> (not kevent64_s). Udata is kept as
// an integer: it only ever carries a token, never a Go pointer.
type Kevent struct {
	Ident  uint64
	Filter int16
	Flags  uint16
	Fflags uint32
	Data   int64
	Udata  uint64
}
