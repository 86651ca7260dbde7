//go:build freebsd && (amd64 || arm64)

package sys

// Kevent struct kevent for the FreeBSD 12+ ABI, with the ext[4] extension.
type Kevent struct {
	Ident  uint64
	Filter int16
	Flags  uint16
	Fflags uint32
	Data   int64
	Udata  uint64
	Ext    [4]uint64
}
