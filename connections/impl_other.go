//go:build !linux && !darwin && !freebsd

package connections

import (
	"net"
	"time"

	"github.com/Trinoooo/eventqueue/errs"
)

type Connection struct{}

func (c *Connection) Read([]byte) (int, error) { return 0, errs.NewUnsupportedErr() }

func (c *Connection) Write([]byte) (int, error) { return 0, errs.NewUnsupportedErr() }

func (c *Connection) Close() error { return errs.NewUnsupportedErr() }

func (c *Connection) RemoteAddr() net.Addr { return nil }

func (c *Connection) LocalAddr() net.Addr { return nil }

func (c *Connection) RawFd() int { return -1 }

func (c *Connection) SetNonblock(bool) error { return errs.NewUnsupportedErr() }

func (c *Connection) SetReadTimeout(time.Duration) error { return errs.NewUnsupportedErr() }

type Listener struct{}

func (l *Listener) Accept() (IConnection, error) { return nil, errs.NewUnsupportedErr() }

func (l *Listener) Addr() net.Addr { return nil }

func (l *Listener) RawFd() int { return -1 }

func (l *Listener) Close() error { return errs.NewUnsupportedErr() }

func Dial(string, int) (*Connection, error) {
	return nil, errs.NewUnsupportedErr()
}

func Pair() (*Connection, *Connection, error) {
	return nil, nil, errs.NewUnsupportedErr()
}

func Listen(string, int) (*Listener, error) {
	return nil, errs.NewUnsupportedErr()
}
