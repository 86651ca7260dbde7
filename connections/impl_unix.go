//go:build linux || darwin || freebsd

package connections

import (
	"net"
	"os"
	"time"

	"github.com/Trinoooo/eventqueue/errs"
	"golang.org/x/sys/unix"
)

const maxSoMaxConn = 500

type Connection struct {
	fd         int
	localAddr  unix.Sockaddr
	remoteAddr unix.Sockaddr
}

func (c *Connection) Read(buf []byte) (int, error) {
	n, err := unix.Read(c.fd, buf)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (c *Connection) Write(buf []byte) (int, error) {
	n, err := unix.Write(c.fd, buf)
	if n < 0 {
		n = 0
	}
	return n, err
}

// Close 重复调用直接返回，避免误关已被复用的 fd
func (c *Connection) Close() error {
	if c.fd < 0 {
		return nil
	}
	fd := c.fd
	c.fd = -1
	return unix.Close(fd)
}

func (c *Connection) RemoteAddr() net.Addr {
	return toNetAddr(c.remoteAddr)
}

func (c *Connection) LocalAddr() net.Addr {
	return toNetAddr(c.localAddr)
}

func (c *Connection) RawFd() int {
	return c.fd
}

// SetNonblock 切换 fd 的阻塞模式
func (c *Connection) SetNonblock(nonblocking bool) error {
	return unix.SetNonblock(c.fd, nonblocking)
}

// SetReadTimeout 阻塞读的超时时间，超时后 Read 返回 EAGAIN
func (c *Connection) SetReadTimeout(timeout time.Duration) error {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	return unix.SetsockoptTimeval(c.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// Dial 阻塞地建立 TCP 连接，连接成功后切换为非阻塞模式
func Dial(host string, port int) (*Connection, error) {
	raddr, err := toSockaddr(host, port)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errs.NewDialErr().WithErr(os.NewSyscallError("socket", err))
	}
	unix.CloseOnExec(fd)

	for {
		err = unix.Connect(fd, raddr)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		_ = unix.Close(fd)
		return nil, errs.NewDialErr().WithErr(os.NewSyscallError("connect", err))
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, errs.NewDialErr().WithErr(os.NewSyscallError("setnonblock", err))
	}

	laddr, _ := unix.Getsockname(fd)
	return &Connection{
		fd:         fd,
		localAddr:  laddr,
		remoteAddr: raddr,
	}, nil
}

// Pair 创建一对互联的本地连接，两端均为非阻塞模式
func Pair() (*Connection, *Connection, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, errs.NewDialErr().WithErr(os.NewSyscallError("socketpair", err))
	}

	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err = unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return nil, nil, errs.NewDialErr().WithErr(os.NewSyscallError("setnonblock", err))
		}
	}

	return &Connection{fd: fds[0]}, &Connection{fd: fds[1]}, nil
}

// Listener 非阻塞的监听 socket，Accept 得到的连接为阻塞模式
type Listener struct {
	conn *Connection
}

func (l *Listener) Accept() (IConnection, error) {
	socket, sa, err := unix.Accept(l.conn.fd)
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(socket)

	// bsd 上 accept 出来的 fd 会继承监听 socket 的 O_NONBLOCK
	if err = unix.SetNonblock(socket, false); err != nil {
		_ = unix.Close(socket)
		return nil, err
	}

	return &Connection{
		fd:         socket,
		localAddr:  l.conn.localAddr,
		remoteAddr: sa,
	}, nil
}

func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

func (l *Listener) RawFd() int {
	return l.conn.fd
}

func (l *Listener) Close() error {
	return l.conn.Close()
}

// Listen 监听 host:port，port 为 0 时由内核分配端口
func Listen(host string, port int) (*Listener, error) {
	laddr, err := toSockaddr(host, port)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errs.NewListenErr().WithErr(os.NewSyscallError("socket", err))
	}
	unix.CloseOnExec(fd)

	fail := func(op string, err error) (*Listener, error) {
		_ = unix.Close(fd)
		return nil, errs.NewListenErr().WithErr(os.NewSyscallError(op, err))
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt", err)
	}
	if err = unix.Bind(fd, laddr); err != nil {
		return fail("bind", err)
	}
	if err = unix.Listen(fd, maxSoMaxConn); err != nil {
		return fail("listen", err)
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		return fail("setnonblock", err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}

	return &Listener{
		conn: &Connection{
			fd:        fd,
			localAddr: bound,
		},
	}, nil
}

func toSockaddr(host string, port int) (*unix.SockaddrInet4, error) {
	if port < 0 || port > 65535 {
		return nil, errs.NewInvalidParamErr()
	}

	ip := net.ParseIP(host)
	if ip == nil {
		addrs, err := net.LookupIP(host)
		if err != nil {
			return nil, errs.NewDialErr().WithErr(err)
		}
		for _, addr := range addrs {
			if addr.To4() != nil {
				ip = addr
				break
			}
		}
	}
	if ip == nil || ip.To4() == nil {
		return nil, errs.NewInvalidParamErr()
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip.To4())
	return sa, nil
}

func toNetAddr(sa unix.Sockaddr) net.Addr {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{
			IP:   net.IPv4(addr.Addr[0], addr.Addr[1], addr.Addr[2], addr.Addr[3]),
			Port: addr.Port,
		}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{
			IP:   net.IP(addr.Addr[:]),
			Port: addr.Port,
		}
	case *unix.SockaddrUnix:
		return &net.UnixAddr{Name: addr.Name, Net: "unix"}
	}
	return nil
}
