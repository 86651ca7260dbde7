package connections

import (
	"errors"
	"io"
	"net"
	"syscall"
	"time"
)

type IListener interface {
	Accept() (IConnection, error)
	Addr() net.Addr
	RawFd() int
	io.Closer
}

// IConnection 基于原始 fd 的字节流连接。
// Read 在对端关闭时返回 (0, nil)，非阻塞模式下无数据时返回 EAGAIN。
type IConnection interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
	LocalAddr() net.Addr
	RawFd() int
	SetReadTimeout(timeout time.Duration) error
}

// IsWouldBlock 非阻塞 fd 上暂时没有数据可读（或缓冲区已满）
func IsWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

// IsInterrupted 系统调用被信号打断，可以直接重试
func IsInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

// WriteAll 写完 buf 为止，只用于阻塞连接
func WriteAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			if IsInterrupted(err) {
				continue
			}
			return err
		}
		buf = buf[n:]
	}
	return nil
}
