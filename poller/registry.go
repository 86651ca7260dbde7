package poller

import (
	"os"
	"runtime"
	"syscall"

	"github.com/Trinoooo/eventqueue/consts"
	"github.com/Trinoooo/eventqueue/errs"
	"github.com/Trinoooo/eventqueue/logs"
	"go.uber.org/zap"
)

var log = logs.Named("poller")

// Registry 独占一个内核通知通道（epoll fd / kqueue fd）。
// 只允许一个线程使用，内部不加锁。
type Registry struct {
	fd     int
	tokens map[Token]int // token -> 被监听的 fd
	fds    map[int]Token // fd -> token
	closed bool
	state  backendState
}

func newRegistry() (*Registry, error) {
	fd, err := openChannel()
	if err != nil {
		e := errs.NewOsResourceErr().WithErr(err)
		log.Error(e.Error())
		return nil, e
	}

	r := &Registry{
		fd:     fd,
		tokens: make(map[Token]int),
		fds:    make(map[int]Token),
	}
	// 兜底：调用方忘记 Close 时由 GC 释放通道
	runtime.SetFinalizer(r, (*Registry).Close)
	log.Debug("notification channel created", zap.Int(consts.LogFieldFd, fd))
	return r, nil
}

// Register 以 token 和 interest 将 src 的 fd 加入监听集合。
// token 或 fd 已被注册时返回携带 EEXIST 的 OsResourceErr，不会覆盖原有注册。
func (r *Registry) Register(src Source, token Token, interest Interest) error {
	if err := r.check(src, interest); err != nil {
		return err
	}

	fd := src.RawFd()
	if _, exist := r.tokens[token]; exist {
		return r.reject("register", syscall.EEXIST, fd, token)
	}
	if _, exist := r.fds[fd]; exist {
		return r.reject("register", syscall.EEXIST, fd, token)
	}

	err := r.add(fd, token, interest)
	runtime.KeepAlive(r)
	if err != nil {
		return r.reject("register", err, fd, token)
	}

	r.tokens[token] = fd
	r.fds[fd] = token
	log.Debug("source registered",
		zap.Int(consts.LogFieldFd, fd),
		zap.Uint64(consts.LogFieldToken, uint64(token)),
		zap.Stringer(consts.LogFieldValue, interest))
	return nil
}

// Reregister 修改已注册 fd 的 token 与 interest
func (r *Registry) Reregister(src Source, token Token, interest Interest) error {
	if err := r.check(src, interest); err != nil {
		return err
	}

	fd := src.RawFd()
	old, exist := r.fds[fd]
	if !exist {
		return r.reject("reregister", syscall.ENOENT, fd, token)
	}
	if owner, exist := r.tokens[token]; exist && owner != fd {
		return r.reject("reregister", syscall.EEXIST, fd, token)
	}

	err := r.modify(fd, token, interest)
	runtime.KeepAlive(r)
	if err != nil {
		return r.reject("reregister", err, fd, token)
	}

	delete(r.tokens, old)
	r.tokens[token] = fd
	r.fds[fd] = token
	return nil
}

// Deregister 将 src 的 fd 移出监听集合，之后不会再有该 fd 的事件
func (r *Registry) Deregister(src Source) error {
	if r.closed {
		return errs.NewChannelClosedErr()
	}
	if src == nil {
		return errs.NewInvalidParamErr()
	}

	fd := src.RawFd()
	token, exist := r.fds[fd]
	if !exist {
		return r.reject("deregister", syscall.ENOENT, fd, 0)
	}

	err := r.remove(fd)
	runtime.KeepAlive(r)
	if err != nil {
		return r.reject("deregister", err, fd, token)
	}

	delete(r.fds, fd)
	delete(r.tokens, token)
	log.Debug("source deregistered", zap.Int(consts.LogFieldFd, fd), zap.Uint64(consts.LogFieldToken, uint64(token)))
	return nil
}

// Len 当前注册的数量
func (r *Registry) Len() int {
	return len(r.tokens)
}

// Close 释放通知通道，只会真正执行一次。
// 释放失败会记录日志并返回，但通道仍视为已关闭，不重试。
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	runtime.SetFinalizer(r, nil)

	if err := closeChannel(r.fd); err != nil {
		e := errs.NewOsResourceErr().WithErr(os.NewSyscallError("close", err))
		log.Error("release notification channel failed", zap.Int(consts.LogFieldFd, r.fd), zap.Error(e))
		return e
	}
	log.Debug("notification channel released", zap.Int(consts.LogFieldFd, r.fd))
	return nil
}

func (r *Registry) check(src Source, interest Interest) error {
	if r.closed {
		return errs.NewChannelClosedErr()
	}
	if src == nil || !interest.IsReadable() {
		e := errs.NewInvalidParamErr()
		log.Error(e.Error(), zap.String(consts.LogFieldParams, "interest"), zap.Stringer(consts.LogFieldValue, interest))
		return e
	}
	return nil
}

func (r *Registry) reject(op string, err error, fd int, token Token) error {
	e := errs.NewOsResourceErr().WithErr(os.NewSyscallError(op, err))
	log.Warn(e.Error(), zap.Int(consts.LogFieldFd, fd), zap.Uint64(consts.LogFieldToken, uint64(token)))
	return e
}
