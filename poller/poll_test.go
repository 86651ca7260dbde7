//go:build linux || darwin || (freebsd && (amd64 || arm64))

package poller

import (
	"fmt"
	"os"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/Trinoooo/eventqueue/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMain(m *testing.M) {
	_ = os.Setenv("EVENTQUEUE_ENV", "test")
	os.Exit(m.Run())
}

type rawSource int

func (s rawSource) RawFd() int {
	return int(s)
}

// newPair 返回非阻塞 socketpair 的读端与写端
func newPair(t *testing.T) (rawSource, rawSource) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.Nil(t, err)
	require.Nil(t, unix.SetNonblock(fds[0], true))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return rawSource(fds[0]), rawSource(fds[1])
}

func newPoll(t *testing.T) *Poll {
	p, err := NewPoll()
	require.Nil(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func send(t *testing.T, w rawSource, data string) {
	_, err := unix.Write(int(w), []byte(data))
	require.Nil(t, err)
}

// collect 反复 Wait，直到收齐 want 个不同的 token 或超时
func collect(t *testing.T, p *Poll, events *Events, want int) map[Token]int {
	seen := make(map[Token]int)
	deadline := time.Now().Add(2 * time.Second)
	for len(seen) < want && time.Now().Before(deadline) {
		require.Nil(t, p.Wait(events, 100*time.Millisecond))
		require.LessOrEqual(t, len(*events), cap(*events))
		for _, ev := range *events {
			seen[ev.Token()]++
		}
	}
	return seen
}

func TestWaitTimeout(t *testing.T) {
	p := newPoll(t)
	r, _ := newPair(t)
	require.Nil(t, p.Registry().Register(r, 0, Readable))

	events := NewEvents(8)
	start := time.Now()
	err := p.Wait(&events, 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.Nil(t, err)
	assert.Len(t, events, 0)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestWaitZeroTimeoutReturnsImmediately(t *testing.T) {
	p := newPoll(t)
	events := NewEvents(1)
	start := time.Now()
	assert.Nil(t, p.Wait(&events, 0))
	assert.Len(t, events, 0)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitReadable(t *testing.T) {
	p := newPoll(t)
	r, w := newPair(t)
	require.Nil(t, p.Registry().Register(r, 42, Readable))

	send(t, w, "hello")
	events := NewEvents(4)
	require.Nil(t, p.Wait(&events, time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, Token(42), events[0].Token())
	assert.True(t, events[0].IsReadable())
	assert.False(t, events[0].IsError())
}

func TestWaitReadClosed(t *testing.T) {
	p := newPoll(t)
	r, w := newPair(t)
	require.Nil(t, p.Registry().Register(r, 7, Readable))

	require.Nil(t, unix.Shutdown(int(w), unix.SHUT_WR))
	events := NewEvents(4)
	require.Nil(t, p.Wait(&events, time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, Token(7), events[0].Token())
	assert.True(t, events[0].IsReadClosed())
}

// TestWaitBoundedByCapacity 单次 Wait 返回的事件数不超过缓冲区容量，未返回的事件留给下一次
func TestWaitBoundedByCapacity(t *testing.T) {
	p := newPoll(t)
	const num = 5
	for i := 0; i < num; i++ {
		r, w := newPair(t)
		require.Nil(t, p.Registry().Register(r, Token(i), Readable))
		send(t, w, "x")
	}

	events := NewEvents(2)
	seen := collect(t, p, &events, num)
	assert.Len(t, seen, num)
}

// TestTokenRoundTrip 注册时的 token 与事件中取回的 token 完全一致
func TestTokenRoundTrip(t *testing.T) {
	p := newPoll(t)
	const num = 16
	readers := make(map[Token]rawSource, num)
	for i := 0; i < num; i++ {
		r, w := newPair(t)
		token := Token(uint64(1)<<40 + uint64(i)*7919)
		require.Nil(t, p.Registry().Register(r, token, Readable))
		readers[token] = r
		send(t, w, fmt.Sprintf("payload-%d", token))
	}

	events := NewEvents(num)
	seen := collect(t, p, &events, num)
	require.Len(t, seen, num)

	buf := make([]byte, 64)
	for token := range seen {
		r, ok := readers[token]
		require.True(t, ok, "unexpected token %d", token)
		n, err := unix.Read(int(r), buf)
		require.Nil(t, err)
		assert.Equal(t, fmt.Sprintf("payload-%d", token), string(buf[:n]))
	}
}

func TestRegisterDuplicateToken(t *testing.T) {
	p := newPoll(t)
	r1, w1 := newPair(t)
	r2, _ := newPair(t)
	require.Nil(t, p.Registry().Register(r1, 1, Readable))

	err := p.Registry().Register(r2, 1, Readable)
	require.NotNil(t, err)
	assert.Equal(t, int64(errs.OsResourceErrCode), errs.GetCode(err))
	errno, ok := errs.Errno(err)
	assert.True(t, ok)
	assert.Equal(t, syscall.EEXIST, errno)

	// 原有注册不受影响
	send(t, w1, "still here")
	events := NewEvents(4)
	require.Nil(t, p.Wait(&events, time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, Token(1), events[0].Token())
	assert.Equal(t, 1, p.Registry().Len())
}

func TestRegisterDuplicateFd(t *testing.T) {
	p := newPoll(t)
	r, _ := newPair(t)
	require.Nil(t, p.Registry().Register(r, 1, Readable))

	err := p.Registry().Register(r, 2, Readable)
	assert.Equal(t, int64(errs.OsResourceErrCode), errs.GetCode(err))
	errno, _ := errs.Errno(err)
	assert.Equal(t, syscall.EEXIST, errno)
}

func TestRegisterInvalid(t *testing.T) {
	p := newPoll(t)
	r, _ := newPair(t)

	err := p.Registry().Register(r, 1, Interest(0))
	assert.Equal(t, int64(errs.InvalidParamErrCode), errs.GetCode(err))

	err = p.Registry().Register(nil, 1, Readable)
	assert.Equal(t, int64(errs.InvalidParamErrCode), errs.GetCode(err))

	// 非法 fd 由内核拒绝
	err = p.Registry().Register(rawSource(-1), 1, Readable)
	assert.Equal(t, int64(errs.OsResourceErrCode), errs.GetCode(err))
	assert.Equal(t, 0, p.Registry().Len())
}

func TestReregister(t *testing.T) {
	p := newPoll(t)
	r, w := newPair(t)
	other, _ := newPair(t)
	require.Nil(t, p.Registry().Register(r, 1, Readable))
	require.Nil(t, p.Registry().Register(other, 3, Readable))

	require.Nil(t, p.Registry().Reregister(r, 2, Readable))

	err := p.Registry().Reregister(r, 3, Readable)
	assert.Equal(t, int64(errs.OsResourceErrCode), errs.GetCode(err))

	unknown, _ := newPair(t)
	err = p.Registry().Reregister(unknown, 9, Readable)
	errno, _ := errs.Errno(err)
	assert.Equal(t, syscall.ENOENT, errno)

	send(t, w, "x")
	events := NewEvents(4)
	require.Nil(t, p.Wait(&events, time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, Token(2), events[0].Token())

	// token 1 已释放，可以再次使用
	require.Nil(t, p.Registry().Register(unknown, 1, Readable))
}

func TestDeregister(t *testing.T) {
	p := newPoll(t)
	r, w := newPair(t)
	require.Nil(t, p.Registry().Register(r, 1, Readable))
	require.Nil(t, p.Registry().Deregister(r))
	assert.Equal(t, 0, p.Registry().Len())

	send(t, w, "nobody listens")
	events := NewEvents(4)
	require.Nil(t, p.Wait(&events, 50*time.Millisecond))
	assert.Len(t, events, 0)

	err := p.Registry().Deregister(r)
	errno, _ := errs.Errno(err)
	assert.Equal(t, syscall.ENOENT, errno)

	// 注销后 token 可以复用
	require.Nil(t, p.Registry().Register(r, 1, Readable))
}

// TestDeregisterAfterDelivery 事件上报后再注销，之后不再上报
func TestDeregisterAfterDelivery(t *testing.T) {
	p := newPoll(t)
	r, w := newPair(t)
	require.Nil(t, p.Registry().Register(r, 5, Readable))

	send(t, w, "once")
	events := NewEvents(4)
	require.Nil(t, p.Wait(&events, time.Second))
	require.Len(t, events, 1)

	require.Nil(t, p.Registry().Deregister(r))
	send(t, w, "twice")
	require.Nil(t, p.Wait(&events, 50*time.Millisecond))
	assert.Len(t, events, 0)
}

// TestEdgeAfterDrain 读空之后的新数据会再次触发通知
func TestEdgeAfterDrain(t *testing.T) {
	p := newPoll(t)
	r, w := newPair(t)
	require.Nil(t, p.Registry().Register(r, 9, Readable))
	events := NewEvents(4)
	buf := make([]byte, 16)

	for round := 0; round < 3; round++ {
		send(t, w, "data")
		require.Nil(t, p.Wait(&events, time.Second))
		require.Len(t, events, 1)
		assert.Equal(t, Token(9), events[0].Token())

		for {
			_, err := unix.Read(int(r), buf)
			if err == unix.EAGAIN {
				break
			}
			require.Nil(t, err)
		}
	}
}

func TestWaitInvalidBuffer(t *testing.T) {
	p := newPoll(t)
	err := p.Wait(nil, 0)
	assert.Equal(t, int64(errs.InvalidParamErrCode), errs.GetCode(err))

	var events Events
	err = p.Wait(&events, 0)
	assert.Equal(t, int64(errs.InvalidParamErrCode), errs.GetCode(err))
}

func TestClose(t *testing.T) {
	p, err := NewPoll()
	require.Nil(t, err)
	r, _ := newPair(t)

	assert.Nil(t, p.Close())
	assert.Nil(t, p.Close())

	err = p.Registry().Register(r, 1, Readable)
	assert.Equal(t, int64(errs.ChannelClosedErrCode), errs.GetCode(err))
	events := NewEvents(1)
	err = p.Wait(&events, 0)
	assert.Equal(t, int64(errs.ChannelClosedErrCode), errs.GetCode(err))
}

func TestInterestString(t *testing.T) {
	assert.Equal(t, "READABLE", Readable.String())
	assert.Equal(t, "NONE", Interest(0).String())
}

// waitUnreferenced 调用方在 Wait 之后不再持有 Poll
func waitUnreferenced(w rawSource, r rawSource) (Events, error) {
	p, err := NewPoll()
	if err != nil {
		return nil, err
	}
	if err = p.Registry().Register(r, 3, Readable); err != nil {
		return nil, err
	}
	go func() {
		for i := 0; i < 5; i++ {
			runtime.GC()
			time.Sleep(10 * time.Millisecond)
		}
		_, _ = unix.Write(int(w), []byte("late"))
	}()
	events := NewEvents(1)
	err = p.Wait(&events, 2*time.Second)
	return events, err
}

// TestWaitSurvivesGC 阻塞在 Wait 中时 finalizer 不会关闭通知通道
func TestWaitSurvivesGC(t *testing.T) {
	r, w := newPair(t)
	events, err := waitUnreferenced(w, r)
	require.Nil(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, Token(3), events[0].Token())
	runtime.GC()
}
