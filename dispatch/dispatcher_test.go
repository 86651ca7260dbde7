package dispatch

import (
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/Trinoooo/eventqueue/errs"
	"github.com/Trinoooo/eventqueue/poller"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	data string
	err  error
}

// scriptedConn 按脚本返回每一次 Read 的结果，脚本耗尽后一直返回 EAGAIN
type scriptedConn struct {
	steps []step
	reads int
}

func (c *scriptedConn) Read(buf []byte) (int, error) {
	if c.reads >= len(c.steps) {
		c.reads++
		return 0, syscall.EAGAIN
	}
	s := c.steps[c.reads]
	c.reads++
	return copy(buf, s.data), s.err
}

func (c *scriptedConn) RawFd() int {
	return -1
}

type recorder struct {
	chunks map[poller.Token][]string
}

func (r *recorder) handle(token poller.Token, data []byte) {
	if r.chunks == nil {
		r.chunks = make(map[poller.Token][]string)
	}
	r.chunks[token] = append(r.chunks[token], string(data))
}

func newTestDispatcher(rec *recorder, opts ...Option) *Dispatcher {
	return New(nil, NewTable(), append([]Option{WithHandler(rec.handle)}, opts...)...)
}

func TestDrainUntilWouldBlock(t *testing.T) {
	rec := &recorder{}
	d := newTestDispatcher(rec)
	conn := &scriptedConn{steps: []step{{data: "ab"}, {data: "cd"}}}

	done, err := d.drain(3, conn)
	assert.Nil(t, err)
	assert.False(t, done)
	assert.Equal(t, []string{"ab", "cd"}, rec.chunks[3])
	assert.Equal(t, 3, conn.reads)
	assert.Equal(t, float64(1), testutil.ToFloat64(d.metrics.WouldBlockCounter))
	assert.Equal(t, float64(4), testutil.ToFloat64(d.metrics.ReadBytesCounter))
}

func TestDrainUntilEOF(t *testing.T) {
	rec := &recorder{}
	d := newTestDispatcher(rec)

	done, err := d.drain(0, &scriptedConn{steps: []step{{data: "x"}, {data: ""}}})
	assert.Nil(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"x"}, rec.chunks[0])

	// io.Reader 风格的 EOF 同样视为完成
	done, err = d.drain(1, &scriptedConn{steps: []step{{data: "tail", err: io.EOF}}})
	assert.Nil(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"tail"}, rec.chunks[1])
}

func TestDrainRetriesInterrupted(t *testing.T) {
	rec := &recorder{}
	d := newTestDispatcher(rec)
	conn := &scriptedConn{steps: []step{{err: syscall.EINTR}, {data: "y"}, {err: syscall.EINTR}}}

	done, err := d.drain(0, conn)
	assert.Nil(t, err)
	assert.False(t, done)
	assert.Equal(t, []string{"y"}, rec.chunks[0])
	assert.Equal(t, 4, conn.reads)
}

func TestDrainError(t *testing.T) {
	rec := &recorder{}
	d := newTestDispatcher(rec)

	done, err := d.drain(0, &scriptedConn{steps: []step{{data: "z"}, {err: syscall.ECONNRESET}}})
	assert.False(t, done)
	assert.Equal(t, int64(errs.IoErrCode), errs.GetCode(err))
	errno, ok := errs.Errno(err)
	assert.True(t, ok)
	assert.Equal(t, syscall.ECONNRESET, errno)
	assert.Equal(t, []string{"z"}, rec.chunks[0])
}

// TestDrainKeepsDataReturnedWithError 同一次 Read 返回的数据和错误，数据先交付
func TestDrainKeepsDataReturnedWithError(t *testing.T) {
	rec := &recorder{}
	d := newTestDispatcher(rec)

	done, err := d.drain(0, &scriptedConn{steps: []step{{data: "ab", err: syscall.EAGAIN}}})
	assert.Nil(t, err)
	assert.False(t, done)
	assert.Equal(t, []string{"ab"}, rec.chunks[0])

	done, err = d.drain(1, &scriptedConn{steps: []step{{data: "cd", err: syscall.ECONNRESET}}})
	assert.False(t, done)
	assert.Equal(t, int64(errs.IoErrCode), errs.GetCode(err))
	assert.Equal(t, []string{"cd"}, rec.chunks[1])

	done, err = d.drain(2, &scriptedConn{steps: []step{{data: "ef", err: syscall.EINTR}, {data: "gh"}}})
	assert.Nil(t, err)
	assert.False(t, done)
	assert.Equal(t, []string{"ef", "gh"}, rec.chunks[2])
	assert.Equal(t, float64(8), testutil.ToFloat64(d.metrics.ReadBytesCounter))
}

func TestReadBufferSize(t *testing.T) {
	rec := &recorder{}
	d := newTestDispatcher(rec, WithReadBufferSize(2))
	conn := nopConn{Reader: strings.NewReader("hello"), fd: -1}

	done, err := d.drain(0, conn)
	assert.Nil(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"he", "ll", "o"}, rec.chunks[0])
}

func TestOptions(t *testing.T) {
	d := New(nil, NewTable(), WithCapacity(32), WithTimeout(0), WithReadBufferSize(-1))
	assert.Equal(t, 32, cap(d.events))
	assert.Equal(t, poller.Infinite, d.timeout)
	assert.Equal(t, defaultReadBufferSize, len(d.buf))
	require.NotNil(t, d.metrics)
}
