package dispatch

import (
	"io"

	"github.com/Trinoooo/eventqueue/poller"
)

// Conn 事件循环需要的最小连接能力：非阻塞读，以及可以注册到 poller 的 fd
type Conn interface {
	io.Reader
	RawFd() int
}

type entry struct {
	conn     Conn
	complete bool
}

// Table token 到连接的映射，token 即连接加入的序号。
// 连接只会从 pending 变成 complete，不会反向。
type Table struct {
	entries []entry
	pending int
}

func NewTable() *Table {
	return &Table{}
}

// Add 追加一个 pending 状态的连接，返回分配给它的 token
func (t *Table) Add(conn Conn) poller.Token {
	t.entries = append(t.entries, entry{conn: conn})
	t.pending++
	return poller.Token(len(t.entries) - 1)
}

func (t *Table) Lookup(token poller.Token) (Conn, bool) {
	if token >= poller.Token(len(t.entries)) {
		return nil, false
	}
	return t.entries[token].conn, true
}

func (t *Table) IsComplete(token poller.Token) bool {
	if token >= poller.Token(len(t.entries)) {
		return false
	}
	return t.entries[token].complete
}

// MarkComplete 只有第一次标记成功返回 true，未知 token 返回 false
func (t *Table) MarkComplete(token poller.Token) bool {
	if token >= poller.Token(len(t.entries)) || t.entries[token].complete {
		return false
	}
	t.entries[token].complete = true
	t.pending--
	return true
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) Pending() int {
	return t.pending
}

func (t *Table) AllComplete() bool {
	return t.pending == 0
}

// Each 按 token 顺序遍历，fn 返回 false 时停止
func (t *Table) Each(fn func(token poller.Token, conn Conn, complete bool) bool) {
	for i := range t.entries {
		if !fn(poller.Token(i), t.entries[i].conn, t.entries[i].complete) {
			return
		}
	}
}
