//go:build !linux && !darwin && !(freebsd && (amd64 || arm64))

package poller

import (
	"time"

	"github.com/Trinoooo/eventqueue/errs"
)

// Event 不支持的平台上永远不会产生事件
type Event struct {
	token Token
}

func (e Event) Token() Token { return e.token }
func (e Event) IsReadable() bool { return false }
func (e Event) IsReadClosed() bool { return false }
func (e Event) IsError() bool { return false }

type backendState struct{}

func openChannel() (int, error) {
	return -1, errs.NewUnsupportedErr()
}

func closeChannel(int) error {
	return errs.NewUnsupportedErr()
}

func (r *Registry) add(int, Token, Interest) error {
	return errs.NewUnsupportedErr()
}

func (r *Registry) modify(int, Token, Interest) error {
	return errs.NewUnsupportedErr()
}

func (r *Registry) remove(int) error {
	return errs.NewUnsupportedErr()
}

func (r *Registry) wait([]Event, time.Duration) (int, error) {
	return 0, errs.NewUnsupportedErr()
}
