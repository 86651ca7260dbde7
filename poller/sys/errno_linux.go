//go:build linux

package sys

import "golang.org/x/sys/unix"

// errnoErr turns the errno of a failed call into an error, nil for 0.
// The returned value is always a unix.Errno so callers can match it with
// errors.Is.
func errnoErr(e unix.Errno) error {
	if e == 0 {
		return nil
	}
	return e
}
