// Package sys declares the kernel entry points and event record layouts used
// by the poller backends: epoll on linux, kqueue on darwin and freebsd.
//
// Records are declared by hand so that the token lives in a plain integer
// field, and every layout is checked at compile time against the generated
// definitions in golang.org/x/sys/unix.
package sys
