package utils

import "sync"

// WrapLock 持有 locker 执行 fn，fn panic 时也会释放
func WrapLock(locker sync.Locker, fn func()) {
	locker.Lock()
	defer locker.Unlock()

	fn()
}
