package storage

import (
	"os"
	"sync"
	"syscall"
)

// fileLock serializes writers of one record: a mutex for goroutines in
// this process, flock on a sidecar file for other processes.
type fileLock struct {
	path string

	mu sync.Mutex
	f  *os.File
}

func (l *fileLock) acquire() error {
	l.mu.Lock()

	f, err := os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		l.mu.Unlock()
		return err
	}

	l.f = f
	return nil
}

func (l *fileLock) release() {
	if l.f == nil {
		return
	}
	syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	l.f.Close()
	os.Remove(l.path + ".lock")
	l.f = nil
	l.mu.Unlock()
}
