package store

import (
	"fmt"
	"os"
	"syscall"
)

// Lock is an exclusive advisory lock held by a serving process.
type Lock struct {
	f *os.File
}

// LockPath is the lock file guarding a state database.
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireLock takes a non-blocking exclusive flock on path and writes the
// holder's PID into it. Keep the Lock until shutdown.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("store: open lock %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("another beadsmap server holds %s", path)
	}

	f.Truncate(0)
	f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return &Lock{f: f}, nil
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.f == nil {
		return
	}
	syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	name := l.f.Name()
	l.f.Close()
	os.Remove(name)
	l.f = nil
}
