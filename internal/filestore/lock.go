package filestore

import (
	"fmt"

	"code-lottery-go/internal/store"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// LockSuffix is appended to a live file path to name its lock file.
const LockSuffix = ".lock"

// FileLock is an exclusive advisory lock that makes its holder the only
// writer of a file.
type FileLock struct {
	lock *flock.Flock
}

// LockPath returns the lock file location for path.
func LockPath(path string) string {
	return path + LockSuffix
}

// AcquireLock takes the lock of path without waiting. It returns
// store.ErrLocked when another holder, in this process or another, has it.
func AcquireLock(path string) (*FileLock, error) {
	l := flock.New(LockPath(path))
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s is in use, stop the other process first", store.ErrLocked, path)
	}
	return &FileLock{lock: l}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *FileLock) Release() {
	if l == nil || l.lock == nil {
		return
	}
	if err := l.lock.Unlock(); err != nil {
		zap.L().Warn("Failed to release file lock", zap.String("file", l.lock.Path()), zap.Error(err))
	}
	l.lock = nil
}
