package upload

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gofrs/flock"
)

// ErrRunInProgress is returned when another upload run holds the lock.
var ErrRunInProgress = errors.New("an upload run is already in progress")

// RunLock allows one upload run at a time, within and across processes.
type RunLock struct {
	path    string
	running atomic.Bool
	lock    *flock.Flock
}

// NewRunLock creates a lock backed by the file at path. An empty path only
// guards the current process.
func NewRunLock(path string) *RunLock {
	l := &RunLock{path: path}
	if path != "" {
		l.lock = flock.New(path)
	}
	return l
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking and returns the release func.
func (l *RunLock) Acquire() (func(), error) {
	if !l.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	if l.lock != nil {
		ok, err := l.lock.TryLock()
		if err != nil {
			l.running.Store(false)
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			l.running.Store(false)
			return nil, ErrRunInProgress
		}
	}
	return func() {
		if l.lock != nil {
			_ = l.lock.Unlock()
		}
		l.running.Store(false)
	}, nil
}
