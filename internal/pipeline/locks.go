package pipeline

import (
	"context"
	"path/filepath"
	"sync"
)

// TargetLocks serializes conversions that write the same export file.
// Each path has a one-slot channel that acts as a mutex a waiter can give
// up on when its context ends.
type TargetLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewTargetLocks() *TargetLocks {
	return &TargetLocks{slots: make(map[string]chan struct{})}
}

// Lock blocks until path is free or ctx is done. The returned function
// releases the lock.
func (l *TargetLocks) Lock(ctx context.Context, path string) (func(), error) {
	slot := l.slot(path)
	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *TargetLocks) slot(path string) chan struct{} {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}
	return s
}
