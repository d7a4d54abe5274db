package gorm

import (
	"context"
	"sync"
)

// weekLocks serializes writers per week key inside one process. Entries are
// dropped when the last holder or waiter leaves.
type weekLocks struct {
	mu    sync.Mutex
	locks map[string]*weekLock
}

type weekLock struct {
	ch   chan struct{}
	refs int
}

func newWeekLocks() *weekLocks {
	return &weekLocks{locks: make(map[string]*weekLock)}
}

// acquire blocks until the key is free or ctx is done
func (w *weekLocks) acquire(ctx context.Context, key string) (func(), error) {
	w.mu.Lock()
	l, ok := w.locks[key]
	if !ok {
		l = &weekLock{ch: make(chan struct{}, 1)}
		w.locks[key] = l
	}
	l.refs++
	w.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			w.release(key, l)
		}, nil
	case <-ctx.Done():
		w.release(key, l)
		return nil, ctx.Err()
	}
}

func (w *weekLocks) release(key string, l *weekLock) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(w.locks, key)
	}
}
