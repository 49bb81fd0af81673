package chat

import (
	"context"
	"sync"
)

// sessionLocks hands out one mutex per session id. Entries are dropped
// once nobody holds or waits for them.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{held: make(map[string]*sessionLock)}
}

// acquire blocks until the session is free or ctx ends.
// The returned release function is safe to call more than once.
func (l *sessionLocks) acquire(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.held[id]
	if !ok {
		lk = &sessionLock{ch: make(chan struct{}, 1)}
		l.held[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(id, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.unref(id, lk)
		})
	}, nil
}

func (l *sessionLocks) unref(id string, lk *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.held, id)
	}
}

// size reports the number of tracked sessions.
func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
