package services

import (
	"context"
	"fmt"
	"sync"
)

// SessionLocker serializes lifecycle transitions for one session id.
// The returned func releases the lock and must be called exactly once.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID string) (func(), error)
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process SessionLocker for single-instance deployments and tests
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

// NewLocalLocker creates an empty keyed lock
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

// Lock blocks until the lock for sessionID is free or ctx is done
func (l *LocalLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &localLock{ch: make(chan struct{}, 1)}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.ch
				l.release(sessionID, entry)
			})
		}, nil
	case <-ctx.Done():
		l.release(sessionID, entry)
		return nil, fmt.Errorf("failed to lock session %s: %w", sessionID, ctx.Err())
	}
}

func (l *LocalLocker) release(sessionID string, entry *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, sessionID)
	}
}
