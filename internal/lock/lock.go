// Package lock provides named mutual exclusion for operations that must not
// overlap, within one process or across instances sharing a Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotObtained = errors.New("lock not obtained")

type Locker interface {
	// Acquire blocks until key is held or the locker gives up with
	// ErrNotObtained. The returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type LocalLocker struct {
	wait time.Duration

	mu   sync.Mutex
	keys map[string]chan struct{}
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{wait: wait, keys: make(map[string]chan struct{})}
}

func (l *LocalLocker) sem(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.keys[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.keys[key] = ch
	}
	return ch
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	sem := l.sem(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNotObtained, ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
}
