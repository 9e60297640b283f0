// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package watcher implements the WAIT/NOTIFY suspension point (§5): a
// per-key waiter list that a blocking lookup parks on until a NOTIFY-
// flagged write signals it, or until the engine tears down and every
// waiter is woken with status.TimedOut (§9: "A condition variable per
// waiting key, stored in a multi-map keyed by borrowed key bytes, is a
// natural structure; a teardown path must signal every waiter").
package watcher

import (
	"context"
	"sync"

	"storj.io/yokan/status"
)

type waiter struct {
	ch chan struct{}
}

// Table is the multimap of keys currently being waited on.
type Table struct {
	mu      sync.Mutex
	waiters map[string][]*waiter
	closed  bool
}

// NewTable constructs an empty waiter table.
func NewTable() *Table {
	return &Table{waiters: make(map[string][]*waiter)}
}

// Wait blocks until key is notified, ctx is canceled, or Close is called,
// whichever happens first. recheck is called immediately and after every
// notification to test whether the awaited condition now holds (typically
// "does key exist now"); Wait returns as soon as recheck returns true.
func (t *Table) Wait(ctx context.Context, key []byte, recheck func() (bool, error)) error {
	for {
		ok, err := recheck()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		w := &waiter{ch: make(chan struct{})}
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return status.Newf(status.TimedOut, "wait on key aborted: engine torn down")
		}
		k := string(key)
		t.waiters[k] = append(t.waiters[k], w)
		t.mu.Unlock()

		select {
		case <-w.ch:
			// fall through and recheck
		case <-ctx.Done():
			t.removeWaiter(k, w)
			return status.Newf(status.TimedOut, "wait on key canceled: %v", ctx.Err())
		}
	}
}

func (t *Table) removeWaiter(key string, w *waiter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.waiters[key]
	for i, x := range list {
		if x == w {
			t.waiters[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(t.waiters[key]) == 0 {
		delete(t.waiters, key)
	}
}

// Notify wakes every waiter currently parked on key.
func (t *Table) Notify(key []byte) {
	t.mu.Lock()
	list := t.waiters[string(key)]
	delete(t.waiters, string(key))
	t.mu.Unlock()
	for _, w := range list {
		close(w.ch)
	}
}

// Close wakes every waiter on every key with status.TimedOut and marks the
// table closed, so any later Wait call fails immediately instead of
// parking forever against a torn-down engine.
func (t *Table) Close() {
	t.mu.Lock()
	t.closed = true
	all := t.waiters
	t.waiters = make(map[string][]*waiter)
	t.mu.Unlock()
	for _, list := range all {
		for _, w := range list {
			close(w.ch)
		}
	}
}
