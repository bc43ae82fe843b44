// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"slices"
	"sync/atomic"
)

// Async wakes the loop from any goroutine and runs its callback on the loop
// goroutine. Sends made before the callback runs are coalesced into one call.
type Async struct {
	Handle
	cb      func(*Async)
	pending atomic.Bool
}

// InitAsync initializes a and makes it active immediately.
func (l *Loop) InitAsync(a *Async, cb func(*Async)) Status {
	l.initHandle(&a.Handle, AsyncHandle, func() {
		if i := slices.Index(l.asyncs, a); i >= 0 {
			l.asyncs = slices.Delete(l.asyncs, i, i+1)
		}
	})
	a.cb = cb
	a.pending.Store(false)
	l.asyncs = append(l.asyncs, a)
	a.activate()
	return OK
}

// Send is safe to call from any goroutine, including after the loop closed.
func (a *Async) Send() Status {
	if a.pending.Swap(true) {
		return OK
	}
	a.loop.wake.signal()
	return OK
}
