// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// Async wakes its loop from any goroutine and runs a callback on the loop
// goroutine. Sends made before the callback runs coalesce into one call.
//
// An Async is active from creation until closed, but is not held by its loop:
// dropping the last reference closes it at the loop's next iteration.
type Async struct {
	handle
	native *reactor.Async
	onSend func(*Async)
}

// NewAsync creates an async handle on loop, the default loop if nil. onSend
// may be nil.
func NewAsync(loop *Loop, onSend func(*Async)) (*Async, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	a := &Async{native: new(reactor.Async), onSend: onSend}
	if err := openHandle(loop, a, AsyncHandle, &a.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.InitAsync(a.native, onAsyncSend)
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// Send is safe from any goroutine. It fails with ErrHandleClosed once the
// handle is closing.
func (a *Async) Send() error {
	if err := a.usable(); err != nil {
		return err
	}
	if status := a.native.Send(); status.Failed() {
		return &Error{Code: status, Op: `async_send`}
	}
	return nil
}

func onAsyncSend(n *reactor.Async) {
	a, ok := dispatchHandle(&n.Handle).(*Async)
	if !ok {
		return
	}
	if cb := a.onSend; cb != nil {
		a.base.loop.invoke(`async`, `on_send`, func() { cb(a) })
	}
}
