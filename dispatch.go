// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"runtime/debug"

	"github.com/joeycumines/go-uv/internal/reactor"
)

// dispatchHandle resolves a reactor handle to its user-facing object. It
// returns nil once the handle has finished closing, or if the user-facing
// object has been collected.
func dispatchHandle(n *reactor.Handle) Handle {
	s, ok := n.Data.(*baseHandle)
	if !ok || s.closed.Load() {
		return nil
	}
	return s.resolve()
}

// dispatchRequest is dispatchHandle for requests.
func dispatchRequest(n *reactor.Req) Request {
	s, ok := n.Data.(*baseRequest)
	if !ok {
		return nil
	}
	return s.resolve()
}

// invoke runs a user callback behind the exception boundary. A panic never
// propagates into the reactor.
func (b *baseLoop) invoke(source, callback string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.reportCallbackError(&CallbackError{
				Source:   source,
				Callback: callback,
				Value:    r,
				Stack:    debug.Stack(),
			})
		}
	}()
	fn()
}

func (b *baseLoop) reportCallbackError(err *CallbackError) {
	b.lastError.Store(err)
	b.callbackErrors.Add(1)
	b.metrics.callbackError(err)

	if b.stopOnCallbackError {
		b.native.Stop()
	}

	if b.errorHandler == nil {
		b.logCallbackError(err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Crit().
				Any(`panic`, r).
				Err(err).
				Log(`callback error handler panicked, stopping loop`)
			b.native.Stop()
		}
	}()
	b.errorHandler(err)
}

func (b *baseLoop) logCallbackError(err *CallbackError) {
	if _, ok := b.errorLimiter.Allow(err.Source + `.` + err.Callback); !ok {
		b.suppressed.Add(1)
		return
	}
	b.logger.Err().
		Str(`source`, err.Source).
		Str(`callback`, err.Callback).
		Uint64(`suppressed`, b.suppressed.Swap(0)).
		Err(err).
		Str(`stack`, string(err.Stack)).
		Log(`unhandled error in callback`)
}
