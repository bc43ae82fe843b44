// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

// Request is a one-shot operation. Its completion callback runs exactly
// once, on the loop goroutine, including after a successful Cancel, when it
// receives the cancellation status.
type Request interface {
	Cancelable
	Loop() *Loop
	Type() RequestType
	// Finished reports whether the request has completed.
	Finished() bool

	requestBase() *request
}

// request is embedded in every concrete request type.
type request struct {
	loop *Loop
	base *baseRequest
}

func (r *request) requestBase() *request { return r }

// Loop returns the loop the request was submitted to.
func (r *request) Loop() *Loop { return r.loop }

// Type returns the concrete request type.
func (r *request) Type() RequestType { return r.base.kind }

// Finished reports whether the completion has been delivered, or the
// request ran synchronously.
func (r *request) Finished() bool { return r.base.finished.Load() }

// Cancel withdraws the request if no worker has started it. On success the
// completion callback still runs later with ECANCELED, or EAI_CANCELED for
// name resolution. A request already running fails with EBUSY. Canceling a
// finished or canceled request does nothing.
func (r *request) Cancel() error {
	if r.base.finished.Load() || r.base.canceled.Load() {
		return nil
	}
	return newError(r.base.cancel(), r.base.kind.String()+`_cancel`)
}

// invokeDone runs a completion callback inside the error boundary.
func (r *request) invokeDone(fn func()) {
	r.base.loop.invoke(r.base.kind.String(), `on_done`, fn)
}
