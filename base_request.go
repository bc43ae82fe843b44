// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"runtime"
	"sync/atomic"
	"weak"

	"github.com/joeycumines/go-uv/internal/reactor"
)

// baseRequest is the loop-owned shadow of a user-facing request.
type baseRequest struct {
	loop     *baseLoop
	native   *reactor.Req
	resolve  func() Request
	kind     RequestType
	finished atomic.Bool
	canceled atomic.Bool
}

func newBaseRequest[T any, P interface {
	*T
	Request
}](loop *Loop, user P, kind RequestType, native *reactor.Req) *baseRequest {
	ptr := weak.Make((*T)(user))
	s := &baseRequest{
		loop:   loop.base,
		native: native,
		kind:   kind,
		resolve: func() Request {
			if p := ptr.Value(); p != nil {
				return P(p)
			}
			return nil
		},
	}
	r := user.requestBase()
	r.loop = loop
	r.base = s
	return s
}

// submitRequest hands the request to the reactor. A rejected submission
// leaves the request finished and unattached.
func submitRequest[T any, P interface {
	*T
	Request
}](loop *Loop, user P, kind RequestType, op string, native *reactor.Req, submit func(*reactor.Loop) reactor.Status) error {
	s := newBaseRequest[T, P](loop, user, kind, native)
	if loop.base.closed.Load() {
		s.finished.Store(true)
		return ErrLoopClosed
	}

	native.Data = s
	if status := submit(loop.base.native); status.Failed() {
		native.Data = nil
		s.finished.Store(true)
		return &Error{Code: status, Op: op}
	}
	if t := requestTypeOf(native.Kind()); t != UnknownRequest {
		s.kind = t
	}

	loop.base.attachRequest(s)
	loop.setPending(user.requestBase())
	runtime.AddCleanup((*T)(user), func(s *baseRequest) { s.loop.scheduleCancel(s) }, s)
	return nil
}

// runRequest executes a request inline, for callers that passed no
// completion callback. It is never attached.
func runRequest[T any, P interface {
	*T
	Request
}](loop *Loop, user P, kind RequestType, op string, native *reactor.Req, run func(*reactor.Loop) reactor.Status) error {
	s := newBaseRequest[T, P](loop, user, kind, native)
	defer s.finished.Store(true)
	if loop.base.closed.Load() {
		return ErrLoopClosed
	}
	return newError(run(loop.base.native), op)
}

// cancel issues the reactor cancel. Loop goroutine only.
func (s *baseRequest) cancel() reactor.Status {
	if s.finished.Load() || !s.canceled.CompareAndSwap(false, true) {
		return reactor.OK
	}
	status := s.native.Cancel()
	if status.Failed() {
		// still in flight, the completion trampoline resolves it
		s.canceled.Store(false)
	}
	return status
}

// completeRequest is the shared half of every completion trampoline. It
// returns nil if the user-facing request has been collected.
func completeRequest(n *reactor.Req) Request {
	s, ok := n.Data.(*baseRequest)
	if !ok {
		return nil
	}
	u := dispatchRequest(n)
	n.Data = nil
	s.finished.Store(true)
	s.loop.detachRequest(s)

	if u == nil {
		return nil
	}
	r := u.requestBase()
	r.loop.clearPending(r)
	return u
}
