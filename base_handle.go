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

// baseHandle is the loop-owned shadow of a user-facing handle. It outlives
// the user-facing object until the reactor has finished closing the handle,
// and refers to that object only weakly.
type baseHandle struct {
	loop    *baseLoop
	native  *reactor.Handle
	resolve func() Handle
	kind    HandleType
	closing atomic.Bool
	closed  atomic.Bool
}

// openHandle initializes the reactor handle behind user. On failure the
// handle is left permanently closed and never attached.
func openHandle[T any, P interface {
	*T
	Handle
}](loop *Loop, user P, kind HandleType, native *reactor.Handle, init func(*reactor.Loop) reactor.Status) error {
	ptr := weak.Make((*T)(user))
	s := &baseHandle{
		loop:   loop.base,
		native: native,
		kind:   kind,
		resolve: func() Handle {
			if p := ptr.Value(); p != nil {
				return P(p)
			}
			return nil
		},
	}
	h := user.handleBase()
	h.loop = loop
	h.base = s

	fail := func(err error) error {
		s.closing.Store(true)
		s.closed.Store(true)
		return &InitError{Resource: kind.String(), Err: err}
	}
	if loop.base.closed.Load() {
		return fail(ErrLoopClosed)
	}

	native.Data = s
	if status := init(loop.base.native); status.Failed() {
		native.Data = nil
		return fail(&Error{Code: status, Op: kind.String() + `_init`})
	}
	if t := handleTypeOf(native.Kind()); t != UnknownHandle {
		s.kind = t
	}

	loop.base.attachHandle(s)
	runtime.AddCleanup((*T)(user), func(s *baseHandle) { s.loop.scheduleClose(s) }, s)
	return nil
}

// close issues the reactor close. Loop goroutine only.
func (s *baseHandle) close() {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	s.native.Close(onHandleClosed)
}

// onHandleClosed is the close trampoline, run by the reactor in the closing
// phase.
func onHandleClosed(n *reactor.Handle) {
	s, ok := n.Data.(*baseHandle)
	if !ok {
		return
	}
	n.Data = nil
	s.closed.Store(true)
	s.loop.detachHandle(s)

	u := s.resolve()
	if u == nil {
		return
	}
	h := u.handleBase()
	h.loop.clearPending(h)
	if cb := h.onClosed; cb != nil {
		h.onClosed = nil
		s.loop.invoke(s.kind.String(), `on_closed`, func() { cb(u) })
	}
}
