// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"sync/atomic"
)

// ReqKind identifies the concrete type behind a Req.
type ReqKind int

const (
	UnknownReq ReqKind = iota
	FSReq
	GetAddrInfoReq
	GetNameInfoReq
)

func (k ReqKind) String() string {
	switch k {
	case FSReq:
		return `fs`
	case GetAddrInfoReq:
		return `getaddrinfo`
	case GetNameInfoReq:
		return `getnameinfo`
	default:
		return `unknown`
	}
}

const (
	reqIdle int32 = iota
	reqQueued
	reqRunning
	reqDone
)

// Req is the header embedded in every one-shot request. Requests run on the
// shared thread pool and complete on the loop goroutine.
type Req struct {
	// Data is an opaque slot for the embedder, never read by the reactor.
	Data any

	loop     *Loop
	work     func() Status
	done     func(Status)
	kind     ReqKind
	canceled Status
	state    atomic.Int32
}

func (r *Req) Loop() *Loop { return r.loop }

func (r *Req) Kind() ReqKind { return r.kind }

// submit queues work on the thread pool. done runs on the loop goroutine with
// the work's status, or with the kind's cancellation status.
func (l *Loop) submit(r *Req, kind ReqKind, canceled Status, work func() Status, done func(Status)) {
	r.loop = l
	r.kind = kind
	r.canceled = canceled
	r.work = work
	r.done = done
	r.state.Store(reqQueued)
	l.activeReqs++
	defaultPool.enqueue(r)
}

// runSync executes a request inline, for callers that passed no callback.
func (l *Loop) runSync(r *Req, kind ReqKind, work func() Status) Status {
	r.loop = l
	r.kind = kind
	r.state.Store(reqDone)
	return work()
}

// Cancel withdraws a request that no worker has picked up yet. The completion
// callback still runs, later, with the cancellation status. EBUSY if the work
// already started or finished.
func (r *Req) Cancel() Status {
	switch r.kind {
	case FSReq, GetAddrInfoReq, GetNameInfoReq:
	default:
		return EINVAL
	}
	if !r.state.CompareAndSwap(reqQueued, reqDone) {
		return EBUSY
	}
	r.loop.post(func() { r.complete(r.canceled) })
	return OK
}

func (r *Req) run() {
	if !r.state.CompareAndSwap(reqQueued, reqRunning) {
		return
	}
	status := r.work()
	r.state.Store(reqDone)
	r.loop.post(func() { r.complete(status) })
}

func (r *Req) complete(status Status) {
	r.loop.activeReqs--
	done := r.done
	r.work, r.done = nil, nil
	if done != nil {
		done(status)
	}
}
