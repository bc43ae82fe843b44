// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

// Package reactor is a single-threaded I/O multiplexer and timer engine with
// libuv's loop semantics: handles, one-shot requests, run modes, and the
// fixed phase order of an iteration.
//
// Everything except Async.Send and the thread pool is confined to the
// goroutine that runs the loop.
package reactor

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
)

// RunMode selects how long Loop.Run keeps iterating.
type RunMode int

const (
	// RunDefault iterates until the loop is no longer alive or Stop is called.
	RunDefault RunMode = iota
	// RunOnce runs one iteration, blocking for I/O if there is nothing to do.
	RunOnce
	// RunNoWait runs one iteration without blocking.
	RunNoWait
)

func (m RunMode) String() string {
	switch m {
	case RunDefault:
		return `default`
	case RunOnce:
		return `once`
	case RunNoWait:
		return `nowait`
	default:
		return `invalid`
	}
}

var epoch = time.Now()

// Hrtime returns a monotonic timestamp in nanoseconds.
func Hrtime() uint64 { return uint64(time.Since(epoch)) }

// Loop is a reactor event loop. The zero value must be initialized with Init.
type Loop struct {
	// Data is an opaque slot for the embedder, never read by the reactor.
	Data any

	poller ioPoller
	wake   wakeFd

	pendingMu sync.Mutex
	pending   *queue.Queue // func(), posted from any goroutine

	closing *queue.Queue // *Handle, loop goroutine only

	handles  handleList
	timers   timerHeap
	timerSeq uint64
	idles    phaseList
	prepares phaseList
	checks   phaseList
	asyncs   []*Async

	activeHandles int
	activeReqs    int

	time        uint64
	stopFlag    atomic.Bool
	initialized bool
	closed      bool
}

var defaultLoop struct {
	mu   sync.Mutex
	loop *Loop
}

// Init prepares a zero-value loop for use.
func Init(l *Loop) Status {
	if l.initialized && !l.closed {
		return EBUSY
	}
	if err := l.poller.open(); err != nil {
		return FromError(err)
	}
	if err := l.wake.open(); err != nil {
		_ = l.poller.close()
		return FromError(err)
	}
	if err := l.poller.register(l.wake.r, Readable, l.onWake); err != nil {
		_ = l.wake.close()
		_ = l.poller.close()
		return pollerStatus(err)
	}
	l.pending = queue.New()
	l.closing = queue.New()
	l.handles = handleList{}
	l.timers = nil
	l.idles, l.prepares, l.checks = nil, nil, nil
	l.asyncs = nil
	l.activeHandles, l.activeReqs = 0, 0
	l.stopFlag.Store(false)
	l.initialized = true
	l.closed = false
	l.UpdateTime()
	return OK
}

// New allocates and initializes a loop.
func New() (*Loop, Status) {
	l := new(Loop)
	if status := Init(l); status.Failed() {
		return nil, status
	}
	return l, OK
}

// Default returns the process-wide default loop, creating it if it does not
// exist or has been closed.
func Default() (*Loop, Status) {
	defaultLoop.mu.Lock()
	defer defaultLoop.mu.Unlock()
	if defaultLoop.loop != nil {
		return defaultLoop.loop, OK
	}
	l, status := New()
	if status.Failed() {
		return nil, status
	}
	defaultLoop.loop = l
	return l, OK
}

func (l *Loop) IsDefault() bool {
	defaultLoop.mu.Lock()
	defer defaultLoop.mu.Unlock()
	return defaultLoop.loop == l
}

// Alive reports whether Run would do any work.
func (l *Loop) Alive() bool {
	return l.activeHandles > 0 ||
		l.activeReqs > 0 ||
		l.hasPending() ||
		l.closing.Length() > 0
}

func (l *Loop) IsClosed() bool { return l.closed }

// ActiveRequests returns the number of submitted requests that have not
// completed.
func (l *Loop) ActiveRequests() int { return l.activeReqs }

// Now returns the cached loop time in milliseconds.
func (l *Loop) Now() uint64 { return l.time }

// UpdateTime refreshes the cached loop time from the monotonic clock.
func (l *Loop) UpdateTime() { l.time = Hrtime() / uint64(time.Millisecond) }

// Stop makes Run return at the end of the current iteration.
func (l *Loop) Stop() { l.stopFlag.Store(true) }

// BackendFd returns the descriptor of the underlying epoll or kqueue
// instance, or -1 once closed.
func (l *Loop) BackendFd() int {
	if !l.initialized || l.closed {
		return -1
	}
	return l.poller.fd()
}

// BackendTimeout returns the poll timeout in milliseconds, -1 for no timeout.
func (l *Loop) BackendTimeout() int {
	if l.stopFlag.Load() ||
		(l.activeHandles == 0 && l.activeReqs == 0) ||
		len(l.idles) > 0 ||
		l.hasPending() ||
		l.closing.Length() > 0 {
		return 0
	}
	if len(l.timers) == 0 {
		return -1
	}
	due := l.timers[0].due
	if due <= l.time {
		return 0
	}
	diff := due - l.time
	if diff > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(diff)
}

// Run executes loop iterations according to mode, returning whether the loop
// is still alive.
func (l *Loop) Run(mode RunMode) bool {
	if !l.initialized || l.closed {
		return false
	}
	alive := l.Alive()
	if !alive {
		l.UpdateTime()
	}
	for alive && !l.stopFlag.Load() {
		l.UpdateTime()
		l.runTimers()
		ranPending := l.runPending()
		l.idles.run()
		l.prepares.run()

		timeout := 0
		if (mode == RunOnce && !ranPending) || mode == RunDefault {
			timeout = l.BackendTimeout()
		}
		l.poll(timeout)

		l.checks.run()
		l.runClosing()

		if mode == RunOnce {
			l.UpdateTime()
			l.runTimers()
		}

		alive = l.Alive()
		if mode == RunOnce || mode == RunNoWait {
			break
		}
	}
	l.stopFlag.Store(false)
	return alive
}

// Walk calls fn for every handle that has not finished closing. fn may close
// the handle it is given.
func (l *Loop) Walk(fn func(*Handle)) {
	for _, h := range l.handles.snapshot() {
		if !h.IsClosed() {
			fn(h)
		}
	}
}

// Close releases the loop's descriptors. It fails with EBUSY while any
// request is in flight or any handle has not finished closing.
func (l *Loop) Close() Status {
	if !l.initialized || l.closed {
		return EINVAL
	}
	if l.activeReqs > 0 || l.handles.n > 0 {
		return EBUSY
	}
	_ = l.poller.unregister(l.wake.r)
	_ = l.wake.close()
	_ = l.poller.close()

	l.pendingMu.Lock()
	for l.pending.Length() > 0 {
		l.pending.Remove()
	}
	l.pendingMu.Unlock()

	l.closed = true

	defaultLoop.mu.Lock()
	if defaultLoop.loop == l {
		defaultLoop.loop = nil
	}
	defaultLoop.mu.Unlock()
	return OK
}

// post queues fn to run on the loop goroutine and wakes the loop. Safe from
// any goroutine, including after Close, where fn is dropped.
func (l *Loop) post(fn func()) {
	l.pendingMu.Lock()
	l.pending.Add(fn)
	l.pendingMu.Unlock()
	l.wake.signal()
}

func (l *Loop) hasPending() bool {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	return l.pending.Length() > 0
}

func (l *Loop) runPending() bool {
	l.pendingMu.Lock()
	n := l.pending.Length()
	if n == 0 {
		l.pendingMu.Unlock()
		return false
	}
	batch := make([]func(), n)
	for i := range batch {
		batch[i] = l.pending.Remove().(func())
	}
	l.pendingMu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return true
}

func (l *Loop) onWake(IOEvents) {
	l.wake.drain()
	for _, a := range append([]*Async(nil), l.asyncs...) {
		if a.pending.CompareAndSwap(true, false) && !a.IsClosing() && a.cb != nil {
			a.cb(a)
		}
	}
	l.runPending()
}

func (l *Loop) poll(timeout int) {
	// EINTR is absorbed by the poller, other errors leave the iteration to
	// the next phase.
	_, _ = l.poller.wait(timeout)
}

// runClosing finishes only the handles queued before the phase started.
func (l *Loop) runClosing() {
	for n := l.closing.Length(); n > 0; n-- {
		l.closing.Remove().(*Handle).finishClose()
	}
}
