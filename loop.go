// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"runtime"
	"sync"
	"time"
	"weak"

	"github.com/joeycumines/go-uv/internal/reactor"
)

// RunMode selects how long Loop.Run keeps iterating.
type RunMode = reactor.RunMode

const (
	// RunDefault runs until no referenced handle or request remains, or Stop
	// is called.
	RunDefault = reactor.RunDefault
	// RunOnce runs a single iteration, blocking for I/O if nothing is ready.
	RunOnce = reactor.RunOnce
	// RunNoWait runs a single iteration without blocking.
	RunNoWait = reactor.RunNoWait
)

// Loop is an event loop. A Loop and every handle and request attached to it
// share one lifetime: a started handle keeps its Loop reachable, and the Loop
// keeps its started handles reachable, so user code may drop a running timer
// without stopping it. Once none of them is reachable, the whole set is torn
// down together, closing every handle and canceling every request.
//
// Apart from Submit, Wakeup, Closed, and CallbackErrors, methods must be
// called from the goroutine that runs the loop, or while it is not running.
type Loop struct {
	_ [0]func() // not comparable

	base *baseLoop

	pendingMu sync.Mutex
	// pending holds handles and requests that must outlive user references
	// while in flight. Keys are *handle or *request.
	pending map[any]struct{}

	// taskMu also orders Submit against the closed flag set by shutdown.
	taskMu sync.Mutex
	tasks  []func()
}

var defaultLoop struct {
	mu   sync.Mutex
	loop *Loop
}

// New creates a loop. It is closed explicitly with Close, or implicitly once
// it and everything attached to it is unreachable.
func New(opts ...LoopOption) (*Loop, error) {
	l, err := create(false, opts)
	if err != nil {
		return nil, err
	}
	runtime.AddCleanup(l, func(b *baseLoop) { go b.destroy() }, l.base)
	return l, nil
}

// Default returns the process-wide default loop, creating it on first use or
// after it was closed. Options apply only when a loop is created. The default
// loop is never collected, only closed.
func Default(opts ...LoopOption) (*Loop, error) {
	defaultLoop.mu.Lock()
	defer defaultLoop.mu.Unlock()
	if l := defaultLoop.loop; l != nil && !l.base.closed.Load() {
		return l, nil
	}
	l, err := create(true, opts)
	if err != nil {
		return nil, err
	}
	defaultLoop.loop = l
	return l, nil
}

// clearDefault forgets the default loop once it has closed.
func clearDefault() {
	defaultLoop.mu.Lock()
	defer defaultLoop.mu.Unlock()
	if l := defaultLoop.loop; l != nil && l.base.closed.Load() {
		defaultLoop.loop = nil
	}
}

// resolveLoop substitutes the default loop for nil.
func resolveLoop(l *Loop) (*Loop, error) {
	if l != nil {
		return l, nil
	}
	return Default()
}

func create(useDefault bool, opts []LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}
	base, err := createBaseLoop(useDefault, cfg)
	if err != nil {
		return nil, err
	}
	l := &Loop{
		base:    base,
		pending: make(map[any]struct{}),
	}
	base.user = weak.Make(l)
	return l, nil
}

func (l *Loop) setPending(key any) {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	l.pending[key] = struct{}{}
}

func (l *Loop) clearPending(key any) {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	delete(l.pending, key)
}

// Run runs the loop in the given mode, returning whether it is still alive.
// Tasks queued by Submit keep Run from returning until they have executed.
func (l *Loop) Run(mode RunMode) (bool, error) {
	if l.base.closed.Load() {
		return false, ErrLoopClosed
	}
	if !l.base.running.CompareAndSwap(false, true) {
		return false, ErrReentrantRun
	}
	defer l.base.running.Store(false)

	if l.base.closed.Load() {
		return false, ErrLoopClosed
	}
	l.armTasks()
	start := time.Now()
	alive := l.base.native.Run(mode)
	l.base.metrics.run(mode, time.Since(start))

	// The loop must stay reachable while its callbacks run.
	runtime.KeepAlive(l)
	return alive, nil
}

// Stop makes Run return after the current iteration.
func (l *Loop) Stop() {
	if !l.base.closed.Load() {
		l.base.native.Stop()
	}
}

// Close closes the loop. It fails with an error matching ErrLoopBusy while
// any handle or request is attached that is neither closing nor finished,
// leaving the loop open. Closing an already closed loop does nothing.
func (l *Loop) Close() error {
	b := l.base
	if b.closed.Load() {
		return nil
	}
	if !b.running.CompareAndSwap(false, true) {
		return ErrReentrantRun
	}
	defer b.running.Store(false)
	if b.closed.Load() {
		return nil
	}
	if b.busy() {
		return &Error{Code: EBUSY, Op: opLoopClose}
	}
	if err := b.shutdown(false); err != nil {
		return err
	}
	if b.isDefault {
		clearDefault()
	}
	runtime.KeepAlive(l)
	return nil
}

// Alive reports whether the loop has referenced active handles, in-flight
// requests, or pending close callbacks.
func (l *Loop) Alive() bool {
	return !l.base.closed.Load() && l.base.native.Alive()
}

// Closed is safe from any goroutine.
func (l *Loop) Closed() bool { return l.base.closed.Load() }

// IsDefault reports whether l is the process-wide default loop.
func (l *Loop) IsDefault() bool { return l.base.isDefault }

// Now returns the cached loop time in milliseconds, updated at the start of
// every iteration.
func (l *Loop) Now() uint64 { return l.base.native.Now() }

// UpdateTime refreshes the cached loop time.
func (l *Loop) UpdateTime() {
	if !l.base.closed.Load() {
		l.base.native.UpdateTime()
	}
}

// Timeout returns the timeout in milliseconds the next poll would block for,
// -1 meaning indefinitely.
func (l *Loop) Timeout() int {
	if l.base.closed.Load() {
		return 0
	}
	return l.base.native.BackendTimeout()
}

// Fileno returns the epoll or kqueue descriptor, -1 once closed.
func (l *Loop) Fileno() int {
	if l.base.closed.Load() {
		return -1
	}
	return l.base.native.BackendFd()
}

// Handles returns every open handle whose user-facing object is still
// reachable.
func (l *Loop) Handles() []Handle {
	var out []Handle
	l.base.native.Walk(func(n *reactor.Handle) {
		if h := dispatchHandle(n); h != nil && !h.Closing() {
			out = append(out, h)
		}
	})
	return out
}

// Requests returns every in-flight request whose user-facing object is still
// reachable.
func (l *Loop) Requests() []Request {
	l.base.mu.Lock()
	shadows := make([]*baseRequest, 0, len(l.base.requests))
	for s := range l.base.requests {
		shadows = append(shadows, s)
	}
	l.base.mu.Unlock()
	var out []Request
	for _, s := range shadows {
		if r := dispatchRequest(s.native); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// CloseAllHandles closes every handle that is not already closing, invoking
// onClosed for each once it has closed. A loop run afterwards lets Close
// succeed.
func (l *Loop) CloseAllHandles(onClosed func(Handle)) {
	for _, h := range l.Handles() {
		h.Close(onClosed)
	}
}

// Submit queues fn to run on the loop goroutine, inside the callback error
// boundary. Safe from any goroutine. Fails with ErrLoopClosed once the loop
// has closed.
func (l *Loop) Submit(fn func()) error {
	if fn == nil {
		return nil
	}
	l.taskMu.Lock()
	if l.base.closed.Load() {
		l.taskMu.Unlock()
		return ErrLoopClosed
	}
	l.tasks = append(l.tasks, fn)
	l.taskMu.Unlock()
	l.base.wakeup()
	return nil
}

// armTasks references the wake-up handle while tasks are queued, so Run does
// not return before they execute.
func (l *Loop) armTasks() {
	l.taskMu.Lock()
	n := len(l.tasks)
	l.taskMu.Unlock()
	if n == 0 || l.base.wakeHandle.IsClosing() {
		return
	}
	l.base.wakeHandle.Ref()
	l.base.wakeup()
}

func (l *Loop) runTasks() {
	l.taskMu.Lock()
	tasks := l.tasks
	l.tasks = nil
	l.taskMu.Unlock()

	for _, fn := range tasks {
		l.base.invoke(`loop`, `task`, fn)
	}

	l.taskMu.Lock()
	more := len(l.tasks) > 0
	l.taskMu.Unlock()
	if more {
		l.base.wakeup()
	} else {
		l.base.wakeHandle.Unref()
	}
}

// Wakeup interrupts a blocked poll. Safe from any goroutine.
func (l *Loop) Wakeup() { l.base.wakeup() }

// LastError returns the most recent error recovered from a user callback.
func (l *Loop) LastError() *CallbackError { return l.base.lastError.Load() }

// CallbackErrors returns how many errors have been recovered from user
// callbacks over the loop's lifetime, including those whose logging was
// rate limited. Safe from any goroutine.
func (l *Loop) CallbackErrors() uint64 { return l.base.callbackErrors.Load() }
