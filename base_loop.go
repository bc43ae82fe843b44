// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"sync"
	"sync/atomic"
	"weak"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-uv/internal/reactor"
	"github.com/joeycumines/logiface"
)

// baseLoop owns a reactor loop and everything attached to it. It references
// the user-facing Loop only weakly, and is itself kept alive by the registry
// until it closes.
//
// The four sets are guarded by mu, because the collector path enqueues from
// the cleanup goroutine while the loop runs. Everything else, reactor calls
// included, happens on whichever goroutine holds running.
type baseLoop struct {
	native *reactor.Loop
	user   weak.Pointer[Loop]

	// wakeHandle interrupts a blocked poll and runs submitted tasks.
	wakeHandle reactor.Async
	// prepareHandle is the safe point where deferred closes and cancels run.
	prepareHandle reactor.Phase

	mu               sync.Mutex
	handles          map[*baseHandle]struct{}
	requests         map[*baseRequest]struct{}
	handlesToClose   map[*baseHandle]struct{}
	requestsToCancel map[*baseRequest]struct{}

	logger              *logiface.Logger[logiface.Event]
	errorHandler        ErrorHandler
	errorLimiter        *catrate.Limiter
	stopOnCallbackError bool
	metrics             *loopMetrics

	lastError      atomic.Pointer[CallbackError]
	callbackErrors atomic.Uint64
	suppressed     atomic.Uint64

	running   atomic.Bool
	closed    atomic.Bool
	isDefault bool
}

func createBaseLoop(useDefault bool, cfg *loopOptions) (*baseLoop, error) {
	b := &baseLoop{
		handles:             make(map[*baseHandle]struct{}),
		requests:            make(map[*baseRequest]struct{}),
		handlesToClose:      make(map[*baseHandle]struct{}),
		requestsToCancel:    make(map[*baseRequest]struct{}),
		logger:              cfg.logger,
		errorHandler:        cfg.errorHandler,
		errorLimiter:        cfg.errorLimiter,
		stopOnCallbackError: cfg.stopOnCallbackError,
		isDefault:           useDefault,
		metrics:             noopLoopMetrics,
	}
	if cfg.meterProvider != nil {
		if m, err := newLoopMetrics(cfg.meterProvider); err != nil {
			b.logger.Warning().Err(err).Log(`metrics initialization failed, metrics disabled`)
		} else {
			b.metrics = m
		}
	}

	var status reactor.Status
	if useDefault {
		b.native, status = reactor.Default()
	} else {
		b.native, status = reactor.New()
	}
	if status.Failed() {
		return nil, &InitError{Resource: `loop`, Err: newError(status, `loop_init`)}
	}
	b.native.Data = b

	if status := b.initInternal(); status.Failed() {
		b.native.Walk(func(h *reactor.Handle) { h.Close(nil) })
		b.native.Run(reactor.RunDefault)
		_ = b.native.Close()
		return nil, &InitError{Resource: `loop`, Err: newError(status, `loop_init`)}
	}

	registry.add(b)

	b.logger.Debug().
		Bool(`default`, useDefault).
		Int(`backend_fd`, b.native.BackendFd()).
		Log(`loop created`)

	return b, nil
}

// initInternal (re)initializes the wake-up and prepare handles. Both are
// unreferenced, so they never keep the loop alive on their own.
func (b *baseLoop) initInternal() reactor.Status {
	if status := b.native.InitAsync(&b.wakeHandle, onInternalWakeup); status.Failed() {
		return status
	}
	b.wakeHandle.Unref()
	if status := b.native.InitPrepare(&b.prepareHandle); status.Failed() {
		b.wakeHandle.Close(nil)
		return status
	}
	if status := b.prepareHandle.Start(onInternalPrepare); status.Failed() {
		b.wakeHandle.Close(nil)
		b.prepareHandle.Close(nil)
		return status
	}
	b.prepareHandle.Unref()
	return reactor.OK
}

// onInternalWakeup runs the tasks queued on the user-facing Loop. The queue
// lives there because its closures usually capture the Loop.
func onInternalWakeup(a *reactor.Async) {
	b, ok := a.Loop().Data.(*baseLoop)
	if !ok {
		return
	}
	if l := b.user.Value(); l != nil {
		l.runTasks()
	} else {
		b.wakeHandle.Unref()
	}
}

func onInternalPrepare(p *reactor.Phase) {
	if b, ok := p.Loop().Data.(*baseLoop); ok {
		b.drainDeferred()
	}
}

func (b *baseLoop) attachHandle(s *baseHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handles[s] = struct{}{}
}

func (b *baseLoop) attachRequest(s *baseRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests[s] = struct{}{}
}

func (b *baseLoop) detachHandle(s *baseHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handles, s)
	delete(b.handlesToClose, s)
}

func (b *baseLoop) detachRequest(s *baseRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.requests, s)
	delete(b.requestsToCancel, s)
}

// scheduleClose marks s for closing at the next safe point. It never calls
// into the reactor, so it is safe from the cleanup goroutine.
func (b *baseLoop) scheduleClose(s *baseHandle) {
	if b.closed.Load() || s.closing.Load() {
		return
	}
	b.mu.Lock()
	if _, ok := b.handles[s]; ok {
		b.handlesToClose[s] = struct{}{}
	}
	b.mu.Unlock()
	b.wakeup()
}

// scheduleCancel is scheduleClose for requests.
func (b *baseLoop) scheduleCancel(s *baseRequest) {
	if b.closed.Load() || s.finished.Load() || s.canceled.Load() {
		return
	}
	b.mu.Lock()
	if _, ok := b.requests[s]; ok {
		b.requestsToCancel[s] = struct{}{}
	}
	b.mu.Unlock()
	b.wakeup()
}

// drainDeferred is the safe point, run by the internal prepare handle before
// every poll.
func (b *baseLoop) drainDeferred() {
	b.mu.Lock()
	if len(b.handlesToClose) == 0 && len(b.requestsToCancel) == 0 {
		b.mu.Unlock()
		return
	}
	handles := make([]*baseHandle, 0, len(b.handlesToClose))
	for s := range b.handlesToClose {
		handles = append(handles, s)
	}
	requests := make([]*baseRequest, 0, len(b.requestsToCancel))
	for s := range b.requestsToCancel {
		requests = append(requests, s)
	}
	clear(b.handlesToClose)
	clear(b.requestsToCancel)
	b.mu.Unlock()

	for _, s := range handles {
		s.close()
	}
	for _, s := range requests {
		s.cancel()
	}

	b.metrics.drained(len(handles), len(requests))
	b.logger.Debug().
		Int(`handles`, len(handles)).
		Int(`requests`, len(requests)).
		Log(`drained deferred closures`)
}

// wakeup is safe from any goroutine, and a no-op once the loop is closed.
func (b *baseLoop) wakeup() {
	b.wakeHandle.Send()
}

// forceClose shuts the loop down regardless of what is still attached.
func (b *baseLoop) forceClose() error {
	if b.closed.Load() {
		return nil
	}
	if !b.running.CompareAndSwap(false, true) {
		return ErrReentrantRun
	}
	defer b.running.Store(false)
	return b.shutdown(true)
}

// destroy is the forced shutdown run once the user-facing Loop has been
// collected.
func (b *baseLoop) destroy() {
	b.logger.Debug().Log(`loop unreachable, forcing shutdown`)
	if err := b.forceClose(); err != nil {
		b.logger.Err().Err(err).Log(`forced loop shutdown failed`)
	}
}

// shutdown closes every handle, cancels every request, drains the reactor,
// and closes it. The caller must hold running. forced is false for an
// explicit Close, which has already checked that nothing is busy.
func (b *baseLoop) shutdown(forced bool) error {
	b.mu.Lock()
	handles := make([]*baseHandle, 0, len(b.handles))
	for s := range b.handles {
		handles = append(handles, s)
	}
	requests := make([]*baseRequest, 0, len(b.requests))
	for s := range b.requests {
		requests = append(requests, s)
	}
	b.mu.Unlock()

	for _, s := range handles {
		s.close()
	}
	for _, s := range requests {
		s.cancel()
	}

	b.mu.Lock()
	clear(b.handlesToClose)
	clear(b.requestsToCancel)
	b.mu.Unlock()

	b.native.Walk(func(h *reactor.Handle) {
		if !h.IsClosing() {
			h.Close(nil)
		}
	})

	b.native.Run(reactor.RunDefault)

	if status := b.native.Close(); status.Failed() {
		// Unreachable after a full drain unless bookkeeping is wrong. Re-arm
		// the internal handles so the loop stays usable.
		if rearm := b.initInternal(); rearm.Failed() {
			b.logger.Crit().
				Str(`status`, rearm.Name()).
				Log(`failed to re-arm internal handles`)
		}
		return &Error{Code: status, Op: opLoopClose}
	}

	registry.remove(b)
	if l := b.user.Value(); l != nil {
		l.taskMu.Lock()
		b.closed.Store(true)
		l.tasks = nil
		l.taskMu.Unlock()
	} else {
		b.closed.Store(true)
	}

	b.metrics.shutdown(forced)
	b.logger.Debug().
		Bool(`forced`, forced).
		Int(`handles`, len(handles)).
		Int(`requests`, len(requests)).
		Log(`loop closed`)
	return nil
}

// busy reports whether any attached handle or request is neither closing nor
// marked for deferred closure.
func (b *baseLoop) busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.handles {
		if _, ok := b.handlesToClose[s]; !ok && !s.closing.Load() {
			return true
		}
	}
	for s := range b.requests {
		if _, ok := b.requestsToCancel[s]; !ok && !s.canceled.Load() {
			return true
		}
	}
	return false
}
