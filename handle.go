// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

// Closeable is implemented by every handle.
type Closeable interface {
	// Close stops the handle and releases it. onClosed, if non-nil, runs on
	// the loop goroutine once the reactor has finished closing the handle,
	// on a later iteration. Calls after the first do nothing.
	Close(onClosed func(Handle))
	// Closing reports whether Close has been called, or the handle was
	// released because it became unreachable, or it failed to initialize.
	Closing() bool
	// Closed reports whether the reactor has finished closing the handle.
	Closed() bool
}

// Referenceable is implemented by every handle. Only referenced active
// handles keep Loop.Run from returning.
type Referenceable interface {
	Referenced() bool
	Reference() error
	Dereference() error
}

// Cancelable is implemented by every request.
type Cancelable interface {
	Cancel() error
}

// Handle is a long-lived resource attached to a loop.
type Handle interface {
	Closeable
	Referenceable
	Loop() *Loop
	Type() HandleType
	// Active reports whether the handle is started. What counts as started
	// depends on the type.
	Active() bool

	handleBase() *handle
}

// handle is embedded in every concrete handle type.
type handle struct {
	loop     *Loop
	base     *baseHandle
	onClosed func(Handle)
}

func (h *handle) handleBase() *handle { return h }

// Loop returns the loop the handle is attached to.
func (h *handle) Loop() *Loop { return h.loop }

// Type returns the concrete handle type.
func (h *handle) Type() HandleType { return h.base.kind }

// Active is false once the handle is closing.
func (h *handle) Active() bool {
	return !h.base.closing.Load() && h.base.native.IsActive()
}

// Closing reports whether Close has been called, or the handle was released.
func (h *handle) Closing() bool { return h.base.closing.Load() }

// Closed reports whether the close has completed.
func (h *handle) Closed() bool { return h.base.closed.Load() }

// Referenced is false once the handle has closed.
func (h *handle) Referenced() bool {
	return !h.base.closed.Load() && h.base.native.HasRef()
}

// Reference makes the handle keep the loop alive while active.
func (h *handle) Reference() error {
	if h.base.closing.Load() {
		return ErrHandleClosed
	}
	h.base.native.Ref()
	return nil
}

// Dereference stops the handle from keeping the loop alive. It still fires.
func (h *handle) Dereference() error {
	if h.base.closing.Load() {
		return ErrHandleClosed
	}
	h.base.native.Unref()
	return nil
}

// Close stops the handle. The handle stays reachable until onClosed runs.
func (h *handle) Close(onClosed func(Handle)) {
	if h.base.closing.Load() {
		return
	}
	h.onClosed = onClosed
	// held until the close trampoline runs
	h.loop.setPending(h)
	h.base.close()
}

// retain keeps the handle reachable through its loop while it is started.
func (h *handle) retain() { h.loop.setPending(h) }

func (h *handle) release() { h.loop.clearPending(h) }

// usable is the guard shared by handle operations that touch the reactor.
func (h *handle) usable() error {
	if h.base.closing.Load() {
		return ErrHandleClosed
	}
	return nil
}
