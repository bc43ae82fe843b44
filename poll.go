// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// PollEvent is a set of descriptor readiness conditions.
type PollEvent = reactor.IOEvents

// Readiness conditions, combined as a bit set.
const (
	Readable    = reactor.Readable
	Writable    = reactor.Writable
	Disconnect  = reactor.Disconnect
	Prioritized = reactor.Prioritized
)

// Poll watches a descriptor the caller owns for readiness. Closing the handle
// never closes the descriptor.
type Poll struct {
	handle
	native  *reactor.Poll
	onEvent func(p *Poll, status StatusCode, events PollEvent)
}

// NewPoll fails with EBADF, wrapped in an *InitError, if fd is not open.
func NewPoll(loop *Loop, fd int) (*Poll, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	p := &Poll{native: new(reactor.Poll)}
	if err := openHandle(loop, p, PollHandle, &p.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.InitPoll(p.native, fd)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// Start watches events, replacing any previous set and callback. An empty set
// stops the handle.
func (p *Poll) Start(events PollEvent, onEvent func(p *Poll, status StatusCode, events PollEvent)) error {
	if err := p.usable(); err != nil {
		return err
	}
	if onEvent == nil {
		return &Error{Code: EINVAL, Op: `poll_start`}
	}
	if status := p.native.Start(events, onPollEvent); status.Failed() {
		return &Error{Code: status, Op: `poll_start`}
	}
	p.onEvent = onEvent
	if p.native.IsActive() {
		p.retain()
	} else {
		p.release()
	}
	return nil
}

// Stop ends polling, leaving the descriptor open.
func (p *Poll) Stop() error {
	if err := p.usable(); err != nil {
		return err
	}
	if status := p.native.Stop(); status.Failed() {
		return &Error{Code: status, Op: `poll_stop`}
	}
	p.release()
	return nil
}

// Fileno returns the watched descriptor.
func (p *Poll) Fileno() int { return p.native.Fd() }

func onPollEvent(n *reactor.Poll, status reactor.Status, events reactor.IOEvents) {
	p, ok := dispatchHandle(&n.Handle).(*Poll)
	if !ok {
		return
	}
	if cb := p.onEvent; cb != nil {
		p.base.loop.invoke(`poll`, `on_event`, func() { cb(p, status, events) })
	}
}
