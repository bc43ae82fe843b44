// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"golang.org/x/sys/unix"
)

// Poll watches a descriptor owned by the caller for readiness.
type Poll struct {
	Handle
	cb         func(*Poll, Status, IOEvents)
	fd         int
	events     IOEvents
	registered bool
}

// InitPoll fails with EBADF if fd is not an open descriptor.
func (l *Loop) InitPoll(p *Poll, fd int) Status {
	if fd < 0 {
		return EBADF
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
		return FromError(err)
	}
	l.initHandle(&p.Handle, PollHandle, func() { p.Stop() })
	p.cb = nil
	p.fd = fd
	p.events = 0
	p.registered = false
	return OK
}

func (p *Poll) Fd() int { return p.fd }

// Start watches events, replacing any previous event set. Starting with no
// events stops the handle.
func (p *Poll) Start(events IOEvents, cb func(*Poll, Status, IOEvents)) Status {
	if p.IsClosing() || cb == nil {
		return EINVAL
	}
	if events&^(Readable|Writable|Disconnect|Prioritized) != 0 {
		return EINVAL
	}
	if events == 0 {
		return p.Stop()
	}

	var err error
	if p.registered {
		err = p.loop.poller.modify(p.fd, events, p.dispatch)
	} else {
		err = p.loop.poller.register(p.fd, events, p.dispatch)
	}
	if err != nil {
		return pollerStatus(err)
	}
	p.registered = true
	p.cb = cb
	p.events = events
	p.activate()
	return OK
}

// Stop deregisters the descriptor from the backend without closing it.
func (p *Poll) Stop() Status {
	if p.registered {
		_ = p.loop.poller.unregister(p.fd)
		p.registered = false
	}
	p.events = 0
	p.deactivate()
	return OK
}

func (p *Poll) dispatch(events IOEvents) {
	if !p.IsActive() || p.cb == nil {
		return
	}
	p.cb(p, OK, events)
}
