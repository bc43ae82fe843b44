// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"slices"
)

// Phase is a prepare, check, or idle handle. Prepare callbacks run right
// before the loop polls for I/O, check callbacks right after, and idle
// callbacks once per iteration while forcing a zero poll timeout.
type Phase struct {
	Handle
	cb   func(*Phase)
	list *phaseList
}

// InitPrepare initializes a handle run before every poll.
func (l *Loop) InitPrepare(p *Phase) Status { return l.initPhase(p, PrepareHandle, &l.prepares) }

// InitCheck initializes a handle run after every poll.
func (l *Loop) InitCheck(p *Phase) Status { return l.initPhase(p, CheckHandle, &l.checks) }

// InitIdle initializes a handle run every iteration while active. An active
// idle handle makes the poll non-blocking.
func (l *Loop) InitIdle(p *Phase) Status { return l.initPhase(p, IdleHandle, &l.idles) }

func (l *Loop) initPhase(p *Phase, kind HandleKind, list *phaseList) Status {
	l.initHandle(&p.Handle, kind, func() { p.Stop() })
	p.cb = nil
	p.list = list
	return OK
}

// Start is a no-op if the handle is already active.
func (p *Phase) Start(cb func(*Phase)) Status {
	if p.IsClosing() || cb == nil {
		return EINVAL
	}
	if p.IsActive() {
		return OK
	}
	p.cb = cb
	*p.list = append(*p.list, p)
	p.activate()
	return OK
}

// Stop removes p from its phase, effective for the current run too.
func (p *Phase) Stop() Status {
	if !p.IsActive() {
		return OK
	}
	if i := slices.Index(*p.list, p); i >= 0 {
		*p.list = slices.Delete(*p.list, i, i+1)
	}
	p.deactivate()
	return OK
}

type phaseList []*Phase

// run invokes the handles active when the phase began that are still active.
func (x phaseList) run() {
	if len(x) == 0 {
		return
	}
	for _, p := range slices.Clone(x) {
		if p.IsActive() {
			p.cb(p)
		}
	}
}
