// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// Idle runs a callback once per iteration. While any idle handle is active
// the loop polls for I/O without blocking.
type Idle struct {
	phaseHandle
}

// NewIdle creates a stopped idle handle on loop, the default loop if nil.
func NewIdle(loop *Loop) (*Idle, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	x := &Idle{phaseHandle{native: new(reactor.Phase), name: `idle`}}
	if err := openHandle(loop, x, IdleHandle, &x.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.InitIdle(x.native)
	}); err != nil {
		return nil, err
	}
	return x, nil
}

// Start does nothing if the handle is already started.
func (x *Idle) Start(callback func(*Idle)) error {
	if callback == nil {
		return x.start(nil)
	}
	return x.start(func() { callback(x) })
}

// Stop ends the per-iteration calls, letting the loop block for I/O again.
func (x *Idle) Stop() error { return x.stop() }

func (x *Idle) phase() *phaseHandle { return &x.phaseHandle }
