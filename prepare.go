// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// Prepare runs a callback right before the loop polls for I/O, after the
// loop's own pre-poll cleanup of handles that were dropped or closed
// elsewhere.
type Prepare struct {
	phaseHandle
}

// NewPrepare creates a stopped prepare handle on loop, the default loop if nil.
func NewPrepare(loop *Loop) (*Prepare, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	x := &Prepare{phaseHandle{native: new(reactor.Phase), name: `prepare`}}
	if err := openHandle(loop, x, PrepareHandle, &x.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.InitPrepare(x.native)
	}); err != nil {
		return nil, err
	}
	return x, nil
}

// Start does nothing if the handle is already started.
func (x *Prepare) Start(callback func(*Prepare)) error {
	if callback == nil {
		return x.start(nil)
	}
	return x.start(func() { callback(x) })
}

// Stop ends the per-iteration calls. Stopping a stopped handle does nothing.
func (x *Prepare) Stop() error { return x.stop() }

func (x *Prepare) phase() *phaseHandle { return &x.phaseHandle }
