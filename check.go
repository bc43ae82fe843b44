// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// Check runs a callback right after the loop polls for I/O.
type Check struct {
	phaseHandle
}

// NewCheck creates a stopped check handle on loop, the default loop if nil.
func NewCheck(loop *Loop) (*Check, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	x := &Check{phaseHandle{native: new(reactor.Phase), name: `check`}}
	if err := openHandle(loop, x, CheckHandle, &x.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.InitCheck(x.native)
	}); err != nil {
		return nil, err
	}
	return x, nil
}

// Start calls callback once per loop iteration, right after polling for I/O.
// Starting an active handle does nothing.
func (x *Check) Start(callback func(*Check)) error {
	if callback == nil {
		return x.start(nil)
	}
	return x.start(func() { callback(x) })
}

// Stop ends the per-iteration calls. Stopping a stopped handle does nothing.
func (x *Check) Stop() error { return x.stop() }

func (x *Check) phase() *phaseHandle { return &x.phaseHandle }
