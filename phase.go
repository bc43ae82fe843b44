// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// phaseHandle is the shared implementation of Prepare, Check, and Idle.
type phaseHandle struct {
	handle
	native *reactor.Phase
	name   string
	// callback is invoked with the user-facing handle.
	callback func()
}

func (p *phaseHandle) start(callback func()) error {
	if err := p.usable(); err != nil {
		return err
	}
	if callback == nil {
		return &Error{Code: EINVAL, Op: p.name + `_start`}
	}
	if p.native.IsActive() {
		return nil
	}
	if status := p.native.Start(onPhase); status.Failed() {
		return &Error{Code: status, Op: p.name + `_start`}
	}
	p.callback = callback
	p.retain()
	return nil
}

func (p *phaseHandle) stop() error {
	if err := p.usable(); err != nil {
		return err
	}
	if status := p.native.Stop(); status.Failed() {
		return &Error{Code: status, Op: p.name + `_stop`}
	}
	p.release()
	return nil
}

// phaseOwner is implemented by the user-facing phase handles.
type phaseOwner interface {
	Handle
	phase() *phaseHandle
}

func onPhase(n *reactor.Phase) {
	u, ok := dispatchHandle(&n.Handle).(phaseOwner)
	if !ok {
		return
	}
	p := u.phase()
	if cb := p.callback; cb != nil {
		p.base.loop.invoke(p.name, `callback`, cb)
	}
}
