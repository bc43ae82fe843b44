// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// ProcessOptions describes a child process. File is resolved against PATH
// when it contains no separator, and Args, if set, includes argv[0].
type ProcessOptions = reactor.ProcessOptions

// ProcessExitCallback receives the child's exit status, or the signal that
// terminated it.
type ProcessExitCallback func(p *Process, exitStatus int64, termSignal int)

// Process is a spawned child. It is active, and held by its loop, until the
// child exits. Closing the handle does not kill the child.
type Process struct {
	handle
	native *reactor.Process
	onExit ProcessExitCallback
}

// Spawn starts a child process attached to loop, the default loop if nil.
// A child that fails to start returns an *InitError carrying the status,
// ENOENT for a program that was not found.
func Spawn(loop *Loop, opts ProcessOptions, onExit ProcessExitCallback) (*Process, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	p := &Process{native: new(reactor.Process), onExit: onExit}
	if err := openHandle(loop, p, ProcessHandle, &p.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.Spawn(p.native, opts, onProcessExit)
	}); err != nil {
		return nil, err
	}
	p.retain()
	return p, nil
}

// PID returns the child's process id.
func (p *Process) PID() int { return p.native.PID() }

// Kill sends signum to the child. ESRCH once it has exited.
func (p *Process) Kill(signum int) error {
	if err := p.usable(); err != nil {
		return err
	}
	return newError(p.native.Kill(signum), `process_kill`)
}

// Kill sends signum to an arbitrary process.
func Kill(pid, signum int) error {
	return newError(reactor.Kill(pid, signum), `kill`)
}

func onProcessExit(n *reactor.Process, exitStatus int64, termSignal int) {
	p, ok := dispatchHandle(&n.Handle).(*Process)
	if !ok {
		return
	}
	p.release()
	if cb := p.onExit; cb != nil {
		p.base.loop.invoke(`process`, `on_exit`, func() { cb(p, exitStatus, termSignal) })
	}
}
