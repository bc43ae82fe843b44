// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// ProcessOptions describes a child process to spawn.
type ProcessOptions struct {
	// File is the program to execute, resolved against PATH when it contains
	// no separator.
	File string
	// Args is the full argument vector, Args[0] included. Defaults to File.
	Args []string
	// Env replaces the environment when non-nil.
	Env []string
	// Cwd is the working directory of the child, the parent's when empty.
	Cwd    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Detached starts the child in its own session.
	Detached bool
	UID      *uint32
	GID      *uint32
}

// Process is a spawned child. It is active until the child exits.
type Process struct {
	Handle
	cb   func(p *Process, exitStatus int64, termSignal int)
	pid  int
	proc *os.Process
}

// Spawn starts the child and initializes p. On failure p is left
// uninitialized and does not need to be closed.
func (l *Loop) Spawn(p *Process, opts ProcessOptions, cb func(*Process, int64, int)) Status {
	if opts.File == `` {
		return EINVAL
	}
	path, err := exec.LookPath(opts.File)
	if err != nil {
		return spawnStatus(err)
	}
	args := opts.Args
	if len(args) == 0 {
		args = []string{opts.File}
	}
	cmd := &exec.Cmd{
		Path:   path,
		Args:   args,
		Env:    opts.Env,
		Dir:    opts.Cwd,
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	}
	attr := &syscall.SysProcAttr{Setsid: opts.Detached}
	if opts.UID != nil || opts.GID != nil {
		cred := &syscall.Credential{Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}
		if opts.UID != nil {
			cred.Uid = *opts.UID
		}
		if opts.GID != nil {
			cred.Gid = *opts.GID
		}
		attr.Credential = cred
	}
	cmd.SysProcAttr = attr
	if err := cmd.Start(); err != nil {
		return spawnStatus(err)
	}

	l.initHandle(&p.Handle, ProcessHandle, nil)
	p.cb = cb
	p.pid = cmd.Process.Pid
	p.proc = cmd.Process
	p.activate()

	go func() {
		err := cmd.Wait()
		exitStatus, termSignal := exitInfo(cmd.ProcessState, err)
		l.post(func() { p.exited(exitStatus, termSignal) })
	}()
	return OK
}

func (p *Process) PID() int { return p.pid }

// Kill sends signum to the child. ESRCH once it has exited.
func (p *Process) Kill(signum int) Status {
	if p.proc == nil {
		return ESRCH
	}
	if err := p.proc.Signal(syscall.Signal(signum)); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return ESRCH
		}
		return FromError(err)
	}
	return OK
}

// Kill sends signum to an arbitrary process id.
func Kill(pid, signum int) Status {
	return FromError(unix.Kill(pid, syscall.Signal(signum)))
}

func (p *Process) exited(exitStatus int64, termSignal int) {
	p.proc = nil
	if !p.IsActive() {
		return
	}
	p.deactivate()
	if !p.IsClosing() && p.cb != nil {
		p.cb(p, exitStatus, termSignal)
	}
}

func exitInfo(state *os.ProcessState, err error) (int64, int) {
	if state == nil {
		if err != nil {
			return int64(FromError(err)), 0
		}
		return 0, 0
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 0, int(ws.Signal())
	}
	return int64(state.ExitCode()), 0
}

func spawnStatus(err error) Status {
	if errors.Is(err, exec.ErrNotFound) {
		return ENOENT
	}
	return FromError(err)
}
