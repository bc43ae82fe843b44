// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"errors"
	"sync"
)

// maxFDLimit bounds the descriptor table.
const maxFDLimit = 100000000

// IOEvents is the readiness bit set reported for a watched descriptor.
type IOEvents uint32

const (
	Readable IOEvents = 1 << iota
	Writable
	Disconnect
	Prioritized
)

var (
	errFDOutOfRange        = errors.New("reactor: fd out of range")
	errFDAlreadyRegistered = errors.New("reactor: fd already registered")
	errFDNotRegistered     = errors.New("reactor: fd not registered")
	errPollerClosed        = errors.New("reactor: poller closed")
)

// ioCallback receives the ready subset of the watched events.
type ioCallback func(IOEvents)

type fdInfo struct {
	callback ioCallback
	events   IOEvents
	active   bool
}

// fdTable maps descriptors to their watchers, indexed directly by fd.
//
// Watchers are copied out under mu and invoked outside it, so a callback may
// change registrations, including its own. A callback copied by an in-flight
// dispatch may still run once after its descriptor is removed.
type fdTable struct {
	mu  sync.RWMutex
	fds []fdInfo
}

func (t *fdTable) add(fd int, events IOEvents, cb ioCallback) error {
	if fd < 0 || fd >= maxFDLimit {
		return errFDOutOfRange
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd >= len(t.fds) {
		size := min(max(fd*2+1, 64), maxFDLimit)
		grown := make([]fdInfo, size)
		copy(grown, t.fds)
		t.fds = grown
	}
	if t.fds[fd].active {
		return errFDAlreadyRegistered
	}
	t.fds[fd] = fdInfo{callback: cb, events: events, active: true}
	return nil
}

// replace swaps the watcher of a registered fd, returning the previous set.
func (t *fdTable) replace(fd int, events IOEvents, cb ioCallback) (IOEvents, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.fds) || !t.fds[fd].active {
		return 0, errFDNotRegistered
	}
	prev := t.fds[fd].events
	t.fds[fd] = fdInfo{callback: cb, events: events, active: true}
	return prev, nil
}

// remove returns the set fd was watched for.
func (t *fdTable) remove(fd int) (IOEvents, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.fds) || !t.fds[fd].active {
		return 0, errFDNotRegistered
	}
	prev := t.fds[fd].events
	t.fds[fd] = fdInfo{}
	return prev, nil
}

// dispatch calls the watcher of fd with ready(watched), if that is non-empty.
func (t *fdTable) dispatch(fd int, ready func(watched IOEvents) IOEvents) {
	t.mu.RLock()
	var info fdInfo
	if fd >= 0 && fd < len(t.fds) {
		info = t.fds[fd]
	}
	t.mu.RUnlock()

	if !info.active || info.callback == nil {
		return
	}
	if events := ready(info.events); events != 0 {
		info.callback(events)
	}
}

func pollerStatus(err error) Status {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, errFDOutOfRange):
		return EBADF
	case errors.Is(err, errFDAlreadyRegistered):
		return EEXIST
	case errors.Is(err, errFDNotRegistered):
		return ENOENT
	case errors.Is(err, errPollerClosed):
		return EBADF
	}
	return FromError(err)
}
