// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package reactor

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

type ioPoller = kqueuePoller

// kqueuePoller maps Readable, Disconnect and Prioritized onto EVFILT_READ,
// and Writable onto EVFILT_WRITE.
type kqueuePoller struct {
	kq     int
	ready  [256]unix.Kevent_t
	table  fdTable
	closed atomic.Bool
}

func (p *kqueuePoller) open() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	p.table = fdTable{}
	p.closed.Store(false)
	return nil
}

func (p *kqueuePoller) close() error {
	if p.closed.Swap(true) || p.kq <= 0 {
		return nil
	}
	return unix.Close(p.kq)
}

// fd returns the kqueue descriptor, -1 once closed.
func (p *kqueuePoller) fd() int {
	if p.closed.Load() {
		return -1
	}
	return p.kq
}

func (p *kqueuePoller) register(fd int, events IOEvents, cb ioCallback) error {
	if p.closed.Load() {
		return errPollerClosed
	}
	if err := p.table.add(fd, events, cb); err != nil {
		return err
	}
	if err := p.apply(fd, filtersOf(events), unix.EV_ADD|unix.EV_ENABLE); err != nil {
		_, _ = p.table.remove(fd)
		return err
	}
	return nil
}

func (p *kqueuePoller) modify(fd int, events IOEvents, cb ioCallback) error {
	prev, err := p.table.replace(fd, events, cb)
	if err != nil {
		return err
	}
	before, after := filtersOf(prev), filtersOf(events)
	_ = p.apply(fd, before&^after, unix.EV_DELETE)
	return p.apply(fd, after&^before, unix.EV_ADD|unix.EV_ENABLE)
}

func (p *kqueuePoller) unregister(fd int) error {
	prev, err := p.table.remove(fd)
	if err != nil {
		return err
	}
	if !p.closed.Load() {
		_ = p.apply(fd, filtersOf(prev), unix.EV_DELETE)
	}
	return nil
}

type kqFilters uint8

const (
	filterRead kqFilters = 1 << iota
	filterWrite
)

func filtersOf(events IOEvents) kqFilters {
	var f kqFilters
	if events&(Readable|Disconnect|Prioritized) != 0 {
		f |= filterRead
	}
	if events&Writable != 0 {
		f |= filterWrite
	}
	return f
}

func (p *kqueuePoller) apply(fd int, filters kqFilters, flags uint16) error {
	var changes []unix.Kevent_t
	if filters&filterRead != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if filters&filterWrite != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

// wait blocks up to timeoutMs, -1 meaning forever, then dispatches whatever
// became ready. An interrupted wait reports nothing ready.
func (p *kqueuePoller) wait(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, errPollerClosed
	}
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.ready[:], ts)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for i := range p.ready[:n] {
		kev := p.ready[i]
		p.table.dispatch(int(kev.Ident), func(watched IOEvents) IOEvents {
			return kqueueReady(kev.Filter, kev.Flags, watched)
		})
	}
	return n, nil
}

func kqueueReady(filter int16, flags uint16, watched IOEvents) IOEvents {
	var events IOEvents
	switch filter {
	case unix.EVFILT_READ:
		events |= Readable
		if flags&unix.EV_EOF != 0 {
			events |= Disconnect
		}
	case unix.EVFILT_WRITE:
		events |= Writable
	}
	if flags&unix.EV_ERROR != 0 {
		events |= Readable | Writable
	}
	return events & watched
}
