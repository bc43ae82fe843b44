// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package reactor

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

type ioPoller = epollPoller

// epollPoller is level triggered, one epoll registration per descriptor.
type epollPoller struct {
	epfd   int
	ready  [256]unix.EpollEvent
	table  fdTable
	closed atomic.Bool
}

func (p *epollPoller) open() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	p.table = fdTable{}
	p.closed.Store(false)
	return nil
}

func (p *epollPoller) close() error {
	if p.closed.Swap(true) || p.epfd <= 0 {
		return nil
	}
	return unix.Close(p.epfd)
}

// fd returns the epoll descriptor, -1 once closed.
func (p *epollPoller) fd() int {
	if p.closed.Load() {
		return -1
	}
	return p.epfd
}

func (p *epollPoller) register(fd int, events IOEvents, cb ioCallback) error {
	if p.closed.Load() {
		return errPollerClosed
	}
	if err := p.table.add(fd, events, cb); err != nil {
		return err
	}
	if err := p.ctl(unix.EPOLL_CTL_ADD, fd, events); err != nil {
		_, _ = p.table.remove(fd)
		return err
	}
	return nil
}

func (p *epollPoller) modify(fd int, events IOEvents, cb ioCallback) error {
	if _, err := p.table.replace(fd, events, cb); err != nil {
		return err
	}
	return p.ctl(unix.EPOLL_CTL_MOD, fd, events)
}

func (p *epollPoller) unregister(fd int) error {
	if _, err := p.table.remove(fd); err != nil {
		return err
	}
	if p.closed.Load() {
		return nil
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) ctl(op, fd int, events IOEvents) error {
	var mask uint32
	if events&Readable != 0 {
		mask |= unix.EPOLLIN
	}
	if events&Writable != 0 {
		mask |= unix.EPOLLOUT
	}
	if events&Disconnect != 0 {
		mask |= unix.EPOLLRDHUP
	}
	if events&Prioritized != 0 {
		mask |= unix.EPOLLPRI
	}
	return unix.EpollCtl(p.epfd, op, fd, &unix.EpollEvent{Events: mask, Fd: int32(fd)})
}

// wait blocks up to timeoutMs, -1 meaning forever, then dispatches whatever
// became ready. An interrupted wait reports nothing ready.
func (p *epollPoller) wait(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, errPollerClosed
	}
	n, err := unix.EpollWait(p.epfd, p.ready[:], timeoutMs)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for _, ev := range p.ready[:n] {
		mask := ev.Events
		p.table.dispatch(int(ev.Fd), func(watched IOEvents) IOEvents {
			return epollReady(mask, watched)
		})
	}
	return n, nil
}

// epollReady reports errors and hangups as every watched event, so the
// watcher observes the failure on its next read or write.
func epollReady(mask uint32, watched IOEvents) IOEvents {
	var events IOEvents
	if mask&unix.EPOLLIN != 0 {
		events |= Readable
	}
	if mask&unix.EPOLLOUT != 0 {
		events |= Writable
	}
	if mask&unix.EPOLLRDHUP != 0 {
		events |= Disconnect
	}
	if mask&unix.EPOLLPRI != 0 {
		events |= Prioritized
	}
	if mask&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		events |= Readable | Writable | Disconnect
	}
	return events & watched
}
