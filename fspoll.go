// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"time"

	"github.com/joeycumines/go-uv/internal/reactor"
)

// DefaultFSPollInterval is the polling interval used when Start is given
// zero.
const DefaultFSPollInterval = 5 * time.Second

// FSPollCallback receives the previous and current stat results. On failure
// status is negative and curr is zero; each distinct failure is reported once.
type FSPollCallback func(p *FSPoll, status StatusCode, prev, curr Stat)

// FSPoll watches a path by calling stat on it at an interval. It works on
// filesystems where FSEvent does not, at the cost of latency. Intervals below
// a second may miss changes on filesystems with coarse timestamps.
type FSPoll struct {
	handle
	native   *reactor.FSPoll
	onChange FSPollCallback
}

// NewFSPoll creates a stopped poller on loop, the default loop if nil.
func NewFSPoll(loop *Loop) (*FSPoll, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	p := &FSPoll{native: new(reactor.FSPoll)}
	if err := openHandle(loop, p, FSPollHandle, &p.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.InitFSPoll(p.native)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// Start polls path every interval, DefaultFSPollInterval if zero. The first
// stat only records a baseline, unless it fails. Starting an active poller
// does nothing.
func (p *FSPoll) Start(path string, interval time.Duration, onChange FSPollCallback) error {
	if err := p.usable(); err != nil {
		return err
	}
	if onChange == nil || interval < 0 {
		return &Error{Code: EINVAL, Op: `fs_poll_start`}
	}
	if interval == 0 {
		interval = DefaultFSPollInterval
	}
	if p.native.IsActive() {
		return nil
	}
	if status := p.native.Start(onFSPollChange, path, millis(interval)); status.Failed() {
		return &Error{Code: status, Op: `fs_poll_start`}
	}
	p.onChange = onChange
	p.retain()
	return nil
}

// Stop ends polling. Stopping a stopped poller does nothing.
func (p *FSPoll) Stop() error {
	if err := p.usable(); err != nil {
		return err
	}
	if status := p.native.Stop(); status.Failed() {
		return &Error{Code: status, Op: `fs_poll_stop`}
	}
	p.release()
	return nil
}

// Path returns the polled path. It fails with EINVAL while stopped.
func (p *FSPoll) Path() (string, error) {
	if err := p.usable(); err != nil {
		return ``, err
	}
	path, status := p.native.Path()
	if status.Failed() {
		return ``, &Error{Code: status, Op: `fs_poll_getpath`}
	}
	return path, nil
}

// Interval returns the interval of the last Start.
func (p *FSPoll) Interval() time.Duration {
	return time.Duration(p.native.Interval()) * time.Millisecond
}

func onFSPollChange(n *reactor.FSPoll, status reactor.Status, prev, curr reactor.Stat) {
	p, ok := dispatchHandle(&n.Handle).(*FSPoll)
	if !ok {
		return
	}
	if cb := p.onChange; cb != nil {
		p.base.loop.invoke(`fs_poll`, `on_change`, func() { cb(p, status, prev, curr) })
	}
}
