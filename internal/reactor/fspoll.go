// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

// FSPoll watches a path by calling stat(2) on it at a fixed interval, for
// filesystems where FSEvent does not work. The callback runs when the result
// differs from the previous one, and once for each change of error.
type FSPoll struct {
	Handle
	cb       func(p *FSPoll, status Status, prev, curr Stat)
	path     string
	interval uint64
	timer    Timer
	req      FS
	// last is zero before the first stat, positive after a successful one,
	// otherwise the last failure.
	last  Status
	prev  Stat
	start uint64
	gen   uint64
	busy  bool
}

// InitFSPoll also initializes the internal timer, which never keeps the loop
// alive and is closed with the handle.
func (l *Loop) InitFSPoll(p *FSPoll) Status {
	l.initHandle(&p.Handle, FSPollHandle, func() {
		p.Stop()
		p.timer.Close(nil)
	})
	p.cb = nil
	p.path = ``
	p.busy = false
	if status := l.InitTimer(&p.timer); status.Failed() {
		return status
	}
	p.timer.Unref()
	return OK
}

// Start polls path every interval ms, zero meaning 1. The first stat runs
// immediately and only establishes the baseline, unless it fails. Starting an
// active handle does nothing.
func (p *FSPoll) Start(cb func(*FSPoll, Status, Stat, Stat), path string, interval uint64) Status {
	if p.IsClosing() || cb == nil || path == `` {
		return EINVAL
	}
	if p.IsActive() {
		return OK
	}
	if interval == 0 {
		interval = 1
	}
	p.gen++
	p.cb = cb
	p.path = path
	p.interval = interval
	p.last = OK
	p.prev = Stat{}
	p.activate()
	if !p.busy {
		p.poll()
	}
	return OK
}

// Stop ends polling. A stat already in flight completes without a callback.
func (p *FSPoll) Stop() Status {
	if !p.IsActive() {
		return OK
	}
	p.timer.Stop()
	p.gen++
	p.deactivate()
	return OK
}

// Path returns the polled path, or EINVAL if the handle is not started.
func (p *FSPoll) Path() (string, Status) {
	if !p.IsActive() {
		return ``, EINVAL
	}
	return p.path, OK
}

// Interval returns the polling interval in ms.
func (p *FSPoll) Interval() uint64 { return p.interval }

func (p *FSPoll) poll() {
	gen := p.gen
	p.busy = true
	p.start = p.loop.time
	p.loop.FSStat(&p.req, p.path, func(r *FS) { p.statDone(gen, r) })
}

func (p *FSPoll) statDone(gen uint64, r *FS) {
	p.busy = false
	if !p.IsActive() {
		return
	}
	if gen != p.gen {
		// restarted while the stat was in flight
		p.poll()
		return
	}

	if r.Result < 0 {
		status := Status(r.Result)
		if p.last != status {
			p.last = status
			p.cb(p, status, p.prev, Stat{})
		}
	} else {
		curr := r.Stat
		if p.last < 0 || (p.last > 0 && !statEqual(p.prev, curr)) {
			p.cb(p, OK, p.prev, curr)
		}
		p.prev = curr
		p.last = 1
	}

	if !p.IsActive() || gen != p.gen {
		return
	}
	elapsed := p.loop.time - p.start
	p.timer.Start(p.onTimer, p.interval-elapsed%p.interval, 0)
}

func (p *FSPoll) onTimer(*Timer) {
	if p.IsActive() && !p.busy {
		p.poll()
	}
}

// statEqual compares the fields a modification can change. Access time is
// deliberately ignored.
func statEqual(a, b Stat) bool {
	return a.Dev == b.Dev &&
		a.Ino == b.Ino &&
		a.Mode == b.Mode &&
		a.UID == b.UID &&
		a.GID == b.GID &&
		a.Size == b.Size &&
		a.Flags == b.Flags &&
		a.Gen == b.Gen &&
		a.Mtime.Equal(b.Mtime) &&
		a.Ctime.Equal(b.Ctime) &&
		a.Birthtime.Equal(b.Birthtime)
}
