// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"os"
	"os/signal"
	"syscall"
)

// Signal delivers a process signal to the loop goroutine.
type Signal struct {
	Handle
	cb      func(*Signal, int)
	signum  int
	oneshot bool
	gen     uint64
	ch      chan os.Signal
	done    chan struct{}
}

// InitSignal initializes s stopped.
func (l *Loop) InitSignal(s *Signal) Status {
	l.initHandle(&s.Handle, SignalHandle, func() { s.Stop() })
	s.cb = nil
	s.signum = 0
	return OK
}

func (s *Signal) Signum() int { return s.signum }

// Start watches signum until stopped. Restarting with the same signal only
// replaces the callback.
func (s *Signal) Start(cb func(*Signal, int), signum int) Status {
	return s.start(cb, signum, false)
}

// StartOneshot is Start, except the handle stops itself before the first
// delivery.
func (s *Signal) StartOneshot(cb func(*Signal, int), signum int) Status {
	return s.start(cb, signum, true)
}

func (s *Signal) start(cb func(*Signal, int), signum int, oneshot bool) Status {
	if s.IsClosing() || cb == nil {
		return EINVAL
	}
	if signum <= 0 || signum >= 65 || signum == int(syscall.SIGKILL) || signum == int(syscall.SIGSTOP) {
		return EINVAL
	}
	if s.IsActive() && s.signum == signum {
		s.cb = cb
		s.oneshot = oneshot
		return OK
	}
	s.Stop()

	s.gen++
	gen := s.gen
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(ch, syscall.Signal(signum))
	s.cb, s.signum, s.oneshot = cb, signum, oneshot
	s.ch, s.done = ch, done

	l := s.loop
	go func() {
		for {
			select {
			case <-ch:
				l.post(func() { s.deliver(gen) })
			case <-done:
				return
			}
		}
	}()

	s.activate()
	return OK
}

// Stop ends delivery to s. Signals already posted to the loop are dropped.
func (s *Signal) Stop() Status {
	if !s.IsActive() {
		return OK
	}
	signal.Stop(s.ch)
	close(s.done)
	s.ch, s.done = nil, nil
	s.gen++
	s.deactivate()
	return OK
}

func (s *Signal) deliver(gen uint64) {
	if !s.IsActive() || s.gen != gen {
		return
	}
	if s.oneshot {
		s.Stop()
	}
	s.cb(s, s.signum)
}
