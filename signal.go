// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// Signal delivers a process signal to the loop goroutine. Any number of
// handles, on any loops, may watch the same signal.
type Signal struct {
	handle
	native   *reactor.Signal
	onSignal func(s *Signal, signum int)
}

// NewSignal creates a stopped signal handle on loop, the default loop if nil.
func NewSignal(loop *Loop) (*Signal, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	s := &Signal{native: new(reactor.Signal)}
	if err := openHandle(loop, s, SignalHandle, &s.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.InitSignal(s.native)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Start watches signum until stopped. Starting again with the same signal
// only replaces the callback. SIGKILL and SIGSTOP fail with EINVAL.
func (s *Signal) Start(signum int, onSignal func(s *Signal, signum int)) error {
	return s.start(signum, onSignal, false, `signal_start`)
}

// StartOneshot is Start, except the handle stops before the first delivery.
func (s *Signal) StartOneshot(signum int, onSignal func(s *Signal, signum int)) error {
	return s.start(signum, onSignal, true, `signal_start_oneshot`)
}

func (s *Signal) start(signum int, onSignal func(*Signal, int), oneshot bool, op string) error {
	if err := s.usable(); err != nil {
		return err
	}
	if onSignal == nil {
		return &Error{Code: EINVAL, Op: op}
	}
	start := s.native.Start
	if oneshot {
		start = s.native.StartOneshot
	}
	if status := start(onSignalDelivered, signum); status.Failed() {
		return &Error{Code: status, Op: op}
	}
	s.onSignal = onSignal
	s.retain()
	return nil
}

// Stop ends delivery to this handle. Other handles watching the same signal
// are unaffected.
func (s *Signal) Stop() error {
	if err := s.usable(); err != nil {
		return err
	}
	if status := s.native.Stop(); status.Failed() {
		return &Error{Code: status, Op: `signal_stop`}
	}
	s.release()
	return nil
}

// Signum returns the watched signal, zero if never started.
func (s *Signal) Signum() int { return s.native.Signum() }

func onSignalDelivered(n *reactor.Signal, signum int) {
	s, ok := dispatchHandle(&n.Handle).(*Signal)
	if !ok {
		return
	}
	if !n.IsActive() {
		s.release()
	}
	if cb := s.onSignal; cb != nil {
		s.base.loop.invoke(`signal`, `on_signal`, func() { cb(s, signum) })
	}
}
