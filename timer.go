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

// Timer calls a function after a delay, then optionally at a fixed interval.
// Durations are rounded down to whole milliseconds.
type Timer struct {
	handle
	native    *reactor.Timer
	onTimeout func(*Timer)
}

// NewTimer creates a stopped timer on loop, the default loop if nil.
func NewTimer(loop *Loop) (*Timer, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	t := &Timer{native: new(reactor.Timer)}
	if err := openHandle(loop, t, TimerHandle, &t.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.InitTimer(t.native)
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// Start arms the timer to call onTimeout after timeout, then every repeat if
// repeat is non-zero. A running timer is restarted. A nil onTimeout reuses the
// previous callback.
func (t *Timer) Start(timeout, repeat time.Duration, onTimeout func(*Timer)) error {
	if err := t.usable(); err != nil {
		return err
	}
	if onTimeout == nil {
		onTimeout = t.onTimeout
	}
	if onTimeout == nil {
		return &Error{Code: EINVAL, Op: `timer_start`}
	}
	if status := t.native.Start(onTimerFire, millis(timeout), millis(repeat)); status.Failed() {
		return &Error{Code: status, Op: `timer_start`}
	}
	t.onTimeout = onTimeout
	t.retain()
	return nil
}

// Stop disarms the timer. Stopping a stopped timer does nothing.
func (t *Timer) Stop() error {
	if err := t.usable(); err != nil {
		return err
	}
	if status := t.native.Stop(); status.Failed() {
		return &Error{Code: status, Op: `timer_stop`}
	}
	t.release()
	return nil
}

// Again restarts a repeating timer from now, using its repeat interval as the
// timeout. It fails with EINVAL if the timer was never started.
func (t *Timer) Again() error {
	if err := t.usable(); err != nil {
		return err
	}
	if status := t.native.Again(); status.Failed() {
		return &Error{Code: status, Op: `timer_again`}
	}
	if t.native.IsActive() {
		t.retain()
	}
	return nil
}

// Repeat returns the repeat interval.
func (t *Timer) Repeat() time.Duration {
	return time.Duration(t.native.Repeat()) * time.Millisecond
}

// SetRepeat takes effect the next time the timer fires or is restarted.
func (t *Timer) SetRepeat(repeat time.Duration) error {
	if err := t.usable(); err != nil {
		return err
	}
	t.native.SetRepeat(millis(repeat))
	return nil
}

// DueIn returns the time until the timer fires, zero if stopped or overdue.
func (t *Timer) DueIn() time.Duration {
	if t.base.closing.Load() {
		return 0
	}
	return time.Duration(t.native.DueIn()) * time.Millisecond
}

func onTimerFire(n *reactor.Timer) {
	t, ok := dispatchHandle(&n.Handle).(*Timer)
	if !ok {
		return
	}
	if !n.IsActive() {
		t.release()
	}
	if cb := t.onTimeout; cb != nil {
		t.base.loop.invoke(`timer`, `on_timeout`, func() { cb(t) })
	}
}

func millis(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}
