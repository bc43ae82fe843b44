// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"container/heap"
	"math"
)

// Timer fires its callback once the loop time reaches its due time, then
// optionally repeats.
type Timer struct {
	Handle
	cb     func(*Timer)
	due    uint64
	repeat uint64
	seq    uint64
	index  int
}

// InitTimer initializes t stopped.
func (l *Loop) InitTimer(t *Timer) Status {
	l.initHandle(&t.Handle, TimerHandle, func() { t.Stop() })
	t.cb = nil
	t.index = -1
	return OK
}

// Start arms the timer to fire timeout ms from the cached loop time, and then
// every repeat ms if repeat is non-zero. A running timer is restarted.
func (t *Timer) Start(cb func(*Timer), timeout, repeat uint64) Status {
	if t.IsClosing() || cb == nil {
		return EINVAL
	}
	t.Stop()

	l := t.loop
	due := l.time + timeout
	if due < l.time {
		due = math.MaxUint64
	}
	l.timerSeq++
	t.cb = cb
	t.due = due
	t.repeat = repeat
	t.seq = l.timerSeq
	heap.Push(&l.timers, t)
	t.activate()
	return OK
}

// Stop removes t from the timer heap. Stopping a stopped timer is OK.
func (t *Timer) Stop() Status {
	if !t.IsActive() {
		return OK
	}
	if t.index >= 0 {
		heap.Remove(&t.loop.timers, t.index)
	}
	t.deactivate()
	return OK
}

// Again restarts a repeating timer using its repeat interval. It fails with
// EINVAL if the timer was never started.
func (t *Timer) Again() Status {
	if t.cb == nil {
		return EINVAL
	}
	if t.repeat != 0 {
		t.Stop()
		return t.Start(t.cb, t.repeat, t.repeat)
	}
	return OK
}

func (t *Timer) Repeat() uint64 { return t.repeat }

// SetRepeat takes effect the next time the timer fires or is restarted.
func (t *Timer) SetRepeat(repeat uint64) { t.repeat = repeat }

// DueIn returns the ms until the timer fires, zero if inactive or overdue.
func (t *Timer) DueIn() uint64 {
	if !t.IsActive() || t.due <= t.loop.time {
		return 0
	}
	return t.due - t.loop.time
}

func (l *Loop) runTimers() {
	for len(l.timers) > 0 {
		t := l.timers[0]
		if t.due > l.time {
			return
		}
		t.Stop()
		t.Again()
		t.cb(t)
	}
}

// timerHeap orders timers by due time, then by start order.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
