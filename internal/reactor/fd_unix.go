// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"
)

// wakeFd is the loop's cross-goroutine doorbell. Signalling after close is a
// no-op, so late senders never touch a recycled descriptor.
type wakeFd struct {
	mu     sync.RWMutex
	r, w   int
	closed bool
}

func (x *wakeFd) open() error {
	r, w, err := createWakeFd()
	if err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.r, x.w = r, w
	x.closed = false
	return nil
}

func (x *wakeFd) signal() {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return
	}
	buf := [8]byte{1}
	// EAGAIN means the counter or pipe is already readable, which is all we need.
	_, _ = unix.Write(x.w, buf[:])
}

func (x *wakeFd) drain() {
	var buf [64]byte
	for {
		if _, err := unix.Read(x.r, buf[:]); err != nil {
			return
		}
	}
}

func (x *wakeFd) close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	err := unix.Close(x.r)
	if x.w != x.r {
		if err2 := unix.Close(x.w); err == nil {
			err = err2
		}
	}
	return err
}
