// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// loopRegistry is the process-wide table of base loops that have not yet
// closed. It is the only strong root of a base loop, so a loop's native
// resources stay alive until its shutdown completes, however the user-facing
// Loop is dropped.
type loopRegistry struct {
	mu    sync.Mutex
	loops map[*baseLoop]struct{}
}

var registry = loopRegistry{loops: make(map[*baseLoop]struct{})}

func (x *loopRegistry) add(b *baseLoop) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.loops[b] = struct{}{}
}

// remove reports whether b was present.
func (x *loopRegistry) remove(b *baseLoop) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.loops[b]; !ok {
		return false
	}
	delete(x.loops, b)
	return true
}

func (x *loopRegistry) contains(b *baseLoop) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.loops[b]
	return ok
}

func (x *loopRegistry) snapshot() []*baseLoop {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]*baseLoop, 0, len(x.loops))
	for b := range x.loops {
		out = append(out, b)
	}
	return out
}

// Loops returns every loop that is still open and reachable.
func Loops() []*Loop {
	var out []*Loop
	for _, b := range registry.snapshot() {
		if l := b.user.Value(); l != nil && !b.closed.Load() {
			out = append(out, l)
		}
	}
	return out
}

// CloseAll force-closes every open loop, including loops with live handles,
// whose handles are closed and whose requests are canceled. Intended for
// process exit. Loops that are running are skipped and reported as
// ErrReentrantRun.
func CloseAll() error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, b := range registry.snapshot() {
		g.Go(func() error {
			if err := b.forceClose(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	clearDefault()
	return errors.Join(errs...)
}
