// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"os"
	"strconv"
	"sync"

	"github.com/eapache/queue"
)

const (
	defaultPoolSize = 4
	maxPoolSize     = 1024
)

// threadPool is the process-wide FIFO of blocking work, started lazily on
// the first submission.
type threadPool struct {
	once  sync.Once
	mu    sync.Mutex
	cond  *sync.Cond
	queue *queue.Queue // *Req
}

var defaultPool threadPool

// PoolSize returns the worker count, from UV_THREADPOOL_SIZE when set.
func PoolSize() int {
	n, err := strconv.Atoi(os.Getenv(`UV_THREADPOOL_SIZE`))
	if err != nil || n == 0 {
		return defaultPoolSize
	}
	if n < 1 {
		return 1
	}
	if n > maxPoolSize {
		return maxPoolSize
	}
	return n
}

func (x *threadPool) start() {
	x.cond = sync.NewCond(&x.mu)
	x.queue = queue.New()
	for range PoolSize() {
		go x.worker()
	}
}

func (x *threadPool) enqueue(r *Req) {
	x.once.Do(x.start)
	x.mu.Lock()
	x.queue.Add(r)
	x.mu.Unlock()
	x.cond.Signal()
}

func (x *threadPool) worker() {
	for {
		x.mu.Lock()
		for x.queue.Length() == 0 {
			x.cond.Wait()
		}
		r := x.queue.Remove().(*Req)
		x.mu.Unlock()
		r.run()
	}
}
