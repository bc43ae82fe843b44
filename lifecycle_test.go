// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
	"weak"

	"github.com/joeycumines/go-uv/internal/reactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

func collectUntil(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		runtime.GC()
		return cond()
	}, 5*time.Second, 10*time.Millisecond)
}

func (b *baseLoop) scheduledForClose(s *baseHandle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handlesToClose[s]
	return ok
}

func (b *baseLoop) attached(s *baseHandle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handles[s]
	return ok
}

func TestHandle_CloseIsIdempotent(t *testing.T) {
	l := newTestLoop(t)
	tm, err := NewTimer(l)
	require.NoError(t, err)
	require.NoError(t, tm.Start(time.Hour, 0, func(*Timer) {}))

	var first, second int
	tm.Close(func(h Handle) {
		assert.Same(t, tm, h)
		first++
	})
	assert.True(t, tm.Closing())
	assert.False(t, tm.Closed())
	tm.Close(func(Handle) { second++ })
	tm.Close(nil)

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.True(t, tm.Closed())
	assert.False(t, l.base.attached(tm.base))

	tm.Close(func(Handle) { second++ })
	_, err = l.Run(RunNoWait)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}

func TestHandle_OperationsAfterClose(t *testing.T) {
	l := newTestLoop(t)
	tm, err := NewTimer(l)
	require.NoError(t, err)
	tm.Close(nil)

	assert.ErrorIs(t, tm.Start(0, 0, func(*Timer) {}), ErrHandleClosed)
	assert.ErrorIs(t, tm.Stop(), ErrHandleClosed)
	assert.ErrorIs(t, tm.Reference(), ErrHandleClosed)
	assert.ErrorIs(t, tm.Dereference(), ErrHandleClosed)
	assert.False(t, tm.Active())
	assert.True(t, tm.Referenced())

	_, err = l.Run(RunNoWait)
	require.NoError(t, err)
	assert.False(t, tm.Referenced())
}

func TestRequest_CancelIsIdempotent(t *testing.T) {
	l := newTestLoop(t)
	release := saturatePool(t, l)
	defer release()

	var calls atomic.Int32
	var status StatusCode
	req, err := FSStat(l, t.TempDir(), func(r *FSRequest) {
		calls.Add(1)
		status = r.Status()
	})
	require.NoError(t, err)

	require.NoError(t, req.Cancel())
	require.NoError(t, req.Cancel())
	assert.False(t, req.Finished())

	release()
	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, ECANCELED, status)
	assert.ErrorIs(t, req.Err(), &Error{Code: ECANCELED})
	assert.True(t, req.Finished())
	require.NoError(t, req.Cancel())
}

// saturatePool blocks every thread pool worker opening a FIFO, until the
// returned func is called.
func saturatePool(t *testing.T, l *Loop) (release func()) {
	t.Helper()
	fifo := filepath.Join(t.TempDir(), `fifo`)
	require.NoError(t, unix.Mkfifo(fifo, 0o600))

	n := reactor.PoolSize()
	opened := make(chan int, n)
	for range n {
		_, err := FSOpen(l, fifo, os.O_RDONLY, 0, func(r *FSRequest) {
			opened <- int(r.Result())
		})
		require.NoError(t, err)
	}
	// wait for the workers to block in open(2)
	time.Sleep(50 * time.Millisecond)

	var released bool
	return func() {
		if released {
			return
		}
		released = true
		w, err := unix.Open(fifo, unix.O_WRONLY|unix.O_NONBLOCK, 0)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = unix.Close(w)
			for range n {
				if fd := <-opened; fd >= 0 {
					_ = unix.Close(fd)
				}
			}
		})
	}
}

func TestAsync_DroppedIsClosedAtSafePoint(t *testing.T) {
	l := newTestLoop(t)

	var (
		shadow *baseHandle
		native *reactor.Async
	)
	func() {
		a, err := NewAsync(l, nil)
		require.NoError(t, err)
		shadow, native = a.base, a.native
	}()

	collectUntil(t, func() bool { return l.base.scheduledForClose(shadow) })

	// only marked, the reactor handle is untouched
	assert.True(t, native.IsActive())
	assert.False(t, native.IsClosing())
	assert.False(t, shadow.closing.Load())

	alive, err := l.Run(RunNoWait)
	require.NoError(t, err)
	assert.False(t, alive)
	assert.False(t, native.IsActive())
	assert.True(t, shadow.closed.Load())
	assert.False(t, l.base.attached(shadow))
	assert.False(t, l.base.scheduledForClose(shadow))
}

func TestTimer_StartedHandleKeptByLoop(t *testing.T) {
	l := newTestLoop(t)

	var fired atomic.Int32
	var ptr weak.Pointer[Timer]
	func() {
		tm, err := NewTimer(l)
		require.NoError(t, err)
		require.NoError(t, tm.Start(20*time.Millisecond, 0, func(*Timer) { fired.Add(1) }))
		ptr = weak.Make(tm)
	}()

	for range 3 {
		runtime.GC()
	}
	require.NotNil(t, ptr.Value())

	_, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fired.Load())

	// stopped, so no longer held
	collectUntil(t, func() bool { return ptr.Value() == nil })
}

func TestFSPoll_StartedHandleKeptByLoop(t *testing.T) {
	l := newTestLoop(t)

	var (
		status StatusCode
		ptr    weak.Pointer[FSPoll]
	)
	func() {
		p, err := NewFSPoll(l)
		require.NoError(t, err)
		require.NoError(t, p.Start(filepath.Join(t.TempDir(), `missing`), time.Hour, func(p *FSPoll, s StatusCode, _, _ Stat) {
			status = s
			p.Close(nil)
		}))
		ptr = weak.Make(p)
	}()

	for range 3 {
		runtime.GC()
	}
	require.NotNil(t, ptr.Value())

	_, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, ENOENT, status)

	collectUntil(t, func() bool { return ptr.Value() == nil })
}

func TestLoop_CollectedWithItsHandles(t *testing.T) {
	var (
		loopPtr  weak.Pointer[Loop]
		timerPtr weak.Pointer[Timer]
		base     *baseLoop
		shadow   *baseHandle
		native   *reactor.Timer
	)
	tm := func() *Timer {
		l, err := New(WithLogger(nil))
		require.NoError(t, err)
		tm, err := NewTimer(l)
		require.NoError(t, err)
		require.NoError(t, tm.Start(time.Hour, 0, func(*Timer) {}))
		loopPtr, timerPtr = weak.Make(l), weak.Make(tm)
		base, shadow, native = l.base, tm.base, tm.native
		return tm
	}()

	// the handle keeps the loop reachable
	for range 3 {
		runtime.GC()
	}
	require.NotNil(t, loopPtr.Value())
	require.False(t, base.closed.Load())
	runtime.KeepAlive(tm)

	collectUntil(t, func() bool { return base.closed.Load() })
	assert.Nil(t, loopPtr.Value())
	assert.Nil(t, timerPtr.Value())
	assert.True(t, shadow.closed.Load())
	assert.True(t, native.IsClosed())
	assert.False(t, registry.contains(base))
	assert.Equal(t, -1, base.native.BackendFd())
}

func TestLoop_CollectedWhileOnlyLoopHoldsHandle(t *testing.T) {
	var (
		base   *baseLoop
		shadow *baseHandle
	)
	func() {
		l, err := New(WithLogger(nil))
		require.NoError(t, err)
		sig, err := NewSignal(l)
		require.NoError(t, err)
		require.NoError(t, sig.Start(int(unix.SIGUSR2), func(*Signal, int) {}))
		idle, err := NewIdle(l)
		require.NoError(t, err)
		require.NoError(t, idle.Start(func(*Idle) {}))
		base, shadow = l.base, sig.base
	}()

	collectUntil(t, func() bool { return base.closed.Load() })
	assert.True(t, shadow.closed.Load())
	assert.False(t, registry.contains(base))
	base.mu.Lock()
	defer base.mu.Unlock()
	assert.Empty(t, base.handles)
	assert.Empty(t, base.handlesToClose)
}

func TestLoop_CollectedWithQueuedTaskCapturingIt(t *testing.T) {
	var (
		loopPtr weak.Pointer[Loop]
		base    *baseLoop
		ran     atomic.Bool
	)
	func() {
		l, err := New(WithLogger(nil))
		require.NoError(t, err)
		require.NoError(t, l.Submit(func() {
			_ = l.Now()
			ran.Store(true)
		}))
		loopPtr, base = weak.Make(l), l.base
	}()

	collectUntil(t, func() bool { return base.closed.Load() })
	assert.Nil(t, loopPtr.Value())
	assert.False(t, ran.Load())
	assert.False(t, registry.contains(base))
}

func TestRequest_DroppedIsCanceledAtSafePoint(t *testing.T) {
	l := newTestLoop(t)
	release := saturatePool(t, l)
	defer release()

	var (
		calls  atomic.Int32
		status StatusCode
	)
	r, err := FSStat(l, t.TempDir(), func(r *FSRequest) {
		calls.Add(1)
		status = r.Status()
	})
	require.NoError(t, err)
	shadow := r.base

	l.base.scheduleCancel(shadow)
	assert.False(t, shadow.canceled.Load())

	_, err = l.Run(RunNoWait)
	require.NoError(t, err)
	assert.True(t, shadow.canceled.Load())

	release()
	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, ECANCELED, status)
	assert.True(t, r.Finished())
	l.base.mu.Lock()
	defer l.base.mu.Unlock()
	assert.NotContains(t, l.base.requests, shadow)
	assert.NotContains(t, l.base.requestsToCancel, shadow)
}

func TestLoop_DeferredClosesRunBeforePoll(t *testing.T) {
	const n = 8
	l := newTestLoop(t)

	var (
		events atomic.Int32
		closed atomic.Int32
		polls  []*Poll
	)
	for range n {
		var fds [2]int
		require.NoError(t, unix.Pipe(fds[:]))
		t.Cleanup(func() {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
		})
		_, err := unix.Write(fds[1], []byte(`x`))
		require.NoError(t, err)

		p, err := NewPoll(l, fds[0])
		require.NoError(t, err)
		require.NoError(t, p.Start(Readable, func(*Poll, StatusCode, PollEvent) { events.Add(1) }))
		p.onClosed = func(Handle) { closed.Add(1) }
		polls = append(polls, p)
	}

	var g errgroup.Group
	for _, p := range polls {
		g.Go(func() error {
			l.base.scheduleClose(p.base)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	_, err := l.Run(RunNoWait)
	require.NoError(t, err)
	assert.Equal(t, int32(n), closed.Load())
	assert.Equal(t, int32(0), events.Load())
	for _, p := range polls {
		assert.True(t, p.Closed())
	}
}

func TestTimer_ZeroTimeoutFiresOnce(t *testing.T) {
	l := newTestLoop(t)
	tm, err := NewTimer(l)
	require.NoError(t, err)

	var n int
	require.NoError(t, tm.Start(0, 0, func(*Timer) { n++ }))
	alive, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, alive)
	assert.False(t, l.Alive())
}

func TestTimer_StopInsideRepeatingCallback(t *testing.T) {
	l := newTestLoop(t)
	tm, err := NewTimer(l)
	require.NoError(t, err)

	var n int
	require.NoError(t, tm.Start(10*time.Millisecond, 10*time.Millisecond, func(tm *Timer) {
		n++
		assert.NoError(t, tm.Stop())
	}))
	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, tm.Active())
}

func TestHandle_CloseTwiceInARow(t *testing.T) {
	l := newTestLoop(t)
	chk, err := NewCheck(l)
	require.NoError(t, err)

	var n int
	onClosed := func(Handle) { n++ }
	assert.NotPanics(t, func() {
		chk.Close(onClosed)
		chk.Close(onClosed)
	})
	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
