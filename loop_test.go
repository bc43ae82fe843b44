// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLoop returns a loop that is force-closed when the test ends.
func newTestLoop(t *testing.T, opts ...LoopOption) *Loop {
	t.Helper()
	l, err := New(append([]LoopOption{WithLogger(nil)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, l.base.forceClose())
	})
	return l
}

func TestNew_RegistersLoop(t *testing.T) {
	l := newTestLoop(t)
	assert.False(t, l.Closed())
	assert.False(t, l.IsDefault())
	assert.Greater(t, l.Fileno(), -1)
	assert.Contains(t, Loops(), l)
	assert.True(t, registry.contains(l.base))

	require.NoError(t, l.Close())
	assert.True(t, l.Closed())
	assert.Equal(t, -1, l.Fileno())
	assert.NotContains(t, Loops(), l)
	assert.False(t, registry.contains(l.base))

	// closing again does nothing
	require.NoError(t, l.Close())
}

func TestNew_InvalidOption(t *testing.T) {
	_, err := New(WithCallbackErrorRateLimit(map[time.Duration]int{time.Second: 0}))
	require.Error(t, err)
}

func TestLoop_RunAfterClose(t *testing.T) {
	l := newTestLoop(t)
	require.NoError(t, l.Close())
	alive, err := l.Run(RunDefault)
	assert.False(t, alive)
	assert.ErrorIs(t, err, ErrLoopClosed)
	assert.False(t, l.Alive())
	assert.ErrorIs(t, l.Submit(func() {}), ErrLoopClosed)

	_, err = NewTimer(l)
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, ErrLoopClosed)
	assert.Equal(t, `timer`, initErr.Resource)
}

func TestLoop_RunIsNotReentrant(t *testing.T) {
	l := newTestLoop(t)
	tm, err := NewTimer(l)
	require.NoError(t, err)

	var runErr, closeErr error
	require.NoError(t, tm.Start(0, 0, func(*Timer) {
		_, runErr = l.Run(RunNoWait)
		closeErr = l.Close()
	}))
	alive, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.False(t, alive)
	assert.ErrorIs(t, runErr, ErrReentrantRun)
	assert.ErrorIs(t, closeErr, ErrReentrantRun)
}

func TestLoop_CloseBusy(t *testing.T) {
	l := newTestLoop(t)
	tm, err := NewTimer(l)
	require.NoError(t, err)

	err = l.Close()
	require.ErrorIs(t, err, ErrLoopBusy)
	assert.Equal(t, EBUSY, StatusOf(err))
	assert.False(t, l.Closed())

	// closing handles no longer count
	var closed int
	tm.Close(func(Handle) { closed++ })
	require.NoError(t, l.Close())
	assert.Equal(t, 1, closed)
	assert.True(t, tm.Closed())
}

func TestLoop_CloseBusyWithRequest(t *testing.T) {
	l := newTestLoop(t)

	var done atomic.Bool
	_, err := FSStat(l, t.TempDir(), func(r *FSRequest) { done.Store(true) })
	require.NoError(t, err)
	require.Len(t, l.Requests(), 1)
	assert.ErrorIs(t, l.Close(), ErrLoopBusy)

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.True(t, done.Load())
	assert.Empty(t, l.Requests())
	require.NoError(t, l.Close())
}

func TestLoop_Stop(t *testing.T) {
	l := newTestLoop(t)
	idle, err := NewIdle(l)
	require.NoError(t, err)

	var n int
	require.NoError(t, idle.Start(func(*Idle) {
		n++
		if n == 2 {
			l.Stop()
		}
	}))
	alive, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, l.Timeout())
}

func TestLoop_TimeAndTimeout(t *testing.T) {
	l := newTestLoop(t)
	before := l.Now()
	time.Sleep(5 * time.Millisecond)
	l.UpdateTime()
	assert.GreaterOrEqual(t, l.Now(), before+5)

	tm, err := NewTimer(l)
	require.NoError(t, err)
	require.NoError(t, tm.Start(time.Minute, 0, func(*Timer) {}))
	assert.InDelta(t, 60000, l.Timeout(), 10)
	require.NoError(t, tm.Stop())
	assert.Equal(t, 0, l.Timeout())
}

func TestLoop_HandlesAndCloseAllHandles(t *testing.T) {
	l := newTestLoop(t)
	tm, err := NewTimer(l)
	require.NoError(t, err)
	chk, err := NewCheck(l)
	require.NoError(t, err)
	a, err := NewAsync(l, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []Handle{tm, chk, a}, l.Handles())

	var closed []Handle
	l.CloseAllHandles(func(h Handle) { closed = append(closed, h) })
	assert.Empty(t, l.Handles())
	_, err = l.Run(RunNoWait)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Handle{tm, chk, a}, closed)
	require.NoError(t, l.Close())
}

func TestLoop_Submit(t *testing.T) {
	l := newTestLoop(t)

	var ran atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 10 {
			assert.NoError(t, l.Submit(func() { ran.Add(1) }))
		}
	}()
	<-done

	// queued tasks keep the loop running until they have executed
	alive, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.False(t, alive)
	assert.Equal(t, int32(10), ran.Load())
}

func TestLoop_SubmitWakesRunningLoop(t *testing.T) {
	l := newTestLoop(t)
	// holds the loop open until the submitted task closes it
	keep, err := NewTimer(l)
	require.NoError(t, err)
	require.NoError(t, keep.Start(time.Hour, 0, func(*Timer) {}))

	go func() {
		time.Sleep(10 * time.Millisecond)
		assert.NoError(t, l.Submit(func() { keep.Close(nil) }))
	}()

	start := time.Now()
	alive, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.False(t, alive)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestDefault(t *testing.T) {
	a, err := Default(WithLogger(nil))
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.True(t, a.IsDefault())

	tm, err := NewTimer(nil)
	require.NoError(t, err)
	assert.Same(t, a, tm.Loop())
	tm.Close(nil)

	require.NoError(t, a.Close())
	c, err := Default()
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	require.NoError(t, c.Close())
}

func TestCloseAll(t *testing.T) {
	l1, err := New(WithLogger(nil))
	require.NoError(t, err)
	l2, err := New(WithLogger(nil))
	require.NoError(t, err)

	tm, err := NewTimer(l1)
	require.NoError(t, err)
	require.NoError(t, tm.Start(time.Hour, 0, func(*Timer) {}))
	_, err = FSStat(l2, filepath.Join(t.TempDir(), `x`), func(*FSRequest) {})
	require.NoError(t, err)

	require.NoError(t, CloseAll())
	assert.True(t, l1.Closed())
	assert.True(t, l2.Closed())
	assert.True(t, tm.Closed())
	assert.NotContains(t, Loops(), l1)
	assert.NotContains(t, Loops(), l2)
}

func TestLoop_WithStopOnCallbackError(t *testing.T) {
	l := newTestLoop(t, WithStopOnCallbackError(true), WithErrorHandler(func(*CallbackError) {}))
	idle, err := NewIdle(l)
	require.NoError(t, err)

	var n int
	require.NoError(t, idle.Start(func(*Idle) {
		n++
		panic(errors.New(`boom`))
	}))
	alive, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, 1, n)
	require.NotNil(t, l.LastError())
}
