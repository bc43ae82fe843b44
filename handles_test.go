// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

func TestAsync_SendFromGoroutines(t *testing.T) {
	l := newTestLoop(t)

	var calls int
	a, err := NewAsync(l, func(a *Async) {
		calls++
		a.Close(nil)
	})
	require.NoError(t, err)
	assert.True(t, a.Active())
	assert.Equal(t, AsyncHandle, a.Type())
	assert.Same(t, l, a.Loop())

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(a.Send)
	}
	require.NoError(t, g.Wait())

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, a.Closed())
	assert.ErrorIs(t, a.Send(), ErrHandleClosed)
}

func TestPhases_RunInOrder(t *testing.T) {
	l := newTestLoop(t)

	var order []string
	prep, err := NewPrepare(l)
	require.NoError(t, err)
	chk, err := NewCheck(l)
	require.NoError(t, err)
	idle, err := NewIdle(l)
	require.NoError(t, err)

	require.NoError(t, prep.Start(func(*Prepare) { order = append(order, `prepare`) }))
	require.NoError(t, chk.Start(func(*Check) { order = append(order, `check`) }))
	require.NoError(t, idle.Start(func(*Idle) { order = append(order, `idle`) }))
	assert.True(t, prep.Active())

	_, err = l.Run(RunNoWait)
	require.NoError(t, err)
	assert.Equal(t, []string{`idle`, `prepare`, `check`}, order)

	require.NoError(t, prep.Stop())
	require.NoError(t, chk.Stop())
	require.NoError(t, idle.Stop())
	assert.False(t, idle.Active())
	alive, err := l.Run(RunNoWait)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestPhase_StartValidation(t *testing.T) {
	l := newTestLoop(t)
	idle, err := NewIdle(l)
	require.NoError(t, err)

	var e *Error
	require.ErrorAs(t, idle.Start(nil), &e)
	assert.Equal(t, EINVAL, e.Code)

	var first, second int
	require.NoError(t, idle.Start(func(i *Idle) {
		first++
		assert.NoError(t, i.Stop())
	}))
	require.NoError(t, idle.Start(func(*Idle) { second++ }))
	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}

func TestHandle_DereferencedDoesNotKeepLoopAlive(t *testing.T) {
	l := newTestLoop(t)
	tm, err := NewTimer(l)
	require.NoError(t, err)
	require.NoError(t, tm.Start(time.Hour, 0, func(*Timer) { t.Error(`fired`) }))
	assert.True(t, tm.Referenced())
	assert.True(t, l.Alive())

	require.NoError(t, tm.Dereference())
	assert.False(t, tm.Referenced())
	assert.False(t, l.Alive())
	alive, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.False(t, alive)
	assert.True(t, tm.Active())

	require.NoError(t, tm.Reference())
	assert.True(t, l.Alive())
	require.NoError(t, tm.Stop())
}

func TestTimer_RepeatAndAgain(t *testing.T) {
	l := newTestLoop(t)
	tm, err := NewTimer(l)
	require.NoError(t, err)

	var e *Error
	require.ErrorAs(t, tm.Start(0, 0, nil), &e)
	assert.Equal(t, `timer_start`, e.Op)
	require.ErrorAs(t, tm.Again(), &e)
	assert.Equal(t, EINVAL, e.Code)

	var n int
	require.NoError(t, tm.Start(time.Millisecond, time.Millisecond, func(tm *Timer) {
		n++
		if n == 3 {
			assert.NoError(t, tm.Stop())
		}
	}))
	assert.Equal(t, time.Millisecond, tm.Repeat())
	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, tm.DueIn())

	require.NoError(t, tm.SetRepeat(time.Hour))
	require.NoError(t, tm.Again())
	assert.True(t, tm.Active())
	assert.Greater(t, tm.DueIn(), time.Minute)
	require.NoError(t, tm.Stop())
	require.NoError(t, tm.Stop())

	// a nil callback reuses the previous one
	require.NoError(t, tm.Start(0, 0, nil))
	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestPoll_Readable(t *testing.T) {
	l := newTestLoop(t)
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})

	p, err := NewPoll(l, fds[0])
	require.NoError(t, err)
	assert.Equal(t, fds[0], p.Fileno())

	var got PollEvent
	require.NoError(t, p.Start(Readable, func(p *Poll, status StatusCode, events PollEvent) {
		assert.Equal(t, OK, status)
		got = events
		assert.NoError(t, p.Stop())
	}))
	_, err = unix.Write(fds[1], []byte{1})
	require.NoError(t, err)

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.NotZero(t, got&Readable)
	assert.False(t, p.Active())

	_, err = NewPoll(l, -1)
	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, `poll`, ie.Resource)
}

func TestSignal_Delivered(t *testing.T) {
	l := newTestLoop(t)
	sig, err := NewSignal(l)
	require.NoError(t, err)

	var got []int
	require.NoError(t, sig.StartOneshot(int(syscall.SIGUSR1), func(s *Signal, signum int) {
		got = append(got, signum)
		assert.False(t, s.Active())
	}))
	assert.Equal(t, int(syscall.SIGUSR1), sig.Signum())
	require.NoError(t, Kill(os.Getpid(), int(syscall.SIGUSR1)))

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, []int{int(syscall.SIGUSR1)}, got)
	_, held := l.pending[&sig.handle]
	assert.False(t, held)

	var e *Error
	require.ErrorAs(t, sig.Start(int(syscall.SIGKILL), func(*Signal, int) {}), &e)
	assert.Equal(t, EINVAL, e.Code)
}

func TestFSEvent_ReportsCreate(t *testing.T) {
	l := newTestLoop(t)
	dir := t.TempDir()

	w, err := NewFSEvent(l)
	require.NoError(t, err)
	_, err = w.Path()
	assert.ErrorIs(t, err, &Error{Code: EINVAL})

	var (
		name   string
		events FSEventFlag
	)
	require.NoError(t, w.Start(dir, func(f *FSEvent, n string, ev FSEventFlag, status StatusCode) {
		assert.Equal(t, OK, status)
		if n != `created` {
			return
		}
		name, events = n, ev
		assert.NoError(t, f.Stop())
	}))
	path, err := w.Path()
	require.NoError(t, err)
	assert.Equal(t, dir, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, `created`), []byte(`x`), 0o600))

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, `created`, name)
	assert.NotZero(t, events&FSEventRename)
}

func TestFSPoll_ReportsModification(t *testing.T) {
	l := newTestLoop(t)
	file := filepath.Join(t.TempDir(), `polled`)
	require.NoError(t, os.WriteFile(file, []byte(`x`), 0o600))

	p, err := NewFSPoll(l)
	require.NoError(t, err)
	assert.Equal(t, FSPollHandle, p.Type())
	_, err = p.Path()
	assert.ErrorIs(t, err, &Error{Code: EINVAL})

	var calls int
	require.NoError(t, p.Start(file, 20*time.Millisecond, func(p *FSPoll, status StatusCode, prev, curr Stat) {
		calls++
		assert.Equal(t, OK, status)
		assert.NotEqual(t, prev.Mtime, curr.Mtime)
		p.Close(nil)
	}))
	assert.True(t, p.Active())
	assert.Equal(t, 20*time.Millisecond, p.Interval())
	path, err := p.Path()
	require.NoError(t, err)
	assert.Equal(t, file, path)

	touch, err := NewTimer(l)
	require.NoError(t, err)
	require.NoError(t, touch.Start(100*time.Millisecond, 0, func(tm *Timer) {
		past := time.Unix(4200, 0)
		assert.NoError(t, os.Chtimes(file, past, past))
		tm.Close(nil)
	}))

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, p.Closed())
	assert.Empty(t, l.Handles())
}

func TestFSPoll_StopBeforeFirstStat(t *testing.T) {
	l := newTestLoop(t)
	p, err := NewFSPoll(l)
	require.NoError(t, err)

	var calls int
	require.NoError(t, p.Start(filepath.Join(t.TempDir(), `missing`), 0, func(*FSPoll, StatusCode, Stat, Stat) { calls++ }))
	assert.Equal(t, DefaultFSPollInterval, p.Interval())
	require.NoError(t, p.Stop())
	assert.False(t, p.Active())

	alive, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.False(t, alive)
	assert.Zero(t, calls)
}

func TestFSPoll_Validation(t *testing.T) {
	l := newTestLoop(t)
	p, err := NewFSPoll(l)
	require.NoError(t, err)

	cb := func(*FSPoll, StatusCode, Stat, Stat) {}
	assert.ErrorIs(t, p.Start(``, time.Second, cb), &Error{Code: EINVAL, Op: `fs_poll_start`})
	assert.ErrorIs(t, p.Start(t.TempDir(), time.Second, nil), &Error{Code: EINVAL})
	assert.ErrorIs(t, p.Start(t.TempDir(), -time.Second, cb), &Error{Code: EINVAL})
	assert.False(t, p.Active())

	p.Close(nil)
	assert.ErrorIs(t, p.Start(t.TempDir(), time.Second, cb), ErrHandleClosed)
	assert.ErrorIs(t, p.Stop(), ErrHandleClosed)
	_, err = l.Run(RunDefault)
	require.NoError(t, err)
}

func TestProcess_Exit(t *testing.T) {
	l := newTestLoop(t)

	var status int64 = -1
	p, err := Spawn(l, ProcessOptions{File: `sh`, Args: []string{`sh`, `-c`, `exit 3`}}, func(p *Process, exitStatus int64, termSignal int) {
		status = exitStatus
		assert.Zero(t, termSignal)
		assert.False(t, p.Active())
	})
	require.NoError(t, err)
	assert.Positive(t, p.PID())
	assert.Equal(t, ProcessHandle, p.Type())

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, int64(3), status)
	assert.ErrorIs(t, p.Kill(int(syscall.SIGTERM)), &Error{Code: ESRCH})
}

func TestProcess_KilledBySignal(t *testing.T) {
	l := newTestLoop(t)
	var sig int
	p, err := Spawn(l, ProcessOptions{File: `sleep`, Args: []string{`sleep`, `60`}}, func(_ *Process, _ int64, termSignal int) {
		sig = termSignal
	})
	require.NoError(t, err)
	require.NoError(t, p.Kill(int(syscall.SIGKILL)))

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, int(syscall.SIGKILL), sig)
}

func TestSpawn_NotFound(t *testing.T) {
	l := newTestLoop(t)
	p, err := Spawn(l, ProcessOptions{File: `definitely-not-a-real-program-uv`}, nil)
	assert.Nil(t, p)
	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, `process`, ie.Resource)
	assert.Equal(t, ENOENT, StatusOf(err))
	assert.Empty(t, l.Handles())
}
