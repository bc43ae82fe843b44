// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_FiresInDueOrderThenStartOrder(t *testing.T) {
	l := newTestLoop(t)

	var fired []int
	timers := make([]Timer, 4)
	for i, timeout := range []uint64{20, 0, 20, 5} {
		require.Equal(t, OK, l.InitTimer(&timers[i]))
		i := i
		require.Equal(t, OK, timers[i].Start(func(*Timer) { fired = append(fired, i) }, timeout, 0))
	}

	assert.False(t, l.Run(RunDefault))
	assert.Equal(t, []int{1, 3, 0, 2}, fired)
}

func TestTimer_RepeatUntilStopped(t *testing.T) {
	l := newTestLoop(t)

	var timer Timer
	require.Equal(t, OK, l.InitTimer(&timer))
	var n int
	require.Equal(t, OK, timer.Start(func(tm *Timer) {
		n++
		if n == 3 {
			assert.Equal(t, OK, tm.Stop())
		}
	}, 1, 1))
	assert.Equal(t, uint64(1), timer.Repeat())

	assert.False(t, l.Run(RunDefault))
	assert.Equal(t, 3, n)
	assert.False(t, timer.IsActive())
}

func TestTimer_StartValidation(t *testing.T) {
	l := newTestLoop(t)

	var timer Timer
	require.Equal(t, OK, l.InitTimer(&timer))
	assert.Equal(t, EINVAL, timer.Start(nil, 0, 0))
	assert.Equal(t, EINVAL, timer.Again())

	timer.Close(nil)
	assert.Equal(t, EINVAL, timer.Start(func(*Timer) {}, 0, 0))
}

func TestTimer_AgainRestartsRepeating(t *testing.T) {
	l := newTestLoop(t)

	var timer Timer
	require.Equal(t, OK, l.InitTimer(&timer))
	require.Equal(t, OK, timer.Start(func(*Timer) {}, 10000, 0))

	// not repeating, so Again leaves it alone
	require.Equal(t, OK, timer.Again())
	assert.Greater(t, timer.DueIn(), uint64(9000))

	timer.SetRepeat(50)
	require.Equal(t, OK, timer.Again())
	assert.True(t, timer.IsActive())
	assert.LessOrEqual(t, timer.DueIn(), uint64(50))
}

func TestTimer_DueTimeSaturates(t *testing.T) {
	l := newTestLoop(t)

	var timer Timer
	require.Equal(t, OK, l.InitTimer(&timer))
	require.Equal(t, OK, timer.Start(func(*Timer) {}, math.MaxUint64, 0))
	assert.Equal(t, uint64(math.MaxUint64)-l.Now(), timer.DueIn())
	assert.Equal(t, math.MaxInt32, l.BackendTimeout())
}
