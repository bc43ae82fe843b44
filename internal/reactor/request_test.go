// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saturatePool occupies every worker until the returned func is called.
func saturatePool(t *testing.T, l *Loop) (release func(), reqs []*Req) {
	t.Helper()
	var (
		started sync.WaitGroup
		gate    = make(chan struct{})
	)
	n := PoolSize()
	started.Add(n)
	for range n {
		r := new(Req)
		l.submit(r, FSReq, ECANCELED, func() Status {
			started.Done()
			<-gate
			return OK
		}, func(Status) {})
		reqs = append(reqs, r)
	}
	started.Wait()
	return sync.OnceFunc(func() { close(gate) }), reqs
}

func TestReq_CancelQueued(t *testing.T) {
	l := newTestLoop(t)
	release, busy := saturatePool(t, l)
	defer release()

	var (
		req    FS
		calls  int
		result int64
	)
	require.Equal(t, OK, l.FSStat(&req, t.TempDir(), func(r *FS) {
		calls++
		result = r.Result
	}))
	assert.Equal(t, PoolSize()+1, l.ActiveRequests())

	assert.Equal(t, OK, req.Cancel())
	assert.Equal(t, EBUSY, req.Cancel())
	assert.Equal(t, EBUSY, busy[0].Cancel())

	release()
	assert.False(t, l.Run(RunDefault))
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(ECANCELED), result)
	assert.Equal(t, 0, l.ActiveRequests())
}

func TestReq_CancelUnknownKind(t *testing.T) {
	var r Req
	assert.Equal(t, EINVAL, r.Cancel())
}

func TestReq_LoopCloseBusyWhileInFlight(t *testing.T) {
	l := newTestLoop(t)

	var req FS
	done := make(chan struct{})
	require.Equal(t, OK, l.FSStat(&req, t.TempDir(), func(*FS) { close(done) }))
	assert.Equal(t, EBUSY, l.Close())
	l.Run(RunDefault)
	<-done
	assert.Equal(t, OK, l.Close())
}

func TestFS_Operations(t *testing.T) {
	l := newTestLoop(t)
	dir := t.TempDir()

	var req FS
	sub := filepath.Join(dir, `sub`)
	require.Equal(t, OK, l.FSMkdir(&req, sub, 0o755, nil))
	assert.Equal(t, FSMkdir, req.Type)
	assert.Equal(t, EEXIST, l.FSMkdir(&req, sub, 0o755, nil))
	assert.Equal(t, int64(EEXIST), req.Result)

	file := filepath.Join(dir, `b.txt`)
	require.NoError(t, os.WriteFile(file, []byte(`hello`), 0o644))
	require.Equal(t, OK, l.FSStat(&req, file, nil))
	assert.Equal(t, uint64(5), req.Stat.Size)

	link := filepath.Join(dir, `a.link`)
	require.NoError(t, os.Symlink(file, link))
	require.Equal(t, OK, l.FSReadLink(&req, link, nil))
	assert.Equal(t, file, req.Link)
	require.Equal(t, OK, l.FSLStat(&req, link, nil))
	assert.NotEqual(t, uint64(5), req.Stat.Size)

	require.Equal(t, OK, l.FSScandir(&req, dir, nil))
	assert.Equal(t, int64(3), req.Result)
	assert.Equal(t, []Dirent{
		{Name: `a.link`, Type: DirentLink},
		{Name: `b.txt`, Type: DirentFile},
		{Name: `sub`, Type: DirentDir},
	}, req.Entries)

	renamed := filepath.Join(dir, `c.txt`)
	require.Equal(t, OK, l.FSRename(&req, file, renamed, nil))
	assert.Equal(t, renamed, req.NewPath)
	require.Equal(t, OK, l.FSOpen(&req, renamed, os.O_RDONLY, 0, nil))
	fd := int(req.Result)
	assert.GreaterOrEqual(t, fd, 0)
	require.Equal(t, OK, l.FSClose(&req, fd, nil))
	assert.Equal(t, EBADF, l.FSClose(&req, fd, nil))

	require.Equal(t, OK, l.FSUnlink(&req, renamed, nil))
	require.Equal(t, OK, l.FSUnlink(&req, link, nil))
	require.Equal(t, OK, l.FSRmdir(&req, sub, nil))
	assert.Equal(t, ENOENT, l.FSStat(&req, sub, nil))
}

func TestFS_AsyncCompletesOnLoop(t *testing.T) {
	l := newTestLoop(t)

	var (
		req FS
		got *FS
	)
	require.Equal(t, OK, l.FSStat(&req, filepath.Join(t.TempDir(), `missing`), func(r *FS) { got = r }))
	assert.Nil(t, got)
	assert.True(t, l.Alive())
	assert.False(t, l.Run(RunDefault))
	require.Same(t, &req, got)
	assert.Equal(t, int64(ENOENT), req.Result)
}
