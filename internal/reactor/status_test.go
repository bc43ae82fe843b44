// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatuses_AreNamedAndNegative(t *testing.T) {
	seen := make(map[string]Status)
	for _, s := range Statuses() {
		require.True(t, s.Failed(), `%d`, int(s))
		require.True(t, s.Known(), `%d`, int(s))
		name := s.Name()
		require.NotEmpty(t, name)
		require.NotEmpty(t, s.Message())
		if prev, ok := seen[name]; ok {
			t.Fatalf(`duplicate name %s for %d and %d`, name, prev, s)
		}
		seen[name] = s
	}
	assert.Contains(t, seen, `EBUSY`)
	assert.Contains(t, seen, `EAI_CANCELED`)
	assert.Contains(t, seen, `EOF`)
}

func TestStatus_Unknown(t *testing.T) {
	s := Status(-99999)
	assert.False(t, s.Known())
	assert.Equal(t, `Unknown system error -99999`, s.Name())
	assert.Equal(t, `OK`, OK.Name())
	assert.Equal(t, `OK`, Status(3).Name())
	assert.False(t, Status(3).Failed())
}

func TestFromError(t *testing.T) {
	for _, tc := range [...]struct {
		err  error
		want Status
	}{
		{nil, OK},
		{syscall.Errno(0), OK},
		{syscall.ENOENT, ENOENT},
		{&os.PathError{Op: `open`, Path: `x`, Err: syscall.EACCES}, EACCES},
		{fmt.Errorf(`wrapped: %w`, syscall.EPIPE), EPIPE},
		{io.EOF, EOF},
		{context.Canceled, ECANCELED},
		{context.DeadlineExceeded, ETIMEDOUT},
		{fs.ErrNotExist, ENOENT},
		{fs.ErrExist, EEXIST},
		{fs.ErrPermission, EACCES},
		{os.ErrClosed, EBADF},
		{&net.DNSError{IsNotFound: true}, EAI_NONAME},
		{&net.DNSError{IsTimeout: true}, EAI_AGAIN},
		{&net.DNSError{}, EAI_FAIL},
		{errors.New(`other`), UNKNOWN},
	} {
		t.Run(fmt.Sprint(tc.err), func(t *testing.T) {
			assert.Equal(t, tc.want, FromError(tc.err))
		})
	}
}
