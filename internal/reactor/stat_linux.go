// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// statFromSys converts a stat(2) result. Linux reports no birth time here,
// so the change time stands in for it.
func statFromSys(st *unix.Stat_t) Stat {
	return Stat{
		Dev:       uint64(st.Dev),
		Mode:      uint64(st.Mode),
		Nlink:     uint64(st.Nlink),
		UID:       uint64(st.Uid),
		GID:       uint64(st.Gid),
		Rdev:      uint64(st.Rdev),
		Ino:       uint64(st.Ino),
		Size:      uint64(st.Size),
		Blksize:   uint64(st.Blksize),
		Blocks:    uint64(st.Blocks),
		Atime:     time.Unix(st.Atim.Unix()),
		Mtime:     time.Unix(st.Mtim.Unix()),
		Ctime:     time.Unix(st.Ctim.Unix()),
		Birthtime: time.Unix(st.Ctim.Unix()),
	}
}
