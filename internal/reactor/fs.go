// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// FSType identifies the filesystem operation an FS request performs.
type FSType int

const (
	FSUnknown FSType = iota
	FSOpen
	FSClose
	FSStat
	FSLStat
	FSUnlink
	FSMkdir
	FSRmdir
	FSRename
	FSReadLink
	FSScandir
)

func (t FSType) String() string {
	switch t {
	case FSOpen:
		return `open`
	case FSClose:
		return `close`
	case FSStat:
		return `stat`
	case FSLStat:
		return `lstat`
	case FSUnlink:
		return `unlink`
	case FSMkdir:
		return `mkdir`
	case FSRmdir:
		return `rmdir`
	case FSRename:
		return `rename`
	case FSReadLink:
		return `readlink`
	case FSScandir:
		return `scandir`
	default:
		return `unknown`
	}
}

// Stat mirrors the fields of a stat(2) result.
type Stat struct {
	Dev       uint64
	Mode      uint64
	Nlink     uint64
	UID       uint64
	GID       uint64
	Rdev      uint64
	Ino       uint64
	Size      uint64
	Blksize   uint64
	Blocks    uint64
	Flags     uint64
	Gen       uint64
	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
	Birthtime time.Time
}

// DirentType classifies a directory entry.
type DirentType int

const (
	DirentUnknown DirentType = iota
	DirentFile
	DirentDir
	DirentLink
	DirentFIFO
	DirentSocket
	DirentChar
	DirentBlock
)

// Dirent is one entry listed by FSScandir.
type Dirent struct {
	Name string
	Type DirentType
}

// FS is a filesystem request. Result holds the operation's return value
// (a descriptor for open, an entry count for scandir) or a negative status.
type FS struct {
	Req
	Type    FSType
	Path    string
	NewPath string
	Result  int64
	Stat    Stat
	Link    string
	Entries []Dirent
}

func (l *Loop) fsSubmit(req *FS, typ FSType, path string, work func(*FS) error, cb func(*FS)) Status {
	req.Type = typ
	req.Path = path
	req.Result = 0
	req.Stat = Stat{}
	req.Link = ``
	req.Entries = nil
	run := func() Status {
		status := FromError(work(req))
		if status.Failed() {
			req.Result = int64(status)
		}
		return status
	}
	if cb == nil {
		return l.runSync(&req.Req, FSReq, run)
	}
	l.submit(&req.Req, FSReq, ECANCELED, run, func(status Status) {
		if status == ECANCELED {
			req.Result = int64(status)
		}
		cb(req)
	})
	return OK
}

// FSOpen opens path. With a nil cb the call is synchronous and returns the
// operation's status.
func (l *Loop) FSOpen(req *FS, path string, flags int, mode uint32, cb func(*FS)) Status {
	return l.fsSubmit(req, FSOpen, path, func(r *FS) error {
		fd, err := unix.Open(path, flags|unix.O_CLOEXEC, mode)
		if err == nil {
			r.Result = int64(fd)
		}
		return err
	}, cb)
}

// FSClose closes fd.
func (l *Loop) FSClose(req *FS, fd int, cb func(*FS)) Status {
	return l.fsSubmit(req, FSClose, ``, func(*FS) error {
		return unix.Close(fd)
	}, cb)
}

// FSStat stats path, following symbolic links, into req.Stat.
func (l *Loop) FSStat(req *FS, path string, cb func(*FS)) Status {
	return l.fsSubmit(req, FSStat, path, func(r *FS) error {
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err != nil {
			return err
		}
		r.Stat = statFromSys(&st)
		return nil
	}, cb)
}

// FSLStat is FSStat without following a final symbolic link.
func (l *Loop) FSLStat(req *FS, path string, cb func(*FS)) Status {
	return l.fsSubmit(req, FSLStat, path, func(r *FS) error {
		var st unix.Stat_t
		if err := unix.Lstat(path, &st); err != nil {
			return err
		}
		r.Stat = statFromSys(&st)
		return nil
	}, cb)
}

// FSUnlink removes a file.
func (l *Loop) FSUnlink(req *FS, path string, cb func(*FS)) Status {
	return l.fsSubmit(req, FSUnlink, path, func(*FS) error {
		return unix.Unlink(path)
	}, cb)
}

// FSMkdir creates a directory with the given permission bits.
func (l *Loop) FSMkdir(req *FS, path string, mode uint32, cb func(*FS)) Status {
	return l.fsSubmit(req, FSMkdir, path, func(*FS) error {
		return unix.Mkdir(path, mode)
	}, cb)
}

// FSRmdir removes an empty directory.
func (l *Loop) FSRmdir(req *FS, path string, cb func(*FS)) Status {
	return l.fsSubmit(req, FSRmdir, path, func(*FS) error {
		return unix.Rmdir(path)
	}, cb)
}

// FSRename moves path to newPath, replacing any existing entry.
func (l *Loop) FSRename(req *FS, path, newPath string, cb func(*FS)) Status {
	req.NewPath = newPath
	return l.fsSubmit(req, FSRename, path, func(*FS) error {
		return unix.Rename(path, newPath)
	}, cb)
}

// FSReadLink reads a symbolic link's target into req.Link.
func (l *Loop) FSReadLink(req *FS, path string, cb func(*FS)) Status {
	return l.fsSubmit(req, FSReadLink, path, func(r *FS) error {
		link, err := os.Readlink(path)
		if err == nil {
			r.Link = link
		}
		return err
	}, cb)
}

// FSScandir lists path, excluding "." and "..", sorted by name.
func (l *Loop) FSScandir(req *FS, path string, cb func(*FS)) Status {
	return l.fsSubmit(req, FSScandir, path, func(r *FS) error {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		r.Entries = make([]Dirent, len(entries))
		for i, e := range entries {
			r.Entries[i] = Dirent{Name: e.Name(), Type: direntType(e.Type())}
		}
		r.Result = int64(len(entries))
		return nil
	}, cb)
}

func direntType(m fs.FileMode) DirentType {
	switch {
	case m.IsRegular():
		return DirentFile
	case m&fs.ModeDir != 0:
		return DirentDir
	case m&fs.ModeSymlink != 0:
		return DirentLink
	case m&fs.ModeNamedPipe != 0:
		return DirentFIFO
	case m&fs.ModeSocket != 0:
		return DirentSocket
	case m&fs.ModeCharDevice != 0:
		return DirentChar
	case m&fs.ModeDevice != 0:
		return DirentBlock
	default:
		return DirentUnknown
	}
}
