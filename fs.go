// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// FSType identifies the operation an FSRequest performs.
type FSType = reactor.FSType

// FSRequest operations, as reported by Op.
const (
	FSOpenOp     = reactor.FSOpen
	FSCloseOp    = reactor.FSClose
	FSStatOp     = reactor.FSStat
	FSLStatOp    = reactor.FSLStat
	FSUnlinkOp   = reactor.FSUnlink
	FSMkdirOp    = reactor.FSMkdir
	FSRmdirOp    = reactor.FSRmdir
	FSRenameOp   = reactor.FSRename
	FSReadLinkOp = reactor.FSReadLink
	FSScandirOp  = reactor.FSScandir
)

// Stat mirrors the fields of a stat(2) result.
type Stat = reactor.Stat

// DirentType classifies a directory entry.
type DirentType = reactor.DirentType

// Directory entry types. DirentUnknown is reported when the filesystem does
// not say.
const (
	DirentUnknown = reactor.DirentUnknown
	DirentFile    = reactor.DirentFile
	DirentDir     = reactor.DirentDir
	DirentLink    = reactor.DirentLink
	DirentFIFO    = reactor.DirentFIFO
	DirentSocket  = reactor.DirentSocket
	DirentChar    = reactor.DirentChar
	DirentBlock   = reactor.DirentBlock
)

// Dirent is one entry listed by FSScandir.
type Dirent = reactor.Dirent

// FSRequest is a filesystem operation run on the thread pool.
//
// Every operation takes an onDone callback. When it is nil the operation runs
// synchronously on the calling goroutine, and the returned error reflects its
// outcome. Otherwise the returned error only reports a rejected submission,
// and the outcome is available from the request once onDone runs.
type FSRequest struct {
	request
	native *reactor.FS
	onDone func(*FSRequest)
}

// Op returns the operation.
func (r *FSRequest) Op() FSType { return r.native.Type }

// Result is the operation's return value: a descriptor for open, an entry
// count for scandir, otherwise zero. It is the negative status on failure.
func (r *FSRequest) Result() int64 { return r.native.Result }

// Status returns the operation's status, OK until it completes.
func (r *FSRequest) Status() StatusCode {
	if r.native.Result < 0 {
		return StatusCode(r.native.Result)
	}
	return OK
}

// Err returns Status as an error, nil on success.
func (r *FSRequest) Err() error {
	return newError(r.Status(), `fs_`+r.native.Type.String())
}

// Path returns the path operated on, empty for FSClose.
func (r *FSRequest) Path() string { return r.native.Path }

// NewPath is the destination of a rename.
func (r *FSRequest) NewPath() string { return r.native.NewPath }

// Stat is populated by FSStat and FSLStat.
func (r *FSRequest) Stat() Stat { return r.native.Stat }

// Link is populated by FSReadLink.
func (r *FSRequest) Link() string { return r.native.Link }

// Entries is populated by FSScandir, sorted by name.
func (r *FSRequest) Entries() []Dirent { return r.native.Entries }

type fsStarter func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status

func fsRequest(loop *Loop, op string, onDone func(*FSRequest), start fsStarter) (*FSRequest, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	r := &FSRequest{native: new(reactor.FS), onDone: onDone}
	if onDone == nil {
		return r, runRequest(loop, r, FSReq, op, &r.native.Req, func(l *reactor.Loop) reactor.Status {
			return start(l, r.native, nil)
		})
	}
	if err := submitRequest(loop, r, FSReq, op, &r.native.Req, func(l *reactor.Loop) reactor.Status {
		return start(l, r.native, onFSDone)
	}); err != nil {
		return nil, err
	}
	return r, nil
}

func onFSDone(n *reactor.FS) {
	r, ok := completeRequest(&n.Req).(*FSRequest)
	if !ok {
		return
	}
	if cb := r.onDone; cb != nil {
		r.invokeDone(func() { cb(r) })
	}
}

// FSOpen opens path with open(2) flags, e.g. os.O_RDONLY. The descriptor is
// the request's Result.
func FSOpen(loop *Loop, path string, flags int, mode uint32, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_open`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSOpen(req, path, flags, mode, cb)
	})
}

// FSClose closes the descriptor fd.
func FSClose(loop *Loop, fd int, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_close`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSClose(req, fd, cb)
	})
}

// FSStat stats path, following symbolic links. The result is available from
// FSRequest.Stat.
func FSStat(loop *Loop, path string, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_stat`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSStat(req, path, cb)
	})
}

// FSLStat is FSStat without following a final symlink.
func FSLStat(loop *Loop, path string, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_lstat`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSLStat(req, path, cb)
	})
}

// FSUnlink removes the file at path.
func FSUnlink(loop *Loop, path string, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_unlink`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSUnlink(req, path, cb)
	})
}

// FSMkdir creates the directory path with the given permission bits.
func FSMkdir(loop *Loop, path string, mode uint32, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_mkdir`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSMkdir(req, path, mode, cb)
	})
}

// FSRmdir removes the empty directory path.
func FSRmdir(loop *Loop, path string, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_rmdir`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSRmdir(req, path, cb)
	})
}

// FSRename atomically moves path to newPath, replacing any existing entry.
func FSRename(loop *Loop, path, newPath string, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_rename`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSRename(req, path, newPath, cb)
	})
}

// FSReadLink reads the target of the symbolic link at path, available from
// FSRequest.Link.
func FSReadLink(loop *Loop, path string, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_readlink`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSReadLink(req, path, cb)
	})
}

// FSScandir lists a directory, excluding "." and "..".
func FSScandir(loop *Loop, path string, onDone func(*FSRequest)) (*FSRequest, error) {
	return fsRequest(loop, `fs_scandir`, onDone, func(l *reactor.Loop, req *reactor.FS, cb func(*reactor.FS)) reactor.Status {
		return l.FSScandir(req, path, cb)
	})
}
