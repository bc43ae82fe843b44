// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FSEvents is the change bit set reported by an FSEvent handle.
type FSEvents int

const (
	// FSEventRename covers creation, removal, and renaming of entries.
	FSEventRename FSEvents = 1 << iota
	// FSEventChange covers content and attribute changes.
	FSEventChange
)

// FSEvent watches a file or directory. The callback receives the affected
// entry name relative to the watched path.
type FSEvent struct {
	Handle
	cb      func(f *FSEvent, name string, events FSEvents, status Status)
	path    string
	watcher *fsnotify.Watcher
	gen     uint64
}

// InitFSEvent initializes f stopped. No watcher exists until Start.
func (l *Loop) InitFSEvent(f *FSEvent) Status {
	l.initHandle(&f.Handle, FSEventHandle, func() { f.Stop() })
	f.cb = nil
	f.path = ``
	return OK
}

// Path returns the watched path, or EINVAL if the handle is not started.
func (f *FSEvent) Path() (string, Status) {
	if !f.IsActive() {
		return ``, EINVAL
	}
	return f.path, OK
}

// Start fails with EINVAL if the handle is already watching.
func (f *FSEvent) Start(cb func(*FSEvent, string, FSEvents, Status), path string) Status {
	if f.IsClosing() || cb == nil || path == `` {
		return EINVAL
	}
	if f.IsActive() {
		return EINVAL
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return FromError(err)
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return FromError(err)
	}

	f.gen++
	gen := f.gen
	f.cb = cb
	f.path = path
	f.watcher = w

	l := f.loop
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				name, events := translateFSEvent(path, ev)
				if events == 0 {
					continue
				}
				l.post(func() { f.deliver(gen, name, events, OK) })
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				status := FromError(err)
				l.post(func() { f.deliver(gen, ``, 0, status) })
			}
		}
	}()

	f.activate()
	return OK
}

// Stop closes the watcher. Events already posted to the loop are dropped.
func (f *FSEvent) Stop() Status {
	if !f.IsActive() {
		return OK
	}
	_ = f.watcher.Close()
	f.watcher = nil
	f.gen++
	f.deactivate()
	return OK
}

func (f *FSEvent) deliver(gen uint64, name string, events FSEvents, status Status) {
	if !f.IsActive() || f.gen != gen {
		return
	}
	f.cb(f, name, events, status)
}

func translateFSEvent(root string, ev fsnotify.Event) (string, FSEvents) {
	var events FSEvents
	if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		events |= FSEventRename
	}
	if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Chmod) {
		events |= FSEventChange
	}
	name := filepath.Base(ev.Name)
	if ev.Name != root {
		if rel, err := filepath.Rel(root, ev.Name); err == nil {
			name = rel
		}
	}
	return name, events
}
