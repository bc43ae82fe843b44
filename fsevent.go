// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/reactor"
)

// FSEventFlag is a set of change kinds reported by an FSEvent handle.
type FSEventFlag = reactor.FSEvents

const (
	// FSEventRename covers creation, removal, and renaming of entries.
	FSEventRename = reactor.FSEventRename
	// FSEventChange covers content and attribute changes.
	FSEventChange = reactor.FSEventChange
)

// FSEventCallback receives the name of the changed entry, relative to the
// watched path, or a negative status if watching failed.
type FSEventCallback func(f *FSEvent, name string, events FSEventFlag, status StatusCode)

// FSEvent watches a file or directory for changes.
type FSEvent struct {
	handle
	native   *reactor.FSEvent
	onChange FSEventCallback
}

// NewFSEvent creates a stopped watcher on loop, the default loop if nil.
func NewFSEvent(loop *Loop) (*FSEvent, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	f := &FSEvent{native: new(reactor.FSEvent)}
	if err := openHandle(loop, f, FSEventHandle, &f.native.Handle, func(l *reactor.Loop) reactor.Status {
		return l.InitFSEvent(f.native)
	}); err != nil {
		return nil, err
	}
	return f, nil
}

// Start watches path. It fails with EINVAL if already watching.
func (f *FSEvent) Start(path string, onChange FSEventCallback) error {
	if err := f.usable(); err != nil {
		return err
	}
	if onChange == nil {
		return &Error{Code: EINVAL, Op: `fs_event_start`}
	}
	if status := f.native.Start(onFSEvent, path); status.Failed() {
		return &Error{Code: status, Op: `fs_event_start`}
	}
	f.onChange = onChange
	f.retain()
	return nil
}

// Stop ends watching. Stopping a stopped watcher does nothing.
func (f *FSEvent) Stop() error {
	if err := f.usable(); err != nil {
		return err
	}
	if status := f.native.Stop(); status.Failed() {
		return &Error{Code: status, Op: `fs_event_stop`}
	}
	f.release()
	return nil
}

// Path returns the watched path. It fails with EINVAL while not watching.
func (f *FSEvent) Path() (string, error) {
	if err := f.usable(); err != nil {
		return ``, err
	}
	path, status := f.native.Path()
	if status.Failed() {
		return ``, &Error{Code: status, Op: `fs_event_getpath`}
	}
	return path, nil
}

func onFSEvent(n *reactor.FSEvent, name string, events reactor.FSEvents, status reactor.Status) {
	f, ok := dispatchHandle(&n.Handle).(*FSEvent)
	if !ok {
		return
	}
	if cb := f.onChange; cb != nil {
		f.base.loop.invoke(`fs_event`, `on_change`, func() { cb(f, name, events, status) })
	}
}
