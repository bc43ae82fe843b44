// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

// HandleKind identifies the concrete type behind a Handle.
type HandleKind int

const (
	UnknownHandle HandleKind = iota
	AsyncHandle
	CheckHandle
	FSEventHandle
	FSPollHandle
	IdleHandle
	PollHandle
	PrepareHandle
	ProcessHandle
	SignalHandle
	TimerHandle
)

func (k HandleKind) String() string {
	switch k {
	case AsyncHandle:
		return `async`
	case CheckHandle:
		return `check`
	case FSEventHandle:
		return `fs_event`
	case FSPollHandle:
		return `fs_poll`
	case IdleHandle:
		return `idle`
	case PollHandle:
		return `poll`
	case PrepareHandle:
		return `prepare`
	case ProcessHandle:
		return `process`
	case SignalHandle:
		return `signal`
	case TimerHandle:
		return `timer`
	default:
		return `unknown`
	}
}

type handleFlags uint8

const (
	flagActive handleFlags = 1 << iota
	flagRef
	flagClosing
	flagClosed
)

// Handle is the header embedded in every concrete handle. All methods must be
// called from the goroutine running the owning loop.
type Handle struct {
	// Data is an opaque slot for the embedder, never read by the reactor.
	Data any

	loop    *Loop
	prev    *Handle
	next    *Handle
	closeCB func(*Handle)
	stop    func()
	kind    HandleKind
	flags   handleFlags
}

// initHandle links h into the loop's handle queue. Handles start referenced
// and inactive.
func (l *Loop) initHandle(h *Handle, kind HandleKind, stop func()) {
	h.loop = l
	h.kind = kind
	h.stop = stop
	h.closeCB = nil
	h.flags = flagRef
	l.handles.pushBack(h)
}

func (h *Handle) Loop() *Loop { return h.loop }

func (h *Handle) Kind() HandleKind { return h.kind }

func (h *Handle) IsActive() bool { return h.flags&flagActive != 0 }

// IsClosing reports true from the moment Close is called, including after the
// close callback has run.
func (h *Handle) IsClosing() bool { return h.flags&(flagClosing|flagClosed) != 0 }

func (h *Handle) IsClosed() bool { return h.flags&flagClosed != 0 }

func (h *Handle) HasRef() bool { return h.flags&flagRef != 0 }

// Ref makes an active handle count towards keeping the loop alive.
func (h *Handle) Ref() {
	if h.flags&flagRef != 0 {
		return
	}
	h.flags |= flagRef
	if h.flags&flagActive != 0 {
		h.loop.activeHandles++
	}
}

// Unref is the inverse of Ref. Both are idempotent.
func (h *Handle) Unref() {
	if h.flags&flagRef == 0 {
		return
	}
	h.flags &^= flagRef
	if h.flags&flagActive != 0 {
		h.loop.activeHandles--
	}
}

// Close stops the handle and queues it for the closing phase, where cb runs.
// Calling Close on a handle that is already closing does nothing.
func (h *Handle) Close(cb func(*Handle)) {
	if h.IsClosing() {
		return
	}
	h.flags |= flagClosing
	h.closeCB = cb
	if h.stop != nil {
		h.stop()
	}
	h.deactivate()
	h.loop.closing.Add(h)
}

func (h *Handle) activate() {
	if h.flags&flagActive != 0 {
		return
	}
	h.flags |= flagActive
	if h.flags&flagRef != 0 {
		h.loop.activeHandles++
	}
}

func (h *Handle) deactivate() {
	if h.flags&flagActive == 0 {
		return
	}
	h.flags &^= flagActive
	if h.flags&flagRef != 0 {
		h.loop.activeHandles--
	}
}

func (h *Handle) finishClose() {
	h.flags |= flagClosed
	h.loop.handles.remove(h)
	cb := h.closeCB
	h.closeCB = nil
	h.stop = nil
	if cb != nil {
		cb(h)
	}
}

// handleList is the intrusive, insertion-ordered queue of initialized handles.
type handleList struct {
	first *Handle
	last  *Handle
	n     int
}

func (x *handleList) pushBack(h *Handle) {
	h.prev = x.last
	h.next = nil
	if x.last != nil {
		x.last.next = h
	} else {
		x.first = h
	}
	x.last = h
	x.n++
}

func (x *handleList) remove(h *Handle) {
	if h.prev != nil {
		h.prev.next = h.next
	} else if x.first == h {
		x.first = h.next
	} else {
		return
	}
	if h.next != nil {
		h.next.prev = h.prev
	} else {
		x.last = h.prev
	}
	h.prev, h.next = nil, nil
	x.n--
}

func (x *handleList) snapshot() []*Handle {
	out := make([]*Handle, 0, x.n)
	for h := x.first; h != nil; h = h.next {
		out = append(out, h)
	}
	return out
}
