// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"fmt"

	"github.com/joeycumines/go-uv/internal/reactor"
)

// HandleType identifies the concrete type of a Handle.
type HandleType int

// Handle types. UnknownHandle is never the type of a live handle.
const (
	UnknownHandle HandleType = iota
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

// RequestType identifies the concrete type of a Request.
type RequestType int

// Request types.
const (
	UnknownRequest RequestType = iota
	FSReq
	GetAddrInfoReq
	GetNameInfoReq
)

// handleVariant is one row of the handle type table.
type handleVariant struct {
	kind reactor.HandleKind
	name string
	// open creates an unstarted handle of this type, nil for types that need
	// more than a loop to construct.
	open func(*Loop) (Handle, error)
}

var handleVariants = [...]handleVariant{
	UnknownHandle: {kind: reactor.UnknownHandle, name: `unknown`},
	AsyncHandle:   {kind: reactor.AsyncHandle, name: `async`},
	CheckHandle:   {kind: reactor.CheckHandle, name: `check`},
	FSEventHandle: {kind: reactor.FSEventHandle, name: `fs_event`},
	FSPollHandle:  {kind: reactor.FSPollHandle, name: `fs_poll`},
	IdleHandle:    {kind: reactor.IdleHandle, name: `idle`},
	PollHandle:    {kind: reactor.PollHandle, name: `poll`},
	PrepareHandle: {kind: reactor.PrepareHandle, name: `prepare`},
	ProcessHandle: {kind: reactor.ProcessHandle, name: `process`},
	SignalHandle:  {kind: reactor.SignalHandle, name: `signal`},
	TimerHandle:   {kind: reactor.TimerHandle, name: `timer`},
}

// The constructors refer back to the table, so they are bound at init.
func init() {
	handleVariants[AsyncHandle].open = func(l *Loop) (Handle, error) { return NewAsync(l, nil) }
	handleVariants[CheckHandle].open = func(l *Loop) (Handle, error) { return NewCheck(l) }
	handleVariants[FSEventHandle].open = func(l *Loop) (Handle, error) { return NewFSEvent(l) }
	handleVariants[FSPollHandle].open = func(l *Loop) (Handle, error) { return NewFSPoll(l) }
	handleVariants[IdleHandle].open = func(l *Loop) (Handle, error) { return NewIdle(l) }
	handleVariants[PrepareHandle].open = func(l *Loop) (Handle, error) { return NewPrepare(l) }
	handleVariants[SignalHandle].open = func(l *Loop) (Handle, error) { return NewSignal(l) }
	handleVariants[TimerHandle].open = func(l *Loop) (Handle, error) { return NewTimer(l) }
}

var requestVariants = [...]struct {
	kind reactor.ReqKind
	name string
}{
	UnknownRequest: {kind: reactor.UnknownReq, name: `unknown`},
	FSReq:          {kind: reactor.FSReq, name: `fs`},
	GetAddrInfoReq: {kind: reactor.GetAddrInfoReq, name: `getaddrinfo`},
	GetNameInfoReq: {kind: reactor.GetNameInfoReq, name: `getnameinfo`},
}

// String returns the lower case type name, e.g. "fs_event".
func (t HandleType) String() string {
	if t < 0 || int(t) >= len(handleVariants) {
		return fmt.Sprintf(`HandleType(%d)`, int(t))
	}
	return handleVariants[t].name
}

// String returns the lower case type name, e.g. "getaddrinfo".
func (t RequestType) String() string {
	if t < 0 || int(t) >= len(requestVariants) {
		return fmt.Sprintf(`RequestType(%d)`, int(t))
	}
	return requestVariants[t].name
}

// handleTypeOf maps a reactor kind code to its public type.
func handleTypeOf(kind reactor.HandleKind) HandleType {
	for t, v := range handleVariants {
		if v.kind == kind {
			return HandleType(t)
		}
	}
	return UnknownHandle
}

func requestTypeOf(kind reactor.ReqKind) RequestType {
	for t, v := range requestVariants {
		if v.kind == kind {
			return RequestType(t)
		}
	}
	return UnknownRequest
}

// NewHandle creates an unstarted handle of the given type on loop, the
// default loop if nil. Poll and process handles need more than a loop and
// fail with EINVAL, as do unknown types.
func NewHandle(loop *Loop, typ HandleType) (Handle, error) {
	if typ < 0 || int(typ) >= len(handleVariants) || handleVariants[typ].open == nil {
		return nil, &Error{Code: EINVAL, Op: `handle_new`}
	}
	return handleVariants[typ].open(loop)
}
