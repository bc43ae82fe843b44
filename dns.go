// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"net"

	"github.com/joeycumines/go-uv/internal/reactor"
)

// AddrInfoHints restricts a GetAddrInfo lookup. Zero fields match anything.
type AddrInfoHints = reactor.AddrInfoHints

// AddrInfo is one resolved address.
type AddrInfo = reactor.AddrInfo

// AddrInfoHints flags.
const (
	AIPassive   = reactor.AIPassive
	AICanonName = reactor.AICanonName
)

// GetNameInfo flags.
const (
	NINumericHost = reactor.NINumericHost
	NINumericServ = reactor.NINumericServ
	NINameReqd    = reactor.NINameReqd
	NIDgram       = reactor.NIDgram
)

// GetAddrInfoRequest resolves a host and service to addresses.
type GetAddrInfoRequest struct {
	request
	native *reactor.GetAddrInfo
	onDone func(*GetAddrInfoRequest)
	status StatusCode
}

// GetAddrInfo resolves node and service, either of which may be empty but
// not both. With a nil onDone it resolves synchronously and the error
// carries the lookup status. Cancellation completes with EAI_CANCELED.
func GetAddrInfo(loop *Loop, node, service string, hints *AddrInfoHints, onDone func(*GetAddrInfoRequest)) (*GetAddrInfoRequest, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	r := &GetAddrInfoRequest{native: new(reactor.GetAddrInfo), onDone: onDone}
	if onDone == nil {
		return r, runRequest(loop, r, GetAddrInfoReq, `getaddrinfo`, &r.native.Req, func(l *reactor.Loop) reactor.Status {
			r.status = l.GetAddrInfo(r.native, nil, node, service, hints)
			return r.status
		})
	}
	if err := submitRequest(loop, r, GetAddrInfoReq, `getaddrinfo`, &r.native.Req, func(l *reactor.Loop) reactor.Status {
		return l.GetAddrInfo(r.native, onAddrInfo, node, service, hints)
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// Node returns the host name or address being resolved.
func (r *GetAddrInfoRequest) Node() string { return r.native.Node }

// Service returns the service name or port being resolved.
func (r *GetAddrInfoRequest) Service() string { return r.native.Service }

// Addrs returns the resolved addresses, empty until the lookup succeeds.
func (r *GetAddrInfoRequest) Addrs() []AddrInfo { return r.native.Addrs }

// Status returns the lookup status, OK until it completes.
func (r *GetAddrInfoRequest) Status() StatusCode { return r.status }

// Err returns the failure as an *Error, nil on success.
func (r *GetAddrInfoRequest) Err() error { return newError(r.status, `getaddrinfo`) }

func onAddrInfo(n *reactor.GetAddrInfo, status reactor.Status) {
	r, ok := completeRequest(&n.Req).(*GetAddrInfoRequest)
	if !ok {
		return
	}
	r.status = status
	if cb := r.onDone; cb != nil {
		r.invokeDone(func() { cb(r) })
	}
}

// GetNameInfoRequest resolves an address to a host and service name.
type GetNameInfoRequest struct {
	request
	native *reactor.GetNameInfo
	onDone func(*GetNameInfoRequest)
	status StatusCode
}

// GetNameInfo resolves ip and port. Without NINameReqd an address with no
// name resolves to its numeric form.
func GetNameInfo(loop *Loop, ip net.IP, port int, flags int, onDone func(*GetNameInfoRequest)) (*GetNameInfoRequest, error) {
	loop, err := resolveLoop(loop)
	if err != nil {
		return nil, err
	}
	r := &GetNameInfoRequest{native: new(reactor.GetNameInfo), onDone: onDone}
	if onDone == nil {
		return r, runRequest(loop, r, GetNameInfoReq, `getnameinfo`, &r.native.Req, func(l *reactor.Loop) reactor.Status {
			r.status = l.GetNameInfo(r.native, nil, ip, port, flags)
			return r.status
		})
	}
	if err := submitRequest(loop, r, GetNameInfoReq, `getnameinfo`, &r.native.Req, func(l *reactor.Loop) reactor.Status {
		return l.GetNameInfo(r.native, onNameInfo, ip, port, flags)
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// Host is the resolved host name, empty until the request succeeds.
func (r *GetNameInfoRequest) Host() string { return r.native.Host }

// Service is the resolved service name, empty until the request succeeds.
func (r *GetNameInfoRequest) Service() string { return r.native.Service }

// Status is the completion status, EAI_CANCELED after a successful Cancel.
func (r *GetNameInfoRequest) Status() StatusCode { return r.status }

// Err returns the failure as an *Error, nil on success.
func (r *GetNameInfoRequest) Err() error { return newError(r.status, `getnameinfo`) }

func onNameInfo(n *reactor.GetNameInfo, status reactor.Status) {
	r, ok := completeRequest(&n.Req).(*GetNameInfoRequest)
	if !ok {
		return
	}
	r.status = status
	if cb := r.onDone; cb != nil {
		r.invokeDone(func() { cb(r) })
	}
}
