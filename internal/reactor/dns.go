// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"context"
	"net"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Hint flags for GetAddrInfo.
const (
	AIPassive   = 0x1
	AICanonName = 0x2
)

// Flags for GetNameInfo.
const (
	NINumericHost = 0x1
	NINumericServ = 0x2
	NINameReqd    = 0x8
	NIDgram       = 0x10
)

// AddrInfoHints restricts a GetAddrInfo lookup. Zero fields are wildcards.
type AddrInfoHints struct {
	Family   int
	SockType int
	Protocol int
	Flags    int
}

// AddrInfo is one resolved address.
type AddrInfo struct {
	Family    int
	SockType  int
	Protocol  int
	IP        net.IP
	Port      int
	CanonName string
}

// GetAddrInfo resolves a node and service to addresses.
type GetAddrInfo struct {
	Req
	Node    string
	Service string
	Hints   AddrInfoHints
	Addrs   []AddrInfo
}

// GetNameInfo resolves an address to a host and service name.
type GetNameInfo struct {
	Req
	IP      net.IP
	Port    int
	Flags   int
	Host    string
	Service string
}

// GetAddrInfo starts a lookup. With a nil cb it runs synchronously and returns
// the lookup status. Cancellation completes with EAI_CANCELED.
func (l *Loop) GetAddrInfo(req *GetAddrInfo, cb func(*GetAddrInfo, Status), node, service string, hints *AddrInfoHints) Status {
	if node == `` && service == `` {
		return EINVAL
	}
	req.Node, req.Service, req.Addrs = node, service, nil
	req.Hints = AddrInfoHints{}
	if hints != nil {
		req.Hints = *hints
	}
	work := func() Status {
		addrs, status := resolveAddrInfo(context.Background(), req.Node, req.Service, req.Hints)
		req.Addrs = addrs
		return status
	}
	if cb == nil {
		return l.runSync(&req.Req, GetAddrInfoReq, work)
	}
	l.submit(&req.Req, GetAddrInfoReq, EAI_CANCELED, work, func(status Status) { cb(req, status) })
	return OK
}

// GetNameInfo starts a reverse lookup. With a nil cb it runs synchronously.
func (l *Loop) GetNameInfo(req *GetNameInfo, cb func(*GetNameInfo, Status), ip net.IP, port int, flags int) Status {
	if ip == nil {
		return EINVAL
	}
	req.IP, req.Port, req.Flags = ip, port, flags
	req.Host, req.Service = ``, ``
	work := func() Status {
		host, service, status := resolveNameInfo(context.Background(), req.IP, req.Port, req.Flags)
		req.Host, req.Service = host, service
		return status
	}
	if cb == nil {
		return l.runSync(&req.Req, GetNameInfoReq, work)
	}
	l.submit(&req.Req, GetNameInfoReq, EAI_CANCELED, work, func(status Status) { cb(req, status) })
	return OK
}

func resolveAddrInfo(ctx context.Context, node, service string, hints AddrInfoHints) ([]AddrInfo, Status) {
	switch hints.Family {
	case 0, unix.AF_INET, unix.AF_INET6:
	default:
		return nil, EAI_FAMILY
	}
	switch hints.SockType {
	case 0, unix.SOCK_STREAM, unix.SOCK_DGRAM:
	default:
		return nil, EAI_SOCKTYPE
	}

	port := 0
	if service != `` {
		network := `tcp`
		if hints.SockType == unix.SOCK_DGRAM {
			network = `udp`
		}
		p, err := net.DefaultResolver.LookupPort(ctx, network, service)
		if err != nil {
			return nil, EAI_SERVICE
		}
		port = p
	}

	var ips []net.IP
	if node == `` {
		if hints.Flags&AIPassive != 0 {
			ips = []net.IP{net.IPv4zero, net.IPv6unspecified}
		} else {
			ips = []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
		}
	} else {
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, node)
		if err != nil {
			return nil, dnsStatus(err)
		}
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
	}

	canon := ``
	if hints.Flags&AICanonName != 0 && node != `` {
		if cname, err := net.DefaultResolver.LookupCNAME(ctx, node); err == nil {
			canon = strings.TrimSuffix(cname, `.`)
		} else {
			canon = node
		}
	}

	sockTypes := []int{unix.SOCK_STREAM, unix.SOCK_DGRAM}
	if hints.SockType != 0 {
		sockTypes = []int{hints.SockType}
	}

	var out []AddrInfo
	for _, ip := range ips {
		family := unix.AF_INET6
		if ip.To4() != nil {
			family = unix.AF_INET
		}
		if hints.Family != 0 && hints.Family != family {
			continue
		}
		for _, st := range sockTypes {
			proto := unix.IPPROTO_TCP
			if st == unix.SOCK_DGRAM {
				proto = unix.IPPROTO_UDP
			}
			if hints.Protocol != 0 && hints.Protocol != proto {
				continue
			}
			info := AddrInfo{Family: family, SockType: st, Protocol: proto, IP: ip, Port: port}
			if len(out) == 0 {
				info.CanonName = canon
			}
			out = append(out, info)
		}
	}
	if len(out) == 0 {
		return nil, EAI_NODATA
	}
	return out, OK
}

func resolveNameInfo(ctx context.Context, ip net.IP, port int, flags int) (string, string, Status) {
	service := strconv.Itoa(port)
	if flags&NINumericHost != 0 {
		return ip.String(), service, OK
	}
	names, err := net.DefaultResolver.LookupAddr(ctx, ip.String())
	if err != nil || len(names) == 0 {
		if flags&NINameReqd != 0 {
			if err == nil {
				return ``, ``, EAI_NONAME
			}
			return ``, ``, dnsStatus(err)
		}
		return ip.String(), service, OK
	}
	return strings.TrimSuffix(names[0], `.`), service, OK
}

func dnsStatus(err error) Status {
	status := FromError(err)
	if status <= EAI_ADDRFAMILY && status >= EAI_PROTOCOL {
		return status
	}
	if status == ECANCELED {
		return EAI_CANCELED
	}
	return EAI_FAIL
}
