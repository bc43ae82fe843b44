// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Status is the signed result of every reactor operation. Negative values
// are errors from a closed taxonomy, zero and positive values are success.
type Status int

const (
	OK Status = 0

	E2BIG           = Status(-int(unix.E2BIG))
	EACCES          = Status(-int(unix.EACCES))
	EADDRINUSE      = Status(-int(unix.EADDRINUSE))
	EADDRNOTAVAIL   = Status(-int(unix.EADDRNOTAVAIL))
	EAFNOSUPPORT    = Status(-int(unix.EAFNOSUPPORT))
	EAGAIN          = Status(-int(unix.EAGAIN))
	EALREADY        = Status(-int(unix.EALREADY))
	EBADF           = Status(-int(unix.EBADF))
	EBUSY           = Status(-int(unix.EBUSY))
	ECANCELED       = Status(-int(unix.ECANCELED))
	ECONNABORTED    = Status(-int(unix.ECONNABORTED))
	ECONNREFUSED    = Status(-int(unix.ECONNREFUSED))
	ECONNRESET      = Status(-int(unix.ECONNRESET))
	EDESTADDRREQ    = Status(-int(unix.EDESTADDRREQ))
	EEXIST          = Status(-int(unix.EEXIST))
	EFAULT          = Status(-int(unix.EFAULT))
	EFBIG           = Status(-int(unix.EFBIG))
	EHOSTDOWN       = Status(-int(unix.EHOSTDOWN))
	EHOSTUNREACH    = Status(-int(unix.EHOSTUNREACH))
	EILSEQ          = Status(-int(unix.EILSEQ))
	EINTR           = Status(-int(unix.EINTR))
	EINVAL          = Status(-int(unix.EINVAL))
	EIO             = Status(-int(unix.EIO))
	EISCONN         = Status(-int(unix.EISCONN))
	EISDIR          = Status(-int(unix.EISDIR))
	ELOOP           = Status(-int(unix.ELOOP))
	EMFILE          = Status(-int(unix.EMFILE))
	EMLINK          = Status(-int(unix.EMLINK))
	EMSGSIZE        = Status(-int(unix.EMSGSIZE))
	ENAMETOOLONG    = Status(-int(unix.ENAMETOOLONG))
	ENETDOWN        = Status(-int(unix.ENETDOWN))
	ENETUNREACH     = Status(-int(unix.ENETUNREACH))
	ENFILE          = Status(-int(unix.ENFILE))
	ENOBUFS         = Status(-int(unix.ENOBUFS))
	ENODEV          = Status(-int(unix.ENODEV))
	ENOENT          = Status(-int(unix.ENOENT))
	ENOMEM          = Status(-int(unix.ENOMEM))
	ENOPROTOOPT     = Status(-int(unix.ENOPROTOOPT))
	ENOSPC          = Status(-int(unix.ENOSPC))
	ENOSYS          = Status(-int(unix.ENOSYS))
	ENOTCONN        = Status(-int(unix.ENOTCONN))
	ENOTDIR         = Status(-int(unix.ENOTDIR))
	ENOTEMPTY       = Status(-int(unix.ENOTEMPTY))
	ENOTSOCK        = Status(-int(unix.ENOTSOCK))
	ENOTSUP         = Status(-int(unix.ENOTSUP))
	ENOTTY          = Status(-int(unix.ENOTTY))
	ENXIO           = Status(-int(unix.ENXIO))
	EOVERFLOW       = Status(-int(unix.EOVERFLOW))
	EPERM           = Status(-int(unix.EPERM))
	EPIPE           = Status(-int(unix.EPIPE))
	EPROTO          = Status(-int(unix.EPROTO))
	EPROTONOSUPPORT = Status(-int(unix.EPROTONOSUPPORT))
	EPROTOTYPE      = Status(-int(unix.EPROTOTYPE))
	ERANGE          = Status(-int(unix.ERANGE))
	EROFS           = Status(-int(unix.EROFS))
	ESHUTDOWN       = Status(-int(unix.ESHUTDOWN))
	ESOCKTNOSUPPORT = Status(-int(unix.ESOCKTNOSUPPORT))
	ESPIPE          = Status(-int(unix.ESPIPE))
	ESRCH           = Status(-int(unix.ESRCH))
	ETIMEDOUT       = Status(-int(unix.ETIMEDOUT))
	ETXTBSY         = Status(-int(unix.ETXTBSY))
	EXDEV           = Status(-int(unix.EXDEV))

	EAI_ADDRFAMILY Status = -3000
	EAI_AGAIN      Status = -3001
	EAI_BADFLAGS   Status = -3002
	EAI_CANCELED   Status = -3003
	EAI_FAIL       Status = -3004
	EAI_FAMILY     Status = -3005
	EAI_MEMORY     Status = -3006
	EAI_NODATA     Status = -3007
	EAI_NONAME     Status = -3008
	EAI_OVERFLOW   Status = -3009
	EAI_SERVICE    Status = -3010
	EAI_SOCKTYPE   Status = -3011
	EAI_BADHINTS   Status = -3013
	EAI_PROTOCOL   Status = -3014

	ECHARSET Status = -4080
	UNKNOWN  Status = -4094
	EOF      Status = -4095
)

type statusEntry struct {
	name    string
	message string
}

var statusTable = map[Status]statusEntry{
	E2BIG:           {`E2BIG`, `argument list too long`},
	EACCES:          {`EACCES`, `permission denied`},
	EADDRINUSE:      {`EADDRINUSE`, `address already in use`},
	EADDRNOTAVAIL:   {`EADDRNOTAVAIL`, `address not available`},
	EAFNOSUPPORT:    {`EAFNOSUPPORT`, `address family not supported`},
	EAGAIN:          {`EAGAIN`, `resource temporarily unavailable`},
	EALREADY:        {`EALREADY`, `connection already in progress`},
	EBADF:           {`EBADF`, `bad file descriptor`},
	EBUSY:           {`EBUSY`, `resource busy or locked`},
	ECANCELED:       {`ECANCELED`, `operation canceled`},
	ECONNABORTED:    {`ECONNABORTED`, `software caused connection abort`},
	ECONNREFUSED:    {`ECONNREFUSED`, `connection refused`},
	ECONNRESET:      {`ECONNRESET`, `connection reset by peer`},
	EDESTADDRREQ:    {`EDESTADDRREQ`, `destination address required`},
	EEXIST:          {`EEXIST`, `file already exists`},
	EFAULT:          {`EFAULT`, `bad address in system call argument`},
	EFBIG:           {`EFBIG`, `file too large`},
	EHOSTDOWN:       {`EHOSTDOWN`, `host is down`},
	EHOSTUNREACH:    {`EHOSTUNREACH`, `host is unreachable`},
	EILSEQ:          {`EILSEQ`, `illegal byte sequence`},
	EINTR:           {`EINTR`, `interrupted system call`},
	EINVAL:          {`EINVAL`, `invalid argument`},
	EIO:             {`EIO`, `i/o error`},
	EISCONN:         {`EISCONN`, `socket is already connected`},
	EISDIR:          {`EISDIR`, `illegal operation on a directory`},
	ELOOP:           {`ELOOP`, `too many symbolic links encountered`},
	EMFILE:          {`EMFILE`, `too many open files`},
	EMLINK:          {`EMLINK`, `too many links`},
	EMSGSIZE:        {`EMSGSIZE`, `message too long`},
	ENAMETOOLONG:    {`ENAMETOOLONG`, `name too long`},
	ENETDOWN:        {`ENETDOWN`, `network is down`},
	ENETUNREACH:     {`ENETUNREACH`, `network is unreachable`},
	ENFILE:          {`ENFILE`, `file table overflow`},
	ENOBUFS:         {`ENOBUFS`, `no buffer space available`},
	ENODEV:          {`ENODEV`, `no such device`},
	ENOENT:          {`ENOENT`, `no such file or directory`},
	ENOMEM:          {`ENOMEM`, `not enough memory`},
	ENOPROTOOPT:     {`ENOPROTOOPT`, `protocol not available`},
	ENOSPC:          {`ENOSPC`, `no space left on device`},
	ENOSYS:          {`ENOSYS`, `function not implemented`},
	ENOTCONN:        {`ENOTCONN`, `socket is not connected`},
	ENOTDIR:         {`ENOTDIR`, `not a directory`},
	ENOTEMPTY:       {`ENOTEMPTY`, `directory not empty`},
	ENOTSOCK:        {`ENOTSOCK`, `socket operation on non-socket`},
	ENOTSUP:         {`ENOTSUP`, `operation not supported on socket`},
	ENOTTY:          {`ENOTTY`, `inappropriate ioctl for device`},
	ENXIO:           {`ENXIO`, `no such device or address`},
	EOVERFLOW:       {`EOVERFLOW`, `value too large for defined data type`},
	EPERM:           {`EPERM`, `operation not permitted`},
	EPIPE:           {`EPIPE`, `broken pipe`},
	EPROTO:          {`EPROTO`, `protocol error`},
	EPROTONOSUPPORT: {`EPROTONOSUPPORT`, `protocol not supported`},
	EPROTOTYPE:      {`EPROTOTYPE`, `protocol wrong type for socket`},
	ERANGE:          {`ERANGE`, `result too large`},
	EROFS:           {`EROFS`, `read-only file system`},
	ESHUTDOWN:       {`ESHUTDOWN`, `cannot send after transport endpoint shutdown`},
	ESOCKTNOSUPPORT: {`ESOCKTNOSUPPORT`, `socket type not supported`},
	ESPIPE:          {`ESPIPE`, `invalid seek`},
	ESRCH:           {`ESRCH`, `no such process`},
	ETIMEDOUT:       {`ETIMEDOUT`, `connection timed out`},
	ETXTBSY:         {`ETXTBSY`, `text file is busy`},
	EXDEV:           {`EXDEV`, `cross-device link not permitted`},

	EAI_ADDRFAMILY: {`EAI_ADDRFAMILY`, `address family not supported`},
	EAI_AGAIN:      {`EAI_AGAIN`, `temporary failure`},
	EAI_BADFLAGS:   {`EAI_BADFLAGS`, `bad ai_flags value`},
	EAI_CANCELED:   {`EAI_CANCELED`, `request canceled`},
	EAI_FAIL:       {`EAI_FAIL`, `permanent failure`},
	EAI_FAMILY:     {`EAI_FAMILY`, `ai_family not supported`},
	EAI_MEMORY:     {`EAI_MEMORY`, `out of memory`},
	EAI_NODATA:     {`EAI_NODATA`, `no address`},
	EAI_NONAME:     {`EAI_NONAME`, `unknown node or service`},
	EAI_OVERFLOW:   {`EAI_OVERFLOW`, `argument buffer overflow`},
	EAI_SERVICE:    {`EAI_SERVICE`, `service not available for socket type`},
	EAI_SOCKTYPE:   {`EAI_SOCKTYPE`, `socket type not supported`},
	EAI_BADHINTS:   {`EAI_BADHINTS`, `invalid value for hints`},
	EAI_PROTOCOL:   {`EAI_PROTOCOL`, `resolved protocol is unknown`},

	ECHARSET: {`ECHARSET`, `invalid Unicode character`},
	UNKNOWN:  {`UNKNOWN`, `unknown error`},
	EOF:      {`EOF`, `end of file`},
}

// Statuses returns every error status in the taxonomy, in no particular order.
func Statuses() []Status {
	codes := make([]Status, 0, len(statusTable))
	for code := range statusTable {
		codes = append(codes, code)
	}
	return codes
}

// Known reports whether s is OK or part of the error taxonomy.
func (s Status) Known() bool {
	if s >= 0 {
		return true
	}
	_, ok := statusTable[s]
	return ok
}

// Name returns the symbolic name, e.g. "EBUSY".
func (s Status) Name() string {
	if s >= 0 {
		return `OK`
	}
	if e, ok := statusTable[s]; ok {
		return e.name
	}
	return fmt.Sprintf(`Unknown system error %d`, int(s))
}

// Message returns the human-readable description.
func (s Status) Message() string {
	if s >= 0 {
		return `success`
	}
	if e, ok := statusTable[s]; ok {
		return e.message
	}
	return fmt.Sprintf(`Unknown system error %d`, int(s))
}

func (s Status) String() string { return s.Name() }

// Failed reports whether s denotes an error.
func (s Status) Failed() bool { return s < 0 }

// FromError maps a Go error onto the taxonomy. A nil error maps to OK.
func FromError(err error) Status {
	if err == nil {
		return OK
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == 0 {
			return OK
		}
		return Status(-int(errno))
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return EAI_NONAME
		case dnsErr.IsTimeout, dnsErr.IsTemporary:
			return EAI_AGAIN
		default:
			return EAI_FAIL
		}
	}
	switch {
	case errors.Is(err, io.EOF):
		return EOF
	case errors.Is(err, context.Canceled):
		return ECANCELED
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return ETIMEDOUT
	case errors.Is(err, os.ErrNotExist):
		return ENOENT
	case errors.Is(err, os.ErrExist):
		return EEXIST
	case errors.Is(err, os.ErrPermission):
		return EACCES
	case errors.Is(err, os.ErrClosed):
		return EBADF
	case errors.Is(err, os.ErrInvalid):
		return EINVAL
	}
	return UNKNOWN
}
