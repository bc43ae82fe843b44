// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-uv/internal/reactor"
)

// StatusCode is the signed result of a reactor operation. Negative values are
// errors, each with a symbolic Name and a Message.
type StatusCode = reactor.Status

// Status codes. Every code but OK is negative, mostly the negated errno of
// the same name. The EAI_ codes are name resolution failures.
const (
	// OK is success. Every error is negative.
	OK = reactor.OK

	E2BIG           = reactor.E2BIG
	EACCES          = reactor.EACCES
	EADDRINUSE      = reactor.EADDRINUSE
	EADDRNOTAVAIL   = reactor.EADDRNOTAVAIL
	EAFNOSUPPORT    = reactor.EAFNOSUPPORT
	EAGAIN          = reactor.EAGAIN
	EALREADY        = reactor.EALREADY
	EBADF           = reactor.EBADF
	EBUSY           = reactor.EBUSY
	ECANCELED       = reactor.ECANCELED
	ECONNABORTED    = reactor.ECONNABORTED
	ECONNREFUSED    = reactor.ECONNREFUSED
	ECONNRESET      = reactor.ECONNRESET
	EDESTADDRREQ    = reactor.EDESTADDRREQ
	EEXIST          = reactor.EEXIST
	EFAULT          = reactor.EFAULT
	EFBIG           = reactor.EFBIG
	EHOSTDOWN       = reactor.EHOSTDOWN
	EHOSTUNREACH    = reactor.EHOSTUNREACH
	EILSEQ          = reactor.EILSEQ
	EINTR           = reactor.EINTR
	EINVAL          = reactor.EINVAL
	EIO             = reactor.EIO
	EISCONN         = reactor.EISCONN
	EISDIR          = reactor.EISDIR
	ELOOP           = reactor.ELOOP
	EMFILE          = reactor.EMFILE
	EMLINK          = reactor.EMLINK
	EMSGSIZE        = reactor.EMSGSIZE
	ENAMETOOLONG    = reactor.ENAMETOOLONG
	ENETDOWN        = reactor.ENETDOWN
	ENETUNREACH     = reactor.ENETUNREACH
	ENFILE          = reactor.ENFILE
	ENOBUFS         = reactor.ENOBUFS
	ENODEV          = reactor.ENODEV
	ENOENT          = reactor.ENOENT
	ENOMEM          = reactor.ENOMEM
	ENOPROTOOPT     = reactor.ENOPROTOOPT
	ENOSPC          = reactor.ENOSPC
	ENOSYS          = reactor.ENOSYS
	ENOTCONN        = reactor.ENOTCONN
	ENOTDIR         = reactor.ENOTDIR
	ENOTEMPTY       = reactor.ENOTEMPTY
	ENOTSOCK        = reactor.ENOTSOCK
	ENOTSUP         = reactor.ENOTSUP
	ENOTTY          = reactor.ENOTTY
	ENXIO           = reactor.ENXIO
	EOVERFLOW       = reactor.EOVERFLOW
	EPERM           = reactor.EPERM
	EPIPE           = reactor.EPIPE
	EPROTO          = reactor.EPROTO
	EPROTONOSUPPORT = reactor.EPROTONOSUPPORT
	EPROTOTYPE      = reactor.EPROTOTYPE
	ERANGE          = reactor.ERANGE
	EROFS           = reactor.EROFS
	ESHUTDOWN       = reactor.ESHUTDOWN
	ESOCKTNOSUPPORT = reactor.ESOCKTNOSUPPORT
	ESPIPE          = reactor.ESPIPE
	ESRCH           = reactor.ESRCH
	ETIMEDOUT       = reactor.ETIMEDOUT
	ETXTBSY         = reactor.ETXTBSY
	EXDEV           = reactor.EXDEV

	EAI_ADDRFAMILY = reactor.EAI_ADDRFAMILY
	EAI_AGAIN      = reactor.EAI_AGAIN
	EAI_BADFLAGS   = reactor.EAI_BADFLAGS
	EAI_CANCELED   = reactor.EAI_CANCELED
	EAI_FAIL       = reactor.EAI_FAIL
	EAI_FAMILY     = reactor.EAI_FAMILY
	EAI_MEMORY     = reactor.EAI_MEMORY
	EAI_NODATA     = reactor.EAI_NODATA
	EAI_NONAME     = reactor.EAI_NONAME
	EAI_OVERFLOW   = reactor.EAI_OVERFLOW
	EAI_SERVICE    = reactor.EAI_SERVICE
	EAI_SOCKTYPE   = reactor.EAI_SOCKTYPE
	EAI_BADHINTS   = reactor.EAI_BADHINTS
	EAI_PROTOCOL   = reactor.EAI_PROTOCOL

	ECHARSET = reactor.ECHARSET
	UNKNOWN  = reactor.UNKNOWN
	EOF      = reactor.EOF
)

// StatusCodes returns every error code in the taxonomy.
func StatusCodes() []StatusCode { return reactor.Statuses() }

var (
	// ErrLoopClosed is returned by operations on a loop that has been closed.
	ErrLoopClosed = errors.New("uv: loop is closed")

	// ErrHandleClosed is returned by operations on a handle that is closing
	// or closed. No reactor call is attempted.
	ErrHandleClosed = errors.New("uv: handle is closed")

	// ErrReentrantRun is returned when Run, or Close, is called while the
	// loop is already running.
	ErrReentrantRun = errors.New("uv: loop is already running")

	// ErrLoopBusy matches the error returned by Loop.Close while handles or
	// requests remain that are not closing.
	ErrLoopBusy error = &Error{Code: EBUSY, Op: opLoopClose}
)

const opLoopClose = `loop_close`

// Error is a negative status returned synchronously by a reactor operation.
type Error struct {
	Code StatusCode
	// Op names the failed operation, e.g. "timer_start".
	Op string
}

// newError returns nil for a non-negative code.
func newError(code StatusCode, op string) error {
	if !code.Failed() {
		return nil
	}
	return &Error{Code: code, Op: op}
}

// Error includes the operation, when known, and the symbolic code.
func (e *Error) Error() string {
	if e.Op == `` {
		return fmt.Sprintf(`uv: [%s] %s`, e.Code.Name(), e.Code.Message())
	}
	return fmt.Sprintf(`uv: %s: [%s] %s`, e.Op, e.Code.Name(), e.Code.Message())
}

// Name returns the symbolic name of the code, e.g. "EBUSY".
func (e *Error) Name() string { return e.Code.Name() }

// Message returns the human-readable description of the code.
func (e *Error) Message() string { return e.Code.Message() }

// Is matches another *Error with the same code, and the same Op when the
// target's Op is set.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Op == `` || t.Op == e.Op)
}

// StatusOf extracts the status code from err, UNKNOWN if err carries none
// and OK for nil.
func StatusOf(err error) StatusCode {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return UNKNOWN
}

// InitError reports that a resource failed to initialize. The resource is
// permanently closed and was never attached to its loop.
type InitError struct {
	Resource string
	Err      error
}

// Error names the resource and the underlying failure.
func (e *InitError) Error() string {
	return fmt.Sprintf(`uv: %s init failed: %v`, e.Resource, e.Err)
}

// Unwrap returns the underlying failure, usually an *Error.
func (e *InitError) Unwrap() error { return e.Err }

// CallbackError is a panic recovered from a user callback.
type CallbackError struct {
	// Source is the type of the resource that owns the callback, or "loop".
	Source string
	// Callback names the callback, e.g. "on_timeout".
	Callback string
	Value    any
	Stack    []byte
}

// Error names the callback and the panic value.
func (e *CallbackError) Error() string {
	return fmt.Sprintf(`uv: %s %s callback panicked: %v`, e.Source, e.Callback, e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *CallbackError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
