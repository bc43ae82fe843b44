// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package uv is an event loop in the style of libuv: timers, phase hooks,
// async wake-ups, descriptor polling, signals, filesystem watchers, child
// processes, and thread-pool backed filesystem and DNS requests.
//
// # Lifetime
//
// A Loop and the handles and requests attached to it share one lifetime.
// Every handle refers to its Loop, and a Loop holds on to the handles that
// are started, and to the requests that are in flight, so a started handle
// needs no other reference to keep working. Handles that are stopped, and
// handles that are never held by their loop (Async), are released when they
// become unreachable.
//
// Releasing is never done from the garbage collector. An unreachable handle
// is only marked, and the loop closes it at its next iteration, before it
// polls for I/O. An unreachable Loop is shut down on a background goroutine:
// every handle is closed, every request canceled, and the loop drained until
// the reactor can be released.
//
// Explicit Close on a Loop is stricter: it fails with an error matching
// ErrLoopBusy while anything attached is neither closing nor finished.
//
// # Callbacks
//
// All callbacks run on the goroutine calling Loop.Run. A panicking callback
// never unwinds the loop. The panic is recovered as a *CallbackError,
// recorded in Loop.LastError, and passed to the ErrorHandler, which by
// default logs it. See WithErrorHandler and WithStopOnCallbackError.
//
// # Concurrency
//
// Only Loop.Submit, Loop.Wakeup, Loop.Closed, Loop.CallbackErrors, and
// Async.Send may be called from other goroutines. Everything else must happen
// on the goroutine running the loop, or while the loop is not running.
package uv
