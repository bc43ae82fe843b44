// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// ErrorHandler receives every panic recovered from a user callback. It runs
// on the loop goroutine.
type ErrorHandler func(err *CallbackError)

// loopOptions is the resolved configuration of a Loop.
type loopOptions struct {
	logger              *logiface.Logger[logiface.Event]
	errorHandler        ErrorHandler
	errorLimiter        *catrate.Limiter
	stopOnCallbackError bool
	meterProvider       metric.MeterProvider
}

// LoopOption configures New and Default.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

type loopOptionFunc func(*loopOptions) error

func (f loopOptionFunc) applyLoop(opts *loopOptions) error { return f(opts) }

// WithLogger sets the structured logger used for lifecycle events and for
// reporting callback errors. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return loopOptionFunc(func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	})
}

// WithErrorHandler replaces the default callback error reporting, which logs
// each error at error level. The handler is never rate limited.
func WithErrorHandler(handler ErrorHandler) LoopOption {
	return loopOptionFunc(func(opts *loopOptions) error {
		opts.errorHandler = handler
		return nil
	})
}

// WithStopOnCallbackError makes the loop stop, as if Stop had been called,
// after any user callback panics. Disabled by default.
func WithStopOnCallbackError(enabled bool) LoopOption {
	return loopOptionFunc(func(opts *loopOptions) error {
		opts.stopOnCallbackError = enabled
		return nil
	})
}

// WithCallbackErrorRateLimit bounds how often the default error handler logs,
// per callback, using sliding windows of the given durations. Suppressed
// errors are still recorded and are counted in the next logged event. Empty
// rates disable limiting.
func WithCallbackErrorRateLimit(rates map[time.Duration]int) LoopOption {
	return loopOptionFunc(func(opts *loopOptions) (err error) {
		if len(rates) == 0 {
			opts.errorLimiter = nil
			return nil
		}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf(`uv: invalid callback error rate limit: %v`, r)
			}
		}()
		opts.errorLimiter = catrate.NewLimiter(rates)
		return nil
	})
}

// WithMeterProvider sets where loop metrics are recorded. The default is the
// global provider at the time the loop is created. A nil provider disables
// metrics.
func WithMeterProvider(provider metric.MeterProvider) LoopOption {
	return loopOptionFunc(func(opts *loopOptions) error {
		opts.meterProvider = provider
		return nil
	})
}

var defaultCallbackErrorRates = map[time.Duration]int{
	time.Second: 10,
	time.Minute: 100,
}

// resolveLoopOptions applies opts over the defaults, skipping nil entries.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		logger:        defaultLogger(),
		errorLimiter:  catrate.NewLimiter(defaultCallbackErrorRates),
		meterProvider: otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
