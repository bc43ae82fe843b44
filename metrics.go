// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = `github.com/joeycumines/go-uv`

// loopMetrics records per-loop instruments. Every loop created with the same
// provider shares the same instruments.
type loopMetrics struct {
	callbackErrors metric.Int64Counter
	deferred       metric.Int64Counter
	shutdowns      metric.Int64Counter
	runLatency     metric.Float64Histogram
}

func newLoopMetrics(provider metric.MeterProvider) (*loopMetrics, error) {
	meter := provider.Meter(meterName)

	callbackErrors, err := meter.Int64Counter(`uv.callback.errors`,
		metric.WithDescription(`Number of panics recovered from user callbacks`),
	)
	if err != nil {
		return nil, err
	}

	deferred, err := meter.Int64Counter(`uv.deferred.drained`,
		metric.WithDescription(`Number of unreachable handles closed, and requests canceled, at the loop safe point`),
	)
	if err != nil {
		return nil, err
	}

	shutdowns, err := meter.Int64Counter(`uv.loop.shutdowns`,
		metric.WithDescription(`Number of loops closed`),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram(`uv.loop.run.duration_ms`,
		metric.WithDescription(`Time spent in Loop.Run`),
		metric.WithUnit(`ms`),
	)
	if err != nil {
		return nil, err
	}

	return &loopMetrics{
		callbackErrors: callbackErrors,
		deferred:       deferred,
		shutdowns:      shutdowns,
		runLatency:     runLatency,
	}, nil
}

var noopLoopMetrics, _ = newLoopMetrics(noop.NewMeterProvider())

func (m *loopMetrics) callbackError(err *CallbackError) {
	m.callbackErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(`source`, err.Source),
		attribute.String(`callback`, err.Callback),
	))
}

func (m *loopMetrics) drained(handles, requests int) {
	ctx := context.Background()
	if handles > 0 {
		m.deferred.Add(ctx, int64(handles), metric.WithAttributes(attribute.String(`kind`, `handle`)))
	}
	if requests > 0 {
		m.deferred.Add(ctx, int64(requests), metric.WithAttributes(attribute.String(`kind`, `request`)))
	}
}

func (m *loopMetrics) shutdown(forced bool) {
	m.shutdowns.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool(`forced`, forced)))
}

func (m *loopMetrics) run(mode RunMode, d time.Duration) {
	m.runLatency.Record(context.Background(), float64(d)/float64(time.Millisecond),
		metric.WithAttributes(attribute.String(`mode`, runModeName(mode))))
}

func runModeName(mode RunMode) string {
	switch mode {
	case RunDefault:
		return `default`
	case RunOnce:
		return `once`
	case RunNoWait:
		return `nowait`
	}
	return `unknown`
}
