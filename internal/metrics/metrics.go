// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics counts what the message pipeline does and exposes the
// counters for Prometheus scraping.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons.
const (
	ReasonUnknownConversation = "unknown_conversation"
	ReasonMalformed           = "malformed"
	ReasonPanic               = "panic"
	ReasonUnhandled           = "unhandled"
)

// Metrics holds the pipeline counters on a private registry.
type Metrics struct {
	registry         *prometheus.Registry
	events           *prometheus.CounterVec
	dropped          *prometheus.CounterVec
	evictions        prometheus.Counter
	memberRequests   prometheus.Counter
	outboundFailures *prometheus.CounterVec
}

// New creates and registers the counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weecord_events_total",
			Help: "Inbound events handled by the dispatcher.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weecord_events_dropped_total",
			Help: "Inbound events dropped without effect.",
		}, []string{"kind", "reason"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weecord_store_evictions_total",
			Help: "Items evicted from conversation stores at capacity.",
		}),
		memberRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weecord_member_requests_total",
			Help: "Guild member requests issued for unresolved users.",
		}),
		outboundFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weecord_outbound_failures_total",
			Help: "Outbound network operations that failed.",
		}, []string{"op"}),
	}
	m.registry.MustRegister(m.events, m.dropped, m.evictions, m.memberRequests, m.outboundFailures)
	return m
}

func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) Dropped(kind, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) Evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.Add(float64(n))
}

func (m *Metrics) MemberRequest() {
	if m == nil {
		return
	}
	m.memberRequests.Inc()
}

func (m *Metrics) OutboundFailure(op string) {
	if m == nil {
		return
	}
	m.outboundFailures.WithLabelValues(op).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// =============================================================================
// HTTP EXPOSITION
// =============================================================================

// Handler serves the counters in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
