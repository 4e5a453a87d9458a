// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package metrics exports bulk write batch events as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "mongo_bulkwrite"

// BulkCollector is a prometheus.Collector fed by the events of a
// BulkMonitor. Metrics are labeled by namespace and command name.
type BulkCollector struct {
	batches     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	requests    *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	writeErrors *prometheus.CounterVec
	inflight    *prometheus.GaugeVec
	duration    *prometheus.HistogramVec
}

var _ prometheus.Collector = (*BulkCollector)(nil)

// NewBulkCollector returns a collector with no recorded batches.
func NewBulkCollector() *BulkCollector {
	labels := []string{"namespace", "command"}
	return &BulkCollector{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "batches_total",
			Help:      "Total number of batches sent.",
		}, append(labels, "emulated")),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "batch_failures_total",
			Help:      "Total number of batches that could not be executed.",
		}, labels),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "requests_total",
			Help:      "Total number of write requests sent in batches.",
		}, labels),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "request_bytes_total",
			Help:      "Total size of the serialized write requests in bytes.",
		}, labels),
		writeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "write_errors_total",
			Help:      "Total number of write errors reported by the server.",
		}, labels),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "batches_in_flight",
			Help:      "Number of batches sent and not yet finished.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "batch_duration_seconds",
			Help:      "Batch round trip time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, labels),
	}
}

// Monitor returns a BulkMonitor that records into c.
func (c *BulkCollector) Monitor() *event.BulkMonitor {
	return &event.BulkMonitor{
		BatchStarted:  c.batchStarted,
		BatchFinished: c.batchFinished,
	}
}

func (c *BulkCollector) batchStarted(_ context.Context, evt *event.BatchStartedEvent) {
	emulated := "false"
	if evt.Emulated {
		emulated = "true"
	}
	c.batches.WithLabelValues(evt.Namespace, evt.CommandName, emulated).Inc()
	c.requests.WithLabelValues(evt.Namespace, evt.CommandName).Add(float64(evt.RequestCount))
	c.bytes.WithLabelValues(evt.Namespace, evt.CommandName).Add(float64(evt.Bytes))
	c.inflight.WithLabelValues(evt.Namespace, evt.CommandName).Inc()
}

func (c *BulkCollector) batchFinished(_ context.Context, evt *event.BatchFinishedEvent) {
	c.inflight.WithLabelValues(evt.Namespace, evt.CommandName).Dec()
	c.duration.WithLabelValues(evt.Namespace, evt.CommandName).Observe(evt.Duration.Seconds())
	if evt.WriteErrors > 0 {
		c.writeErrors.WithLabelValues(evt.Namespace, evt.CommandName).Add(float64(evt.WriteErrors))
	}
	if evt.Failure != nil {
		c.failures.WithLabelValues(evt.Namespace, evt.CommandName).Inc()
	}
}

func (c *BulkCollector) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.batches, c.failures, c.requests, c.bytes, c.writeErrors, c.inflight, c.duration}
}

// Describe implements the prometheus.Collector interface.
func (c *BulkCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors() {
		m.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (c *BulkCollector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors() {
		m.Collect(ch)
	}
}
