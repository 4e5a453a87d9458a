// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkCollector(t *testing.T) {
	ctx := context.Background()
	c := NewBulkCollector()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	m := c.Monitor()

	for i := 0; i < 2; i++ {
		m.Started(ctx, &event.BatchStartedEvent{Namespace: "db.c", CommandName: "insert", RequestCount: 3, Bytes: 100})
	}
	m.Started(ctx, &event.BatchStartedEvent{Namespace: "db.c", CommandName: "update", RequestCount: 1, Bytes: 40, Emulated: true})

	assert.Equal(t, float64(2), testutil.ToFloat64(c.inflight.WithLabelValues("db.c", "insert")))

	m.Finished(ctx, &event.BatchFinishedEvent{Namespace: "db.c", CommandName: "insert", Duration: time.Millisecond, WriteErrors: 2})
	m.Finished(ctx, &event.BatchFinishedEvent{Namespace: "db.c", CommandName: "insert", Duration: time.Millisecond})
	m.Finished(ctx, &event.BatchFinishedEvent{Namespace: "db.c", CommandName: "update", Failure: errors.New("network")})

	assert.Equal(t, float64(2), testutil.ToFloat64(c.batches.WithLabelValues("db.c", "insert", "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.batches.WithLabelValues("db.c", "update", "true")))
	assert.Equal(t, float64(6), testutil.ToFloat64(c.requests.WithLabelValues("db.c", "insert")))
	assert.Equal(t, float64(200), testutil.ToFloat64(c.bytes.WithLabelValues("db.c", "insert")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.writeErrors.WithLabelValues("db.c", "insert")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.failures.WithLabelValues("db.c", "update")))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.inflight.WithLabelValues("db.c", "insert")))

	expected := `
# HELP mongo_bulkwrite_write_errors_total Total number of write errors reported by the server.
# TYPE mongo_bulkwrite_write_errors_total counter
mongo_bulkwrite_write_errors_total{command="insert",namespace="db.c"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "mongo_bulkwrite_write_errors_total"))

	count, err := testutil.GatherAndCount(reg, "mongo_bulkwrite_batch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCombinedMonitor(t *testing.T) {
	c := NewBulkCollector()
	var seen int
	other := &event.BulkMonitor{BatchStarted: func(context.Context, *event.BatchStartedEvent) { seen++ }}

	m := event.Combine(c.Monitor(), other)
	m.Started(context.Background(), &event.BatchStartedEvent{Namespace: "db.c", CommandName: "delete", RequestCount: 4})

	assert.Equal(t, 1, seen)
	assert.Equal(t, float64(4), testutil.ToFloat64(c.requests.WithLabelValues("db.c", "delete")))
}
