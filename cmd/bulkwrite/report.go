// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/ikmak/mongo-bulkwrite/mongo"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/tidwall/pretty"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// batchStats records the size and latency of every batch of a bulk write.
type batchStats struct {
	mu        sync.Mutex
	batches   int
	bytes     uint64
	latencies stats.Float64Data // milliseconds
}

func (s *batchStats) monitor() *event.BulkMonitor {
	return &event.BulkMonitor{
		BatchStarted: func(_ context.Context, evt *event.BatchStartedEvent) {
			s.mu.Lock()
			s.batches++
			s.bytes += uint64(evt.Bytes)
			s.mu.Unlock()
		},
		BatchFinished: func(_ context.Context, evt *event.BatchFinishedEvent) {
			s.mu.Lock()
			s.latencies = append(s.latencies, float64(evt.Duration.Microseconds())/1000)
			s.mu.Unlock()
		},
	}
}

// percentile returns the p-th percentile batch latency, or 0 before any
// batch finished.
func (s *batchStats) percentile(p float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) == 0 {
		return 0
	}
	v, err := stats.Percentile(s.latencies, p)
	if err != nil {
		return 0
	}
	return v
}

type reportError struct {
	Index   int    `bson:"index"`
	Code    int    `bson:"code"`
	Message string `bson:"errmsg"`
}

type report struct {
	Acknowledged      bool                   `bson:"acknowledged"`
	InsertedCount     int64                  `bson:"insertedCount"`
	MatchedCount      int64                  `bson:"matchedCount"`
	ModifiedCount     int64                  `bson:"modifiedCount"`
	DeletedCount      int64                  `bson:"deletedCount"`
	UpsertedCount     int64                  `bson:"upsertedCount"`
	UpsertedIDs       map[string]interface{} `bson:"upsertedIds,omitempty"`
	WriteErrors       []reportError          `bson:"writeErrors,omitempty"`
	WriteConcernError string                 `bson:"writeConcernError,omitempty"`
	Unprocessed       int                    `bson:"unprocessed,omitempty"`
}

// newReport describes the outcome of a bulk write. Errors other than write
// failures and unacknowledged writes are returned as is.
func newReport(res *mongo.BulkWriteResult, err error) (*report, error) {
	var exc mongo.BulkWriteException
	if err != nil && err != mongo.ErrUnacknowledgedWrite && !errors.As(err, &exc) {
		return nil, err
	}

	rep := &report{}
	if res != nil {
		rep.Acknowledged = res.Acknowledged
		rep.InsertedCount = res.InsertedCount
		rep.MatchedCount = res.MatchedCount
		rep.ModifiedCount = res.ModifiedCount
		rep.DeletedCount = res.DeletedCount
		rep.UpsertedCount = res.UpsertedCount
		if len(res.UpsertedIDs) > 0 {
			rep.UpsertedIDs = make(map[string]interface{}, len(res.UpsertedIDs))
			for idx, id := range res.UpsertedIDs {
				rep.UpsertedIDs[strconv.FormatInt(idx, 10)] = id
			}
		}
	}
	for _, we := range exc.WriteErrors {
		rep.WriteErrors = append(rep.WriteErrors, reportError{Index: we.Index, Code: we.Code, Message: we.Message})
	}
	if exc.WriteConcernError != nil {
		rep.WriteConcernError = exc.WriteConcernError.Error()
	}
	rep.Unprocessed = len(exc.UnprocessedModels)
	return rep, nil
}

// write prints the report as indented relaxed extended JSON followed by a
// summary line of the batches.
func (rep *report) write(w io.Writer, s *batchStats, color bool) error {
	b, err := bson.MarshalExtJSON(rep, false, false)
	if err != nil {
		return errors.Wrap(err, "cannot encode report")
	}
	b = pretty.Pretty(b)
	if color {
		b = pretty.Color(b, nil)
	}
	if _, err := w.Write(b); err != nil {
		return err
	}

	s.mu.Lock()
	batches, sent := s.batches, s.bytes
	s.mu.Unlock()
	_, err = fmt.Fprintf(w, "%d batches, %s sent, p50 %.2fms, p95 %.2fms\n",
		batches, humanize.Bytes(sent), s.percentile(50), s.percentile(95))
	return err
}
