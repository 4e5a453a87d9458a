// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"context"

	"github.com/ikmak/mongo-bulkwrite/core"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MixedWriteOperation writes any mix of inserts, updates and deletes to one
// collection. Requests are split into runs of one type, and each run is
// written by an UnmixedWriteOperation over the same channel.
type MixedWriteOperation struct {
	Namespace core.Namespace
	Requests  []WriteRequest
	Ordered   bool

	MaxBatchCount   int
	MaxBatchLength  int
	MaxDocumentSize int

	WriteConcern             *writeconcern.WriteConcern
	BypassDocumentValidation *bool

	Logger  logrus.FieldLogger
	Monitor *event.BulkMonitor
}

// NewMixedWriteOperation returns an ordered operation writing requests to ns.
func NewMixedWriteOperation(ns core.Namespace, requests []WriteRequest) *MixedWriteOperation {
	return &MixedWriteOperation{Namespace: ns, Requests: requests, Ordered: true}
}

// Execute acquires a channel from source and runs the operation on it. The
// channel is released before Execute returns. On write errors it returns
// the partial result and a *BulkWriteError that also holds it.
func (op *MixedWriteOperation) Execute(ctx context.Context, source ChannelSource) (*OperationResult, error) {
	if len(op.Requests) == 0 {
		return nil, ErrEmptyBulkWrite
	}
	if err := op.WriteConcern.Validate(); err != nil {
		return nil, err
	}

	ch, err := source.AcquireChannel(ctx, op.Namespace, true)
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire channel")
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil {
			loggerOrDiscard(op.Logger).WithError(cerr).Warn("cannot release channel")
		}
	}()

	return op.ExecuteChannel(ctx, ch)
}

// Outcome is what an asynchronous execution delivers.
type Outcome struct {
	Result *OperationResult
	Err    error
}

// ExecuteAsync runs Execute in a new goroutine. The returned channel
// receives exactly one Outcome and is then closed.
func (op *MixedWriteOperation) ExecuteAsync(ctx context.Context, source ChannelSource) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		res, err := op.Execute(ctx, source)
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

// ExecuteChannel runs the operation on an already acquired channel.
func (op *MixedWriteOperation) ExecuteChannel(ctx context.Context, ch Channel) (*OperationResult, error) {
	desc := ch.Description()
	splitter, err := newRunSplitter(op.Requests, op.Ordered, minPositive(op.MaxBatchCount, desc.MaxBatchCount))
	if err != nil {
		return nil, err
	}
	log := loggerOrDiscard(op.Logger).WithField("ns", op.Namespace.FullName())

	var results []*batchResult
	var remaining []WriteRequest
	var hasWriteErrors bool
	for run, isLast := splitter.next(); run != nil; run, isLast = splitter.next() {
		if hasWriteErrors && op.Ordered {
			remaining = append(append([]WriteRequest(nil), run.Requests...), splitter.drain()...)
			log.WithField("unprocessed", len(remaining)).Warn("ordered bulk write skipped runs after write errors")
			break
		}

		br, err := op.executeRun(ctx, ch, run, isLast)
		if err != nil {
			return nil, err
		}
		results = append(results, br)
		hasWriteErrors = hasWriteErrors || br.hasWriteErrors()
	}

	combiner := batchResultCombiner{results: results, acknowledged: op.WriteConcern.Acknowledged()}
	return combiner.resultOrError(ch.ConnectionID(), remaining)
}

func (op *MixedWriteOperation) executeRun(ctx context.Context, ch Channel, run *Run, isLast bool) (*batchResult, error) {
	kind, err := KindFor(run.RequestType())
	if err != nil {
		return nil, err
	}

	unmixed := &UnmixedWriteOperation{
		Namespace:                op.Namespace,
		Kind:                     kind,
		Requests:                 run.Requests,
		Ordered:                  op.Ordered,
		MaxBatchCount:            op.MaxBatchCount,
		MaxBatchLength:           op.MaxBatchLength,
		MaxDocumentSize:          op.MaxDocumentSize,
		WriteConcern:             effectiveWriteConcern(op.WriteConcern, op.Ordered, isLast),
		BypassDocumentValidation: op.BypassDocumentValidation,
		Logger:                   op.Logger,
		Monitor:                  op.Monitor,
	}

	res, err := unmixed.Execute(ctx, ch)
	var bwErr *BulkWriteError
	if err != nil {
		if !errors.As(err, &bwErr) {
			return nil, err
		}
		res = bwErr.Result
	}
	return newBatchResultFromOperationResult(res, bwErr, run.IndexMap), nil
}
