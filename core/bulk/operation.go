// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"context"
	"math"
	"time"

	"github.com/ikmak/mongo-bulkwrite/core"
	"github.com/ikmak/mongo-bulkwrite/core/description"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

var okResponse = bsoncore.NewDocumentBuilder().AppendInt32("ok", 1).Build()

// UnmixedWriteOperation writes requests of a single kind. Servers that
// support write commands receive them in batches; older servers receive one
// legacy opcode per request.
type UnmixedWriteOperation struct {
	Namespace core.Namespace
	Kind      *RequestKind
	Requests  []WriteRequest
	Ordered   bool

	// MaxBatchCount, MaxBatchLength and MaxDocumentSize lower the server's
	// limits when positive.
	MaxBatchCount   int
	MaxBatchLength  int
	MaxDocumentSize int

	// WriteConcern is the server default when nil.
	WriteConcern             *writeconcern.WriteConcern
	BypassDocumentValidation *bool

	// SingleBatch requires every request to be sent in one write command.
	SingleBatch bool

	Logger  logrus.FieldLogger
	Monitor *event.BulkMonitor
}

// NewUnmixedWriteOperation returns an ordered operation writing requests,
// which must all be of kind's type.
func NewUnmixedWriteOperation(ns core.Namespace, kind *RequestKind, requests []WriteRequest) *UnmixedWriteOperation {
	return &UnmixedWriteOperation{
		Namespace: ns,
		Kind:      kind,
		Requests:  requests,
		Ordered:   true,
	}
}

// Execute runs the operation on ch. On write errors it returns the partial
// result and a *BulkWriteError that also holds it.
func (op *UnmixedWriteOperation) Execute(ctx context.Context, ch Channel) (*OperationResult, error) {
	if op.Kind == nil {
		return nil, errors.New("unmixed write operation has no request kind")
	}
	if err := op.Namespace.Validate(); err != nil {
		return nil, err
	}
	if err := op.WriteConcern.Validate(); err != nil {
		return nil, err
	}

	desc := ch.Description()
	caps := desc.Capabilities()
	if op.BypassDocumentValidation != nil && *op.BypassDocumentValidation && op.Kind.SupportsBypass && !caps.BypassDocumentValidation {
		return nil, ErrBypassDocumentValidationNotSupported
	}

	l := limits{caps: caps, maxDocumentSize: minPositive(op.MaxDocumentSize, desc.MaxDocumentSize)}
	if caps.WriteCommands {
		return op.executeCommands(ctx, ch, desc, l)
	}
	return op.emulate(ctx, ch, l)
}

// effectiveWriteConcern returns the write concern for a batch. Ordered
// unacknowledged operations use w:1 for every batch but the last.
func (op *UnmixedWriteOperation) effectiveWriteConcern(isLast bool) *writeconcern.WriteConcern {
	return effectiveWriteConcern(op.WriteConcern, op.Ordered, isLast)
}

func effectiveWriteConcern(wc *writeconcern.WriteConcern, ordered, isLast bool) *writeconcern.WriteConcern {
	if ordered && !isLast && !wc.Acknowledged() {
		return writeconcern.W1()
	}
	return wc
}

func (op *UnmixedWriteOperation) log() logrus.FieldLogger {
	return loggerOrDiscard(op.Logger).WithFields(logrus.Fields{
		"ns":      op.Namespace.FullName(),
		"kind":    op.Kind.CommandName,
		"ordered": op.Ordered,
	})
}

func (op *UnmixedWriteOperation) executeCommands(ctx context.Context, ch Channel, desc description.Server, l limits) (*OperationResult, error) {
	maxCount := minPositive(op.MaxBatchCount, desc.MaxBatchCount)
	maxLength := minPositive(op.MaxBatchLength, desc.MaxDocumentSize)
	if maxCount < 1 {
		return nil, ErrInvalidBatchCount
	}
	serialize := op.Kind.serializer(l)
	source := newBatchSource(op.Requests, !op.SingleBatch)
	log := op.log()

	var results []*batchResult
	var remaining []WriteRequest
	var hasWriteErrors bool
	for n := 0; source.hasMore(); n++ {
		if hasWriteErrors && op.Ordered {
			remaining = source.remainingRequests()
			log.WithField("unprocessed", len(remaining)).Warn("ordered bulk write stopped after write errors")
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		enc := startArray(nil, op.Kind.ElementName)
		b, err := source.nextBatch(enc, serialize, maxCount, maxLength)
		if err != nil {
			return nil, err
		}
		arr, err := enc.finish()
		if err != nil {
			return nil, errors.Wrap(err, "cannot finish request array")
		}

		wc := op.effectiveWriteConcern(b.last)
		if wc != op.WriteConcern {
			log.WithField("batch", n).Debug("using w:1 for intermediate batch of unacknowledged ordered write")
		}
		cmd, err := op.command(wc, l.caps, arr)
		if err != nil {
			return nil, err
		}

		handling := ResponseReturn
		if !wc.Acknowledged() && b.last {
			handling = ResponseIgnore
		}

		log.WithFields(logrus.Fields{"batch": n, "count": len(b.requests), "bytes": b.length}).Debug("sending write command")
		started := op.batchStarted(ctx, ch, len(b.requests), b.length, false)
		response, err := ch.Command(ctx, op.Namespace.DB, cmd, handling)
		if err != nil {
			op.batchFinished(ctx, ch, started, len(b.requests), b.length, 0, err)
			return nil, err
		}
		if response == nil {
			response = okResponse
		}

		br, err := newBatchResultFromCommandResponse(op.Ordered, op.Kind.Type, b.requests, response, NewRangeIndexMap(0, b.offset, len(b.requests)))
		if err != nil {
			op.batchFinished(ctx, ch, started, len(b.requests), b.length, 0, err)
			return nil, err
		}
		op.batchFinished(ctx, ch, started, len(b.requests), b.length, len(br.writeErrors), nil)

		results = append(results, br)
		hasWriteErrors = hasWriteErrors || br.hasWriteErrors()
	}

	combiner := batchResultCombiner{results: results, acknowledged: op.WriteConcern.Acknowledged()}
	return combiner.resultOrError(ch.ConnectionID(), remaining)
}

// command builds the write command for one batch. The request array must
// be the last field.
func (op *UnmixedWriteOperation) command(wc *writeconcern.WriteConcern, caps description.Capabilities, arr []byte) (bsoncore.Document, error) {
	idx, dst := bsoncore.AppendDocumentStart(nil)
	dst = bsoncore.AppendStringElement(dst, op.Kind.CommandName, op.Namespace.Collection)
	dst, err := wc.AppendElement(dst)
	if err != nil {
		return nil, err
	}
	dst = bsoncore.AppendBooleanElement(dst, "ordered", op.Ordered)
	if op.Kind.SupportsBypass && op.BypassDocumentValidation != nil && caps.BypassDocumentValidation {
		dst = bsoncore.AppendBooleanElement(dst, "bypassDocumentValidation", *op.BypassDocumentValidation)
	}
	dst = append(dst, arr...)
	return bsoncore.AppendDocumentEnd(dst, idx)
}

func (op *UnmixedWriteOperation) batchStarted(ctx context.Context, ch Channel, count, length int, emulated bool) time.Time {
	op.Monitor.Started(ctx, &event.BatchStartedEvent{
		Namespace:    op.Namespace.FullName(),
		CommandName:  op.Kind.CommandName,
		ConnectionID: ch.ConnectionID(),
		RequestCount: count,
		Bytes:        length,
		Emulated:     emulated,
	})
	return time.Now()
}

func (op *UnmixedWriteOperation) batchFinished(ctx context.Context, ch Channel, started time.Time, count, length, writeErrors int, failure error) {
	op.Monitor.Finished(ctx, &event.BatchFinishedEvent{
		Namespace:    op.Namespace.FullName(),
		CommandName:  op.Kind.CommandName,
		ConnectionID: ch.ConnectionID(),
		RequestCount: count,
		Bytes:        length,
		Duration:     time.Since(started),
		WriteErrors:  writeErrors,
		Failure:      failure,
	})
}

// minPositive returns the smaller of configured and server, ignoring
// configured when it is not positive.
func minPositive(configured, server int) int {
	max := math.MaxInt32
	if configured > 0 {
		max = configured
	}
	if server > 0 && server < max {
		max = server
	}
	return max
}
