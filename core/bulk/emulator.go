// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"context"

	"github.com/ikmak/mongo-bulkwrite/core/result"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// emulate sends each request as its own legacy opcode. Each request is a
// batch of one, so errors are indexed exactly as on the command path.
func (op *UnmixedWriteOperation) emulate(ctx context.Context, ch Channel, l limits) (*OperationResult, error) {
	log := op.log().WithField("emulated", true)

	var results []*batchResult
	var remaining []WriteRequest
	for i, req := range op.Requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.RequestType() != op.Kind.Type {
			return nil, errors.Errorf("%s request in %s operation", req.RequestType(), op.Kind.Type)
		}
		if err := op.Kind.check(l, req); err != nil {
			return nil, err
		}

		isLast := i == len(op.Requests)-1
		wc := op.effectiveWriteConcern(isLast)
		log.WithFields(logrus.Fields{"index": i, "w": wc.String()}).Debug("sending legacy write")

		started := op.batchStarted(ctx, ch, 1, 0, true)
		wcr, err := op.Kind.emulate(ctx, ch, op.Namespace, req, wc, op.Ordered)
		var wcErr *result.WriteConcernError
		if err != nil {
			if !errors.As(err, &wcErr) {
				op.batchFinished(ctx, ch, started, 1, 0, 0, err)
				return nil, err
			}
			wcr = wcErr.Result
		}

		br := newBatchResultFromLegacy(req, wcr, wcErr != nil, NewRangeIndexMap(0, i, 1))
		op.batchFinished(ctx, ch, started, 1, 0, len(br.writeErrors), nil)
		results = append(results, br)

		if br.hasWriteErrors() && op.Ordered {
			remaining = op.Requests[i+1:]
			if len(remaining) > 0 {
				log.WithField("unprocessed", len(remaining)).Warn("ordered bulk write stopped after write errors")
			}
			break
		}
	}

	combiner := batchResultCombiner{results: results, acknowledged: op.WriteConcern.Acknowledged()}
	return combiner.resultOrError(ch.ConnectionID(), remaining)
}
