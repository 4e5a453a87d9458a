// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"

	"github.com/ikmak/mongo-bulkwrite/core"
	"github.com/ikmak/mongo-bulkwrite/core/bulk"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/ikmak/mongo-bulkwrite/mongo/options"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Collection is a handle to a MongoDB collection. It is safe for concurrent use by multiple goroutines.
type Collection struct {
	client       *Client
	db           *Database
	ns           core.Namespace
	writeConcern *writeconcern.WriteConcern
}

// Name returns the name of the collection.
func (coll *Collection) Name() string { return coll.ns.Collection }

// Database returns the Database that was used to create the Collection.
func (coll *Collection) Database() *Database { return coll.db }

func (coll *Collection) log() logrus.FieldLogger {
	return coll.client.logger.WithField("ns", coll.ns.FullName())
}

// BulkWrite performs a bulk write operation. The models are grouped into
// runs of one operation type and sent in as few commands as the server's
// limits allow. An ordered bulk write stops at the first failing model.
//
// When some writes fail, the returned error is a BulkWriteException and the
// result holds the outcome of the writes that were processed. When the write
// concern is unacknowledged, the error is ErrUnacknowledgedWrite.
func (coll *Collection) BulkWrite(ctx context.Context, models []WriteModel,
	opts ...options.Lister[options.BulkWriteOptions]) (*BulkWriteResult, error) {

	if len(models) == 0 {
		return nil, ErrEmptySlice
	}
	if ctx == nil {
		ctx = context.Background()
	}

	bwo, err := options.Merge(opts...)
	if err != nil {
		return nil, err
	}

	reqs := make([]bulk.WriteRequest, len(models))
	for i, model := range models {
		if model == nil {
			return nil, ErrNilDocument
		}
		if reqs[i], err = model.writeRequest(); err != nil {
			return nil, errors.Wrapf(err, "invalid write model at index %d", i)
		}
	}

	binding, err := coll.client.binding()
	if err != nil {
		return nil, err
	}

	op := bulk.NewMixedWriteOperation(coll.ns, reqs)
	if bwo.Ordered != nil {
		op.Ordered = *bwo.Ordered
	}
	op.BypassDocumentValidation = bwo.BypassDocumentValidation
	if bwo.MaxBatchCount != nil {
		op.MaxBatchCount = *bwo.MaxBatchCount
	}
	if bwo.MaxBatchLength != nil {
		op.MaxBatchLength = *bwo.MaxBatchLength
	}
	op.WriteConcern = coll.writeConcern
	op.Logger = coll.log()
	op.Monitor = coll.client.bulkMonitor

	res, err := op.Execute(ctx, binding)
	result, cerr := newBulkWriteResult(res)
	if cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return result, bulkWriteException(err, models, reqs)
	}
	if !result.Acknowledged {
		return result, ErrUnacknowledgedWrite
	}
	return result, nil
}

// executeUnmixed runs reqs, all of type rt, as one ordered operation.
func (coll *Collection) executeUnmixed(
	ctx context.Context,
	rt bulk.RequestType,
	reqs []bulk.WriteRequest,
	ordered bool,
	bypass *bool,
	singleBatch bool,
) (*bulk.OperationResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	kind, err := bulk.KindFor(rt)
	if err != nil {
		return nil, err
	}
	binding, err := coll.client.binding()
	if err != nil {
		return nil, err
	}

	op := bulk.NewUnmixedWriteOperation(coll.ns, kind, reqs)
	op.Ordered = ordered
	op.BypassDocumentValidation = bypass
	op.SingleBatch = singleBatch
	op.WriteConcern = coll.writeConcern
	op.Logger = coll.log()
	op.Monitor = coll.client.bulkMonitor

	ch, err := binding.AcquireChannel(ctx, coll.ns, true)
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire channel")
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil {
			coll.log().WithError(cerr).Warn("cannot release channel")
		}
	}()
	return op.Execute(ctx, ch)
}

// InsertOne executes an insert command to insert a single document into the collection. A document without an _id
// is given a new ObjectID, which is reported in the result.
func (coll *Collection) InsertOne(ctx context.Context, document interface{},
	opts ...options.Lister[options.InsertOneOptions]) (*InsertOneResult, error) {

	ioo, err := options.Merge(opts...)
	if err != nil {
		return nil, err
	}
	doc, err := transformDocument(document)
	if err != nil {
		return nil, err
	}
	doc, id, err := ensureID(doc)
	if err != nil {
		return nil, err
	}

	reqs := []bulk.WriteRequest{&bulk.InsertRequest{Document: doc}}
	res, err := coll.executeUnmixed(ctx, bulk.InsertRequestType, reqs, true, ioo.BypassDocumentValidation, true)
	if res == nil {
		return nil, err
	}
	result := &InsertOneResult{InsertedID: id, Acknowledged: res.Acknowledged()}
	if err != nil {
		return result, writeException(err)
	}
	if !result.Acknowledged {
		return result, ErrUnacknowledgedWrite
	}
	return result, nil
}

// InsertMany executes an insert command to insert multiple documents into the collection. If write errors occur
// during the operation, a BulkWriteException is returned.
func (coll *Collection) InsertMany(ctx context.Context, documents []interface{},
	opts ...options.Lister[options.InsertManyOptions]) (*InsertManyResult, error) {

	if len(documents) == 0 {
		return nil, ErrEmptySlice
	}
	imo, err := options.Merge(opts...)
	if err != nil {
		return nil, err
	}

	models := make([]WriteModel, len(documents))
	reqs := make([]bulk.WriteRequest, len(documents))
	ids := make([]interface{}, len(documents))
	for i, document := range documents {
		doc, err := transformDocument(document)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid document at index %d", i)
		}
		if doc, ids[i], err = ensureID(doc); err != nil {
			return nil, err
		}
		reqs[i] = &bulk.InsertRequest{Document: doc}
		models[i] = NewInsertOneModel().SetDocument(doc)
	}

	ordered := options.DefaultOrdered
	if imo.Ordered != nil {
		ordered = *imo.Ordered
	}
	res, err := coll.executeUnmixed(ctx, bulk.InsertRequestType, reqs, ordered, imo.BypassDocumentValidation, false)
	if res == nil {
		return nil, err
	}
	result := &InsertManyResult{InsertedIDs: ids, Acknowledged: res.Acknowledged()}
	if err != nil {
		return result, bulkWriteException(err, models, reqs)
	}
	if !result.Acknowledged {
		return result, ErrUnacknowledgedWrite
	}
	return result, nil
}

// UpdateOne executes an update command to update at most one document in the collection. The update must contain
// only update operators.
func (coll *Collection) UpdateOne(ctx context.Context, filter interface{}, update interface{},
	opts ...options.Lister[options.UpdateOneOptions]) (*UpdateResult, error) {

	uo, err := options.Merge(opts...)
	if err != nil {
		return nil, err
	}
	upd, err := transformUpdate(update)
	if err != nil {
		return nil, err
	}
	req, err := updateRequest(filter, upd, uo.Collation, uo.ArrayFilters, uo.Hint, uo.Upsert, false)
	if err != nil {
		return nil, err
	}

	res, err := coll.executeUnmixed(ctx, bulk.UpdateRequestType, []bulk.WriteRequest{req}, true, uo.BypassDocumentValidation, true)
	if res == nil {
		return nil, err
	}
	result := &UpdateResult{Acknowledged: res.Acknowledged()}
	if result.Acknowledged {
		result.MatchedCount, _ = res.MatchedCount()
		if ok, _ := res.IsModifiedCountAvailable(); ok {
			result.ModifiedCount, _ = res.ModifiedCount()
		}
		upserts, _ := res.Upserts()
		if len(upserts) > 0 {
			result.UpsertedCount = 1
			id, cerr := convertValue(upserts[0].ID)
			if cerr != nil {
				return nil, cerr
			}
			result.UpsertedID = id
		}
	}
	if err != nil {
		return result, writeException(err)
	}
	if !result.Acknowledged {
		return result, ErrUnacknowledgedWrite
	}
	return result, nil
}

// DeleteOne executes a delete command to delete at most one document from the collection.
func (coll *Collection) DeleteOne(ctx context.Context, filter interface{},
	opts ...options.Lister[options.DeleteOneOptions]) (*DeleteResult, error) {

	do, err := options.Merge(opts...)
	if err != nil {
		return nil, err
	}
	req, err := deleteRequest(filter, do.Collation, do.Hint, 1)
	if err != nil {
		return nil, err
	}

	res, err := coll.executeUnmixed(ctx, bulk.DeleteRequestType, []bulk.WriteRequest{req}, true, nil, true)
	if res == nil {
		return nil, err
	}
	result := &DeleteResult{Acknowledged: res.Acknowledged()}
	if result.Acknowledged {
		result.DeletedCount, _ = res.DeletedCount()
	}
	if err != nil {
		return result, writeException(err)
	}
	if !result.Acknowledged {
		return result, ErrUnacknowledgedWrite
	}
	return result, nil
}
