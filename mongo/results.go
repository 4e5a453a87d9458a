// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"github.com/ikmak/mongo-bulkwrite/core/bulk"
)

// BulkWriteResult is the result type returned by a BulkWrite operation.
type BulkWriteResult struct {
	// The number of documents inserted.
	InsertedCount int64

	// The number of documents matched by filters in update and replace operations.
	MatchedCount int64

	// The number of documents modified by update and replace operations.
	ModifiedCount int64

	// The number of documents deleted.
	DeletedCount int64

	// The number of documents upserted by update and replace operations.
	UpsertedCount int64

	// A map of operation index to the _id of each upserted document.
	UpsertedIDs map[int64]interface{}

	// Operation performed with an acknowledged write. Values for other fields may
	// not be deterministic if the write operation was unacknowledged.
	Acknowledged bool
}

// newBulkWriteResult converts an engine result. Servers that do not report
// the modified count leave ModifiedCount at 0.
func newBulkWriteResult(res *bulk.OperationResult) (*BulkWriteResult, error) {
	if res == nil {
		return nil, nil
	}
	out := &BulkWriteResult{UpsertedIDs: make(map[int64]interface{})}
	if !res.Acknowledged() {
		return out, nil
	}
	out.Acknowledged = true
	out.InsertedCount, _ = res.InsertedCount()
	out.MatchedCount, _ = res.MatchedCount()
	out.DeletedCount, _ = res.DeletedCount()
	if ok, _ := res.IsModifiedCountAvailable(); ok {
		out.ModifiedCount, _ = res.ModifiedCount()
	}

	upserts, _ := res.Upserts()
	for _, u := range upserts {
		id, err := convertValue(u.ID)
		if err != nil {
			return nil, err
		}
		out.UpsertedIDs[int64(u.Index)] = id
	}
	out.UpsertedCount = int64(len(upserts))
	return out, nil
}

// InsertOneResult is the result type returned by an InsertOne operation.
type InsertOneResult struct {
	// The _id of the inserted document. A value generated by the driver will be of type bson.ObjectID.
	InsertedID interface{}

	// Operation performed with an acknowledged write.
	Acknowledged bool
}

// InsertManyResult is a result type returned by an InsertMany operation.
type InsertManyResult struct {
	// The _id values of the inserted documents. Values generated by the driver will be of type bson.ObjectID.
	InsertedIDs []interface{}

	// Operation performed with an acknowledged write.
	Acknowledged bool
}

// DeleteResult is the result type returned by a DeleteOne operation.
type DeleteResult struct {
	DeletedCount int64 // The number of documents deleted.
	Acknowledged bool  // Operation performed with an acknowledged write.
}

// UpdateResult is the result type returned from an UpdateOne operation.
type UpdateResult struct {
	MatchedCount  int64       // The number of documents matched by the filter.
	ModifiedCount int64       // The number of documents modified by the operation.
	UpsertedCount int64       // The number of documents upserted by the operation.
	UpsertedID    interface{} // The _id field of the upserted document, or nil if no upsert was done.
	Acknowledged  bool        // Operation performed with an acknowledged write.
}
