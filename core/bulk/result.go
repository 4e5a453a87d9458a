// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// Upsert is the _id of a document inserted by an update with upsert set.
// Index is the position of the update in the caller's request list.
type Upsert struct {
	Index int
	ID    bsoncore.Value
}

// OperationResult is the outcome of a bulk write. The counts and upserts of
// an unacknowledged result are unknown and their accessors return
// ErrUnacknowledgedResult.
type OperationResult struct {
	acknowledged  bool
	requestCount  int
	processed     []WriteRequest
	matchedCount  int64
	deletedCount  int64
	insertedCount int64
	modifiedCount *int64
	upserts       []Upsert
}

// NewAcknowledgedResult returns the result of acknowledged writes. A nil
// modifiedCount means the server did not report it.
func NewAcknowledgedResult(
	requestCount int,
	matchedCount, deletedCount, insertedCount int64,
	modifiedCount *int64,
	upserts []Upsert,
	processed []WriteRequest,
) *OperationResult {
	return &OperationResult{
		acknowledged:  true,
		requestCount:  requestCount,
		processed:     processed,
		matchedCount:  matchedCount,
		deletedCount:  deletedCount,
		insertedCount: insertedCount,
		modifiedCount: modifiedCount,
		upserts:       upserts,
	}
}

// NewUnacknowledgedResult returns the result of unacknowledged writes.
func NewUnacknowledgedResult(requestCount int, processed []WriteRequest) *OperationResult {
	return &OperationResult{requestCount: requestCount, processed: processed}
}

// Acknowledged reports whether the server acknowledged the writes.
func (r *OperationResult) Acknowledged() bool { return r.acknowledged }

// RequestCount is the number of requests in the bulk write.
func (r *OperationResult) RequestCount() int { return r.requestCount }

// ProcessedRequests returns the requests that were sent to the server.
func (r *OperationResult) ProcessedRequests() []WriteRequest { return r.processed }

// MatchedCount returns the number of documents matched by updates.
func (r *OperationResult) MatchedCount() (int64, error) {
	if !r.acknowledged {
		return 0, ErrUnacknowledgedResult
	}
	return r.matchedCount, nil
}

// DeletedCount returns the number of documents deleted.
func (r *OperationResult) DeletedCount() (int64, error) {
	if !r.acknowledged {
		return 0, ErrUnacknowledgedResult
	}
	return r.deletedCount, nil
}

// InsertedCount returns the number of documents inserted.
func (r *OperationResult) InsertedCount() (int64, error) {
	if !r.acknowledged {
		return 0, ErrUnacknowledgedResult
	}
	return r.insertedCount, nil
}

// IsModifiedCountAvailable reports whether ModifiedCount can be called.
func (r *OperationResult) IsModifiedCountAvailable() (bool, error) {
	if !r.acknowledged {
		return false, ErrUnacknowledgedResult
	}
	return r.modifiedCount != nil, nil
}

// ModifiedCount returns the number of documents modified by updates. Servers
// that do not report it make this return ErrModifiedCountUnavailable.
func (r *OperationResult) ModifiedCount() (int64, error) {
	if !r.acknowledged {
		return 0, ErrUnacknowledgedResult
	}
	if r.modifiedCount == nil {
		return 0, ErrModifiedCountUnavailable
	}
	return *r.modifiedCount, nil
}

// Upserts returns the upserted ids sorted by request index.
func (r *OperationResult) Upserts() ([]Upsert, error) {
	if !r.acknowledged {
		return nil, ErrUnacknowledgedResult
	}
	return r.upserts, nil
}
