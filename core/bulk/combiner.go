// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"sort"

	"github.com/pkg/errors"
)

// batchResultCombiner merges batch results into the result of the whole
// operation, translating batch indexes to the caller's indexes.
type batchResultCombiner struct {
	results      []*batchResult
	acknowledged bool
}

// resultOrError returns the combined result, or a *BulkWriteError holding it
// when the writes were acknowledged and any batch failed. remaining are the
// requests that were never attempted.
func (c batchResultCombiner) resultOrError(connID string, remaining []WriteRequest) (*OperationResult, error) {
	res, err := c.result(len(remaining))
	if err != nil {
		return nil, err
	}
	if !c.acknowledged || !c.hasErrors() {
		return res, nil
	}

	wes, err := c.writeErrors()
	if err != nil {
		return nil, err
	}
	return res, &BulkWriteError{
		ConnectionID:        connID,
		Result:              res,
		WriteErrors:         wes,
		WriteConcernError:   c.writeConcernError(),
		UnprocessedRequests: c.unprocessed(remaining),
	}
}

func (c batchResultCombiner) hasErrors() bool {
	for _, br := range c.results {
		if br.hasWriteErrors() || br.hasWriteConcernError() {
			return true
		}
	}
	return false
}

func (c batchResultCombiner) result(remainingCount int) (*OperationResult, error) {
	requestCount := remainingCount
	var processed []WriteRequest
	for _, br := range c.results {
		requestCount += br.requestCount
		processed = append(processed, br.processed...)
	}
	if !c.acknowledged {
		return NewUnacknowledgedResult(requestCount, processed), nil
	}

	var matched, deleted, inserted int64
	modified := int64Ptr(0)
	for _, br := range c.results {
		matched += br.matchedCount
		deleted += br.deletedCount
		inserted += br.insertedCount
		if br.modifiedCount == nil {
			modified = nil
		} else if modified != nil {
			*modified += *br.modifiedCount
		}
	}

	upserts, err := c.upserts()
	if err != nil {
		return nil, err
	}
	return NewAcknowledgedResult(requestCount, matched, deleted, inserted, modified, upserts, processed), nil
}

func (c batchResultCombiner) upserts() ([]Upsert, error) {
	var upserts []Upsert
	for _, br := range c.results {
		for _, u := range br.upserts {
			idx, err := br.indexMap.Map(u.Index)
			if err != nil {
				return nil, errors.Wrap(err, "cannot map upsert index")
			}
			upserts = append(upserts, Upsert{Index: idx, ID: u.ID})
		}
	}
	sort.SliceStable(upserts, func(i, j int) bool { return upserts[i].Index < upserts[j].Index })
	return upserts, nil
}

func (c batchResultCombiner) writeErrors() ([]WriteError, error) {
	var wes []WriteError
	for _, br := range c.results {
		for _, we := range br.writeErrors {
			idx, err := br.indexMap.Map(we.Index)
			if err != nil {
				return nil, errors.Wrap(err, "cannot map write error index")
			}
			we.Index = idx
			wes = append(wes, we)
		}
	}
	sort.SliceStable(wes, func(i, j int) bool { return wes[i].Index < wes[j].Index })
	return wes, nil
}

// writeConcernError returns the last write concern error.
func (c batchResultCombiner) writeConcernError() *WriteConcernError {
	var wce *WriteConcernError
	for _, br := range c.results {
		if br.writeConcernError != nil {
			wce = br.writeConcernError
		}
	}
	return wce
}

func (c batchResultCombiner) unprocessed(remaining []WriteRequest) []WriteRequest {
	var rest []WriteRequest
	for _, br := range c.results {
		rest = append(rest, br.unprocessed...)
	}
	return append(rest, remaining...)
}
