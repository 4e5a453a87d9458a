// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"github.com/ikmak/mongo-bulkwrite/core/result"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// batchResult is the outcome of one batch. Indexes in upserts and
// writeErrors are batch indexes; indexMap translates them.
type batchResult struct {
	requestCount      int
	matchedCount      int64
	deletedCount      int64
	insertedCount     int64
	modifiedCount     *int64
	upserts           []Upsert
	writeErrors       []WriteError
	writeConcernError *WriteConcernError
	indexMap          IndexMap
	processed         []WriteRequest
	unprocessed       []WriteRequest
}

func (br *batchResult) hasWriteErrors() bool { return len(br.writeErrors) > 0 }

func (br *batchResult) hasWriteConcernError() bool { return br.writeConcernError != nil }

func int64Ptr(i int64) *int64 { return &i }

// newBatchResultFromCommandResponse builds the result of a write command
// sent with requests.
func newBatchResultFromCommandResponse(
	ordered bool,
	rt RequestType,
	requests []WriteRequest,
	response bsoncore.Document,
	indexMap IndexMap,
) (*batchResult, error) {
	br := &batchResult{requestCount: len(requests), indexMap: indexMap}

	var n int64
	var nModified *int64
	elems, err := response.Elements()
	if err != nil {
		return nil, errors.Wrap(err, "malformed write command response")
	}
	for _, elem := range elems {
		switch elem.Key() {
		case "n":
			n, _ = elem.Value().AsInt64OK()
		case "nModified":
			if v, ok := elem.Value().AsInt64OK(); ok {
				nModified = &v
			}
		case "upserted":
			arr, ok := elem.Value().ArrayOK()
			if !ok {
				return nil, errors.New("upserted is not an array")
			}
			if br.upserts, err = parseUpserts(arr); err != nil {
				return nil, err
			}
		case "writeErrors":
			arr, ok := elem.Value().ArrayOK()
			if !ok {
				return nil, errors.New("writeErrors is not an array")
			}
			if br.writeErrors, err = parseWriteErrors(arr); err != nil {
				return nil, err
			}
		case "writeConcernError":
			doc, ok := elem.Value().DocumentOK()
			if !ok {
				return nil, errors.New("writeConcernError is not a document")
			}
			br.writeConcernError = parseWriteConcernError(doc)
			br.writeConcernError.Response = response
		}
	}

	br.modifiedCount = int64Ptr(0)
	switch rt {
	case DeleteRequestType:
		br.deletedCount = n
	case InsertRequestType:
		br.insertedCount = n
	case UpdateRequestType:
		br.matchedCount = n - int64(len(br.upserts))
		br.modifiedCount = nModified
	}

	br.processed, br.unprocessed = requests, nil
	if ordered && br.hasWriteErrors() {
		maxIndex := 0
		for _, we := range br.writeErrors {
			if we.Index > maxIndex {
				maxIndex = we.Index
			}
		}
		if maxIndex+1 < len(requests) {
			br.processed, br.unprocessed = requests[:maxIndex+1], requests[maxIndex+1:]
		}
	}
	return br, nil
}

func parseUpserts(arr bsoncore.Array) ([]Upsert, error) {
	vals, err := arr.Values()
	if err != nil {
		return nil, errors.Wrap(err, "malformed upserted array")
	}
	upserts := make([]Upsert, 0, len(vals))
	for _, val := range vals {
		doc, ok := val.DocumentOK()
		if !ok {
			return nil, errors.New("upserted entry is not a document")
		}
		idx, ok := doc.Lookup("index").AsInt64OK()
		if !ok {
			return nil, errors.New("upserted entry has no index")
		}
		id, err := doc.LookupErr("_id")
		if err != nil {
			return nil, errors.New("upserted entry has no _id")
		}
		upserts = append(upserts, Upsert{Index: int(idx), ID: id})
	}
	return upserts, nil
}

func parseWriteErrors(arr bsoncore.Array) ([]WriteError, error) {
	vals, err := arr.Values()
	if err != nil {
		return nil, errors.Wrap(err, "malformed writeErrors array")
	}
	wes := make([]WriteError, 0, len(vals))
	for _, val := range vals {
		doc, ok := val.DocumentOK()
		if !ok {
			return nil, errors.New("write error is not a document")
		}
		var we WriteError
		if idx, ok := doc.Lookup("index").AsInt64OK(); ok {
			we.Index = int(idx)
		}
		if code, ok := doc.Lookup("code").AsInt32OK(); ok {
			we.Code = code
		}
		we.Message, _ = doc.Lookup("errmsg").StringValueOK()
		we.Details, _ = doc.Lookup("errInfo").DocumentOK()
		wes = append(wes, we)
	}
	return wes, nil
}

func parseWriteConcernError(doc bsoncore.Document) *WriteConcernError {
	wce := &WriteConcernError{}
	if code, ok := doc.Lookup("code").AsInt32OK(); ok {
		wce.Code = code
	}
	wce.Name, _ = doc.Lookup("codeName").StringValueOK()
	wce.Message, _ = doc.Lookup("errmsg").StringValueOK()
	wce.Details, _ = doc.Lookup("errInfo").DocumentOK()
	return wce
}

// newBatchResultFromLegacy builds the result of one request sent as a legacy
// opcode. failed reports whether the write returned a WriteConcernError,
// in which case wcr describes it.
func newBatchResultFromLegacy(req WriteRequest, wcr *result.WriteConcernResult, failed bool, indexMap IndexMap) *batchResult {
	br := &batchResult{
		requestCount: 1,
		indexMap:     indexMap,
		processed:    []WriteRequest{req},
	}

	var affected int64
	var upsertID bsoncore.Value
	if wcr != nil {
		affected = wcr.DocumentsAffected
		upsertID = wcr.Upserted
		if u, ok := req.(*UpdateRequest); ok && upsertID.Type == 0 && affected == 1 && u.IsUpsert && !wcr.UpdatedExisting {
			if id, err := u.Update.LookupErr("_id"); err == nil {
				upsertID = id
			} else if id, err := u.Filter.LookupErr("_id"); err == nil {
				upsertID = id
			}
		}
	}
	if upsertID.Type != 0 {
		br.upserts = []Upsert{{Index: 0, ID: upsertID}}
	}

	if failed && wcr != nil {
		if wcr.HasWriteConcernError() {
			br.writeConcernError = writeConcernErrorFromGetLastError(wcr)
		} else {
			br.writeErrors = []WriteError{writeErrorFromGetLastError(wcr)}
		}
	}

	if req.RequestType() == InsertRequestType && !br.hasWriteErrors() {
		affected = 1
	}

	br.modifiedCount = int64Ptr(0)
	switch req.RequestType() {
	case DeleteRequestType:
		br.deletedCount = affected
	case InsertRequestType:
		br.insertedCount = affected
	case UpdateRequestType:
		br.matchedCount = affected - int64(len(br.upserts))
		br.modifiedCount = nil
	}
	return br
}

func writeConcernErrorFromGetLastError(wcr *result.WriteConcernResult) *WriteConcernError {
	code := wcr.Code
	if code == 0 {
		code = CodeWriteConcernFailed
	}
	return &WriteConcernError{
		Code:     code,
		Message:  wcr.LastErrorMessage,
		Details:  getLastErrorDetails(wcr.Response),
		Response: wcr.Response,
	}
}

func writeErrorFromGetLastError(wcr *result.WriteConcernResult) WriteError {
	code := wcr.Code
	if code == 0 {
		code = CodeUnknownError
	}
	return WriteError{
		Index:   0,
		Code:    code,
		Message: wcr.LastErrorMessage,
		Details: getLastErrorDetails(wcr.Response),
	}
}

// getLastErrorDetails returns the reply without its ok, code and err fields.
func getLastErrorDetails(response bsoncore.Document) bsoncore.Document {
	elems, err := response.Elements()
	if err != nil {
		return nil
	}
	idx, dst := bsoncore.AppendDocumentStart(nil)
	for _, elem := range elems {
		switch elem.Key() {
		case "ok", "code", "err":
			continue
		}
		dst = append(dst, elem...)
	}
	dst, _ = bsoncore.AppendDocumentEnd(dst, idx)
	return dst
}

// newBatchResultFromOperationResult wraps the outcome of an operation that
// ran a whole run. bwErr is the error the operation returned, if any.
func newBatchResultFromOperationResult(res *OperationResult, bwErr *BulkWriteError, indexMap IndexMap) *batchResult {
	br := &batchResult{
		requestCount:  res.RequestCount(),
		indexMap:      indexMap,
		processed:     res.ProcessedRequests(),
		modifiedCount: int64Ptr(0),
	}
	if res.Acknowledged() {
		br.matchedCount = res.matchedCount
		br.deletedCount = res.deletedCount
		br.insertedCount = res.insertedCount
		br.modifiedCount = res.modifiedCount
		br.upserts = res.upserts
	}
	if bwErr != nil {
		br.unprocessed = bwErr.UnprocessedRequests
		br.writeErrors = bwErr.WriteErrors
		br.writeConcernError = bwErr.WriteConcernError
	}
	return br
}
