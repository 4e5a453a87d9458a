// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// ErrEmptyBulkWrite is returned when a bulk write has no requests.
var ErrEmptyBulkWrite = errors.New("bulk write operation is empty")

// ErrInvalidBatchCount is returned when the effective batch count is not positive.
var ErrInvalidBatchCount = errors.New("max batch count must be greater than zero")

// ErrUnacknowledgedResult is returned by the accessors of a result whose
// writes were not acknowledged.
var ErrUnacknowledgedResult = errors.New("not supported for unacknowledged writes")

// ErrModifiedCountUnavailable is returned when the server did not report
// the number of modified documents.
var ErrModifiedCountUnavailable = errors.New("modified count is not available")

// ErrIndexOutOfRange is returned when an IndexMap has no entry for an index.
var ErrIndexOutOfRange = errors.New("index is not in the index map")

// ErrRequestTooLarge is returned when a single request does not fit in a batch.
var ErrRequestTooLarge = errors.New("request is larger than the maximum batch length")

// ErrNonBatchableRequestsTooLarge is returned when requests that must be sent
// together do not fit in a single write command.
var ErrNonBatchableRequestsTooLarge = errors.New("the non-batchable requests do not fit in a single write command")

// ErrDocumentTooLarge is returned when a document exceeds the server's maximum document size.
var ErrDocumentTooLarge = errors.New("document is larger than the maximum document size")

// ErrCollationNotSupported is returned when a request has a collation and the server does not support them.
var ErrCollationNotSupported = errors.New("collation is not supported by this server version")

// ErrArrayFiltersNotSupported is returned when an update has array filters and the server does not support them.
var ErrArrayFiltersNotSupported = errors.New("array filters are not supported by this server version")

// ErrHintNotSupported is returned when an update has a hint and the server does not support them.
var ErrHintNotSupported = errors.New("hint is not supported by this server version")

// ErrBypassDocumentValidationNotSupported is returned when bypassDocumentValidation
// is requested and the server does not support it.
var ErrBypassDocumentValidationNotSupported = errors.New("bypassDocumentValidation is not supported by this server version")

// Error codes used when a legacy reply does not carry one.
const (
	CodeUnknownError       int32 = 8
	CodeWriteConcernFailed int32 = 64
)

// WriteError is an error that occurred while executing a single request.
// Index is the position of the request in the caller's request list.
type WriteError struct {
	Index   int
	Code    int32
	Message string
	Details bsoncore.Document
}

func (we WriteError) Error() string {
	return fmt.Sprintf("write error at index %d: (%d) %s", we.Index, we.Code, we.Message)
}

// WriteConcernError is an error that occurred while satisfying a write concern.
type WriteConcernError struct {
	Code     int32
	Name     string
	Message  string
	Details  bsoncore.Document
	Response bsoncore.Document
}

func (wce *WriteConcernError) Error() string {
	if wce.Name != "" {
		return fmt.Sprintf("(%v) %v", wce.Name, wce.Message)
	}
	return fmt.Sprintf("(%d) %v", wce.Code, wce.Message)
}

// BulkWriteError is returned when a bulk write completes with write errors or
// a write concern error. Result holds the outcome of every processed request.
type BulkWriteError struct {
	ConnectionID        string
	Result              *OperationResult
	WriteErrors         []WriteError
	WriteConcernError   *WriteConcernError
	UnprocessedRequests []WriteRequest
}

func (bwe *BulkWriteError) Error() string {
	var buf bytes.Buffer
	buf.WriteString("bulk write error: ")
	if len(bwe.WriteErrors) > 0 {
		fmt.Fprintf(&buf, "write errors: [")
		for i, we := range bwe.WriteErrors {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "{%s}", we.Error())
		}
		buf.WriteString("]")
	}
	if bwe.WriteConcernError != nil {
		if len(bwe.WriteErrors) > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "write concern error: %s", bwe.WriteConcernError.Error())
	}
	if n := len(bwe.UnprocessedRequests); n > 0 {
		fmt.Fprintf(&buf, ", %d unprocessed requests", n)
	}
	return buf.String()
}

// HasWriteErrors reports whether any request failed.
func (bwe *BulkWriteError) HasWriteErrors() bool {
	return len(bwe.WriteErrors) > 0
}
