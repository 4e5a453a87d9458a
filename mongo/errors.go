// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"bytes"
	"fmt"

	"github.com/ikmak/mongo-bulkwrite/core/bulk"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// ErrUnacknowledgedWrite is returned by operations that have an unacknowledged write concern.
var ErrUnacknowledgedWrite = errors.New("unacknowledged write")

// ErrClientDisconnected is returned when a disconnected Client is used to run an operation.
var ErrClientDisconnected = errors.New("client is disconnected")

// ErrNilDocument is returned when a nil document is passed to a CRUD method.
var ErrNilDocument = errors.New("document is nil")

// ErrEmptySlice is returned when an empty slice is passed to a CRUD method that requires a non-empty slice.
var ErrEmptySlice = errors.New("must provide at least one element in input slice")

// WriteError is an error that occurred during execution of a write operation. This error type is only returned as part
// of a WriteException or BulkWriteException.
type WriteError struct {
	// The index of the write in the slice passed to an InsertMany or BulkWrite operation that caused this error.
	Index int

	Code    int
	Message string
	Details bsoncore.Document
}

func (we WriteError) Error() string {
	msg := we.Message
	if len(we.Details) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, we.Details.String())
	}
	return msg
}

// WriteErrors is a group of write errors that occurred during execution of a write operation.
type WriteErrors []WriteError

func (we WriteErrors) Error() string {
	var buf bytes.Buffer
	fmt.Fprint(&buf, "write errors: [")
	for idx, err := range we {
		if idx != 0 {
			fmt.Fprintf(&buf, ", ")
		}
		fmt.Fprintf(&buf, "{%s}", err)
	}
	fmt.Fprint(&buf, "]")
	return buf.String()
}

// WriteConcernError represents a write concern failure during execution of a write operation. This error type is only
// returned as part of a WriteException or a BulkWriteException.
type WriteConcernError struct {
	Name    string
	Code    int
	Message string
	Details bsoncore.Document
	Raw     bsoncore.Document
}

func (wce WriteConcernError) Error() string {
	if wce.Name != "" {
		return fmt.Sprintf("(%v) %v", wce.Name, wce.Message)
	}
	return wce.Message
}

func convertWriteConcernError(wce *bulk.WriteConcernError) *WriteConcernError {
	if wce == nil {
		return nil
	}
	return &WriteConcernError{
		Name:    wce.Name,
		Code:    int(wce.Code),
		Message: wce.Message,
		Details: wce.Details,
		Raw:     wce.Response,
	}
}

func convertWriteError(we bulk.WriteError) WriteError {
	return WriteError{Index: we.Index, Code: int(we.Code), Message: we.Message, Details: we.Details}
}

// WriteException is the error type returned by the InsertOne, DeleteOne and
// UpdateOne operations.
type WriteException struct {
	// The write concern error that occurred, or nil if there was none.
	WriteConcernError *WriteConcernError

	// The write errors that occurred during operation execution.
	WriteErrors WriteErrors
}

// Error implements the error interface.
func (mwe WriteException) Error() string {
	var buf bytes.Buffer
	fmt.Fprint(&buf, "write exception: ")
	if len(mwe.WriteErrors) > 0 {
		fmt.Fprintf(&buf, "%s", mwe.WriteErrors)
	}
	if mwe.WriteConcernError != nil {
		if len(mwe.WriteErrors) > 0 {
			fmt.Fprint(&buf, ", ")
		}
		fmt.Fprintf(&buf, "write concern error: {%s}", mwe.WriteConcernError)
	}
	return buf.String()
}

// BulkWriteError is an error that occurred during execution of one operation in a BulkWrite. This error type is only
// returned as part of a BulkWriteException.
type BulkWriteError struct {
	WriteError            // The WriteError that occurred.
	Request    WriteModel // The WriteModel that caused this error.
}

// Error implements the error interface.
func (bwe BulkWriteError) Error() string {
	return bwe.WriteError.Error()
}

// BulkWriteException is the error type returned by BulkWrite and InsertMany operations.
type BulkWriteException struct {
	// The write concern error that occurred, or nil if there was none.
	WriteConcernError *WriteConcernError

	// The write errors that occurred during operation execution.
	WriteErrors []BulkWriteError

	// The models that were not sent because an ordered write stopped at an
	// error, in their original order.
	UnprocessedModels []WriteModel
}

// Error implements the error interface.
func (bwe BulkWriteException) Error() string {
	var buf bytes.Buffer
	fmt.Fprint(&buf, "bulk write exception: ")

	if len(bwe.WriteErrors) > 0 {
		fmt.Fprint(&buf, "write errors: [")
		for idx, err := range bwe.WriteErrors {
			if idx != 0 {
				fmt.Fprint(&buf, ", ")
			}
			fmt.Fprintf(&buf, "{%s}", err)
		}
		fmt.Fprint(&buf, "]")
	}
	if bwe.WriteConcernError != nil {
		if len(bwe.WriteErrors) > 0 {
			fmt.Fprint(&buf, ", ")
		}
		fmt.Fprintf(&buf, "write concern error: {%s}", bwe.WriteConcernError)
	}
	if n := len(bwe.UnprocessedModels); n > 0 {
		fmt.Fprintf(&buf, ", %d unprocessed models", n)
	}
	return buf.String()
}

// bulkWriteException converts err into a BulkWriteException if it is a
// *bulk.BulkWriteError, mapping requests back to the models they came from.
func bulkWriteException(err error, models []WriteModel, reqs []bulk.WriteRequest) error {
	var bwe *bulk.BulkWriteError
	if !errors.As(err, &bwe) {
		return err
	}

	exc := BulkWriteException{WriteConcernError: convertWriteConcernError(bwe.WriteConcernError)}
	for _, we := range bwe.WriteErrors {
		bwErr := BulkWriteError{WriteError: convertWriteError(we)}
		if we.Index >= 0 && we.Index < len(models) {
			bwErr.Request = models[we.Index]
		}
		exc.WriteErrors = append(exc.WriteErrors, bwErr)
	}

	if len(bwe.UnprocessedRequests) > 0 {
		position := make(map[bulk.WriteRequest]int, len(reqs))
		for i, r := range reqs {
			position[r] = i
		}
		for _, r := range bwe.UnprocessedRequests {
			if i, ok := position[r]; ok {
				exc.UnprocessedModels = append(exc.UnprocessedModels, models[i])
			}
		}
	}
	return exc
}

// writeException converts a *bulk.BulkWriteError from a single-request
// operation into a WriteException.
func writeException(err error) error {
	var bwe *bulk.BulkWriteError
	if !errors.As(err, &bwe) {
		return err
	}
	exc := WriteException{WriteConcernError: convertWriteConcernError(bwe.WriteConcernError)}
	for _, we := range bwe.WriteErrors {
		exc.WriteErrors = append(exc.WriteErrors, convertWriteError(we))
	}
	return exc
}
