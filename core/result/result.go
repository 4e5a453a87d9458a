// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package result contains the results of legacy write operations, which
// report their outcome through a getLastError command.
package result

import (
	"fmt"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

type getLastError struct {
	N               int64         `bson:"n"`
	Err             *string       `bson:"err"`
	Code            int32         `bson:"code"`
	UpdatedExisting bool          `bson:"updatedExisting"`
	Upserted        bson.RawValue `bson:"upserted"`
	WTimeout        bool          `bson:"wtimeout"`
}

// WriteConcernResult is the outcome of a legacy write acknowledged by a
// getLastError command.
type WriteConcernResult struct {
	DocumentsAffected int64
	LastErrorMessage  string
	HasLastError      bool
	Code              int32
	UpdatedExisting   bool
	// Upserted is the _id of an upserted document, or the zero Value.
	Upserted bsoncore.Value
	Response bsoncore.Document
}

// NewWriteConcernResult parses a getLastError reply.
func NewWriteConcernResult(response bsoncore.Document) (*WriteConcernResult, error) {
	var gle getLastError
	if err := bson.Unmarshal(response, &gle); err != nil {
		return nil, errors.Wrap(err, "malformed getLastError reply")
	}

	res := &WriteConcernResult{
		DocumentsAffected: gle.N,
		Code:              gle.Code,
		UpdatedExisting:   gle.UpdatedExisting,
		Response:          response,
	}
	if gle.Err != nil {
		res.HasLastError = true
		res.LastErrorMessage = *gle.Err
	}
	if gle.Upserted.Type != 0 {
		res.Upserted = bsoncore.Value{Type: bsoncore.Type(gle.Upserted.Type), Data: gle.Upserted.Value}
	}
	return res, nil
}

// HasWriteConcernError reports whether the reply describes a failure to
// satisfy the write concern, as opposed to a failure of the write itself.
func (r *WriteConcernResult) HasWriteConcernError() bool {
	if r == nil || r.Response == nil {
		return false
	}
	for _, key := range []string{"wtimeout", "jnote", "wnote"} {
		if _, err := r.Response.LookupErr(key); err == nil {
			return true
		}
	}
	return false
}

// WriteConcernError is returned by a legacy write whose getLastError reply
// reports an error. It carries the parsed reply.
type WriteConcernError struct {
	ConnectionID string
	Result       *WriteConcernResult
}

// NewWriteConcernError returns an error for r if its reply reports an error.
func NewWriteConcernError(connID string, r *WriteConcernResult) error {
	if r == nil || (!r.HasLastError && !r.HasWriteConcernError()) {
		return nil
	}
	return &WriteConcernError{ConnectionID: connID, Result: r}
}

// Error implements the error interface.
func (e *WriteConcernError) Error() string {
	msg := e.Result.LastErrorMessage
	if msg == "" {
		msg = "write concern error"
	}
	if e.ConnectionID != "" {
		return fmt.Sprintf("(%s) %s", e.ConnectionID, msg)
	}
	return msg
}
