// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// RequestType is the kind of a WriteRequest.
type RequestType uint8

// These are the request types.
const (
	InsertRequestType RequestType = iota + 1
	UpdateRequestType
	DeleteRequestType
)

// String implements the fmt.Stringer interface.
func (rt RequestType) String() string {
	switch rt {
	case InsertRequestType:
		return "insert"
	case UpdateRequestType:
		return "update"
	case DeleteRequestType:
		return "delete"
	default:
		return "unknown"
	}
}

// WriteRequest is a single insert, update or delete. A request is identified
// by its position in the list handed to an operation.
type WriteRequest interface {
	RequestType() RequestType
}

// InsertRequest inserts one document.
type InsertRequest struct {
	Document bsoncore.Document
}

// RequestType implements the WriteRequest interface.
func (*InsertRequest) RequestType() RequestType { return InsertRequestType }

// UpdateRequest updates or replaces the documents matching Filter.
type UpdateRequest struct {
	Filter       bsoncore.Document
	Update       bsoncore.Document
	Collation    bsoncore.Document
	ArrayFilters bsoncore.Array
	// Hint is an index name or key pattern; the zero Value means no hint.
	Hint     bsoncore.Value
	IsMulti  bool
	IsUpsert bool
}

// RequestType implements the WriteRequest interface.
func (*UpdateRequest) RequestType() RequestType { return UpdateRequestType }

// DeleteRequest deletes the documents matching Filter.
type DeleteRequest struct {
	Filter    bsoncore.Document
	Collation bsoncore.Document
	// Limit is 0 to delete all matching documents or 1 to delete one.
	Limit int32
}

// RequestType implements the WriteRequest interface.
func (*DeleteRequest) RequestType() RequestType { return DeleteRequestType }
