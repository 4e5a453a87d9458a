// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// AppendQuery appends an OP_QUERY message.
func AppendQuery(dst []byte, reqid int32, flags QueryFlag, fullCollectionName string, skip, limit int32, query bsoncore.Document) []byte {
	idx, dst := AppendHeaderStart(dst, reqid, 0, OpQuery)
	dst = appendi32(dst, int32(flags))
	dst = appendCString(dst, fullCollectionName)
	dst = appendi32(dst, skip)
	dst = appendi32(dst, limit)
	dst = append(dst, query...)
	return UpdateLength(dst, idx)
}

// AppendInsert appends an OP_INSERT message.
func AppendInsert(dst []byte, reqid int32, flags InsertFlag, fullCollectionName string, docs ...bsoncore.Document) []byte {
	idx, dst := AppendHeaderStart(dst, reqid, 0, OpInsert)
	dst = appendi32(dst, int32(flags))
	dst = appendCString(dst, fullCollectionName)
	for _, doc := range docs {
		dst = append(dst, doc...)
	}
	return UpdateLength(dst, idx)
}

// AppendUpdate appends an OP_UPDATE message.
func AppendUpdate(dst []byte, reqid int32, fullCollectionName string, flags UpdateFlag, selector, update bsoncore.Document) []byte {
	idx, dst := AppendHeaderStart(dst, reqid, 0, OpUpdate)
	dst = appendi32(dst, 0)
	dst = appendCString(dst, fullCollectionName)
	dst = appendi32(dst, int32(flags))
	dst = append(dst, selector...)
	dst = append(dst, update...)
	return UpdateLength(dst, idx)
}

// AppendDelete appends an OP_DELETE message.
func AppendDelete(dst []byte, reqid int32, fullCollectionName string, flags DeleteFlag, selector bsoncore.Document) []byte {
	idx, dst := AppendHeaderStart(dst, reqid, 0, OpDelete)
	dst = appendi32(dst, 0)
	dst = appendCString(dst, fullCollectionName)
	dst = appendi32(dst, int32(flags))
	dst = append(dst, selector...)
	return UpdateLength(dst, idx)
}

// Query is a parsed OP_QUERY message.
type Query struct {
	RequestID          int32
	Flags              QueryFlag
	FullCollectionName string
	Skip               int32
	Limit              int32
	Query              bsoncore.Document
}

// ReadQuery parses an OP_QUERY message.
func ReadQuery(wm []byte) (Query, error) {
	var q Query
	_, reqid, _, opcode, ok := ParseHeader(wm)
	if !ok || opcode != OpQuery {
		return q, errors.Wrapf(ErrMalformed, "expected OP_QUERY, got %v", opcode)
	}
	q.RequestID = reqid
	src := wm[HeaderLength:]

	var flags int32
	if flags, src, ok = readi32(src); !ok {
		return q, errors.Wrap(ErrMalformed, "missing query flags")
	}
	q.Flags = QueryFlag(flags)
	if q.FullCollectionName, src, ok = readCString(src); !ok {
		return q, errors.Wrap(ErrMalformed, "missing collection name")
	}
	if q.Skip, src, ok = readi32(src); !ok {
		return q, errors.Wrap(ErrMalformed, "missing numberToSkip")
	}
	if q.Limit, src, ok = readi32(src); !ok {
		return q, errors.Wrap(ErrMalformed, "missing numberToReturn")
	}
	if q.Query, _, ok = bsoncore.ReadDocument(src); !ok {
		return q, errors.Wrap(ErrMalformed, "missing query document")
	}
	return q, nil
}

// Insert is a parsed OP_INSERT message.
type Insert struct {
	Flags              InsertFlag
	FullCollectionName string
	Documents          []bsoncore.Document
}

// ReadInsert parses an OP_INSERT message.
func ReadInsert(wm []byte) (Insert, error) {
	var ins Insert
	_, _, _, opcode, ok := ParseHeader(wm)
	if !ok || opcode != OpInsert {
		return ins, errors.Wrapf(ErrMalformed, "expected OP_INSERT, got %v", opcode)
	}
	src := wm[HeaderLength:]

	var flags int32
	if flags, src, ok = readi32(src); !ok {
		return ins, errors.Wrap(ErrMalformed, "missing insert flags")
	}
	ins.Flags = InsertFlag(flags)
	if ins.FullCollectionName, src, ok = readCString(src); !ok {
		return ins, errors.Wrap(ErrMalformed, "missing collection name")
	}
	docs, err := ReadDocuments(src)
	if err != nil {
		return ins, err
	}
	ins.Documents = docs
	return ins, nil
}

// Update is a parsed OP_UPDATE message.
type Update struct {
	FullCollectionName string
	Flags              UpdateFlag
	Selector           bsoncore.Document
	Update             bsoncore.Document
}

// ReadUpdate parses an OP_UPDATE message.
func ReadUpdate(wm []byte) (Update, error) {
	var u Update
	_, _, _, opcode, ok := ParseHeader(wm)
	if !ok || opcode != OpUpdate {
		return u, errors.Wrapf(ErrMalformed, "expected OP_UPDATE, got %v", opcode)
	}
	src := wm[HeaderLength:]

	if _, src, ok = readi32(src); !ok {
		return u, errors.Wrap(ErrMalformed, "missing reserved field")
	}
	if u.FullCollectionName, src, ok = readCString(src); !ok {
		return u, errors.Wrap(ErrMalformed, "missing collection name")
	}
	var flags int32
	if flags, src, ok = readi32(src); !ok {
		return u, errors.Wrap(ErrMalformed, "missing update flags")
	}
	u.Flags = UpdateFlag(flags)
	if u.Selector, src, ok = bsoncore.ReadDocument(src); !ok {
		return u, errors.Wrap(ErrMalformed, "missing selector")
	}
	if u.Update, _, ok = bsoncore.ReadDocument(src); !ok {
		return u, errors.Wrap(ErrMalformed, "missing update document")
	}
	return u, nil
}

// Delete is a parsed OP_DELETE message.
type Delete struct {
	FullCollectionName string
	Flags              DeleteFlag
	Selector           bsoncore.Document
}

// ReadDelete parses an OP_DELETE message.
func ReadDelete(wm []byte) (Delete, error) {
	var d Delete
	_, _, _, opcode, ok := ParseHeader(wm)
	if !ok || opcode != OpDelete {
		return d, errors.Wrapf(ErrMalformed, "expected OP_DELETE, got %v", opcode)
	}
	src := wm[HeaderLength:]

	if _, src, ok = readi32(src); !ok {
		return d, errors.Wrap(ErrMalformed, "missing reserved field")
	}
	if d.FullCollectionName, src, ok = readCString(src); !ok {
		return d, errors.Wrap(ErrMalformed, "missing collection name")
	}
	var flags int32
	if flags, src, ok = readi32(src); !ok {
		return d, errors.Wrap(ErrMalformed, "missing delete flags")
	}
	d.Flags = DeleteFlag(flags)
	if d.Selector, _, ok = bsoncore.ReadDocument(src); !ok {
		return d, errors.Wrap(ErrMalformed, "missing selector")
	}
	return d, nil
}
