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

// Reply is a parsed OP_REPLY message.
type Reply struct {
	ResponseTo     int32
	Flags          ReplyFlag
	CursorID       int64
	StartingFrom   int32
	NumberReturned int32
	Documents      []bsoncore.Document
}

// AppendReply appends an OP_REPLY message.
func AppendReply(dst []byte, reqid, respto int32, flags ReplyFlag, docs ...bsoncore.Document) []byte {
	idx, dst := AppendHeaderStart(dst, reqid, respto, OpReply)
	dst = appendi32(dst, int32(flags))
	dst = append(dst, 0, 0, 0, 0, 0, 0, 0, 0) // cursorID
	dst = appendi32(dst, 0)
	dst = appendi32(dst, int32(len(docs)))
	for _, doc := range docs {
		dst = append(dst, doc...)
	}
	return UpdateLength(dst, idx)
}

// ReadReply parses an OP_REPLY message.
func ReadReply(wm []byte) (Reply, error) {
	var r Reply
	_, _, respto, opcode, ok := ParseHeader(wm)
	if !ok || opcode != OpReply {
		return r, errors.Wrapf(ErrMalformed, "expected OP_REPLY, got %v", opcode)
	}
	r.ResponseTo = respto
	src := wm[HeaderLength:]

	var flags int32
	if flags, src, ok = readi32(src); !ok {
		return r, errors.Wrap(ErrMalformed, "missing reply flags")
	}
	r.Flags = ReplyFlag(flags)
	if r.CursorID, src, ok = readi64(src); !ok {
		return r, errors.Wrap(ErrMalformed, "missing cursor id")
	}
	if r.StartingFrom, src, ok = readi32(src); !ok {
		return r, errors.Wrap(ErrMalformed, "missing startingFrom")
	}
	if r.NumberReturned, src, ok = readi32(src); !ok {
		return r, errors.Wrap(ErrMalformed, "missing numberReturned")
	}
	docs, err := ReadDocuments(src)
	if err != nil {
		return r, err
	}
	if int32(len(docs)) != r.NumberReturned {
		return r, errors.Wrapf(ErrMalformed, "reply declares %d documents, found %d", r.NumberReturned, len(docs))
	}
	r.Documents = docs
	return r, nil
}
