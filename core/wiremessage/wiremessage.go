// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package wiremessage contains types and functions for building and parsing
// the messages of the MongoDB wire protocol.
package wiremessage

import (
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// ErrMalformed is returned when a wire message cannot be parsed.
var ErrMalformed = errors.New("malformed wire message")

// HeaderLength is the length of a wire message header.
const HeaderLength = 16

var globalRequestID int32

// CurrentRequestID returns the current request ID.
func CurrentRequestID() int32 { return atomic.LoadInt32(&globalRequestID) }

// NextRequestID returns the next request ID.
func NextRequestID() int32 { return atomic.AddInt32(&globalRequestID, 1) }

// OpCode represents a MongoDB wire protocol opcode.
type OpCode int32

// These constants are the opcodes used by this library.
const (
	OpReply      OpCode = 1
	OpUpdate     OpCode = 2001
	OpInsert     OpCode = 2002
	OpQuery      OpCode = 2004
	OpDelete     OpCode = 2006
	OpCompressed OpCode = 2012
	OpMsg        OpCode = 2013
)

// String implements the fmt.Stringer interface.
func (oc OpCode) String() string {
	switch oc {
	case OpReply:
		return "OP_REPLY"
	case OpUpdate:
		return "OP_UPDATE"
	case OpInsert:
		return "OP_INSERT"
	case OpQuery:
		return "OP_QUERY"
	case OpDelete:
		return "OP_DELETE"
	case OpCompressed:
		return "OP_COMPRESSED"
	case OpMsg:
		return "OP_MSG"
	default:
		return "<invalid opcode>"
	}
}

// QueryFlag represents the flags on an OP_QUERY message.
type QueryFlag int32

// These constants represent the individual flags on an OP_QUERY message.
const (
	_ QueryFlag = 1 << iota
	TailableCursor
	SecondaryOK
	OplogReplay
	NoCursorTimeout
	AwaitData
	Exhaust
	Partial
)

// InsertFlag represents the flags on an OP_INSERT message.
type InsertFlag int32

// ContinueOnError makes the server keep inserting after a document fails.
const ContinueOnError InsertFlag = 1

// UpdateFlag represents the flags on an OP_UPDATE message.
type UpdateFlag int32

// These constants represent the individual flags on an OP_UPDATE message.
const (
	Upsert UpdateFlag = 1 << iota
	MultiUpdate
)

// DeleteFlag represents the flags on an OP_DELETE message.
type DeleteFlag int32

// SingleRemove removes only the first matching document.
const SingleRemove DeleteFlag = 1

// MsgFlag represents the flags on an OP_MSG message.
type MsgFlag uint32

// These constants represent the individual flags on an OP_MSG message.
const (
	ChecksumPresent MsgFlag = 1 << iota
	MoreToCome

	ExhaustAllowed MsgFlag = 1 << 16
)

// ReplyFlag represents the flags of an OP_REPLY message.
type ReplyFlag int32

// These constants represent the individual flags of an OP_REPLY message.
const (
	CursorNotFound ReplyFlag = 1 << iota
	QueryFailure
	ShardConfigStale
	AwaitCapable
)

// String implements the fmt.Stringer interface.
func (rf ReplyFlag) String() string {
	strs := make([]string, 0)
	if rf&CursorNotFound == CursorNotFound {
		strs = append(strs, "CursorNotFound")
	}
	if rf&QueryFailure == QueryFailure {
		strs = append(strs, "QueryFailure")
	}
	if rf&ShardConfigStale == ShardConfigStale {
		strs = append(strs, "ShardConfigStale")
	}
	if rf&AwaitCapable == AwaitCapable {
		strs = append(strs, "AwaitCapable")
	}
	return "[" + strings.Join(strs, ", ") + "]"
}

// SectionType represents the type for 1 section in an OP_MSG
type SectionType uint8

// These constants represent the individual section types for a section in an OP_MSG
const (
	SingleDocument SectionType = iota
	DocumentSequence
)

// ParseHeader parses a wire message header.
func ParseHeader(hdr []byte) (length, requestID, responseTo int32, opcode OpCode, ok bool) {
	if len(hdr) < HeaderLength {
		return 0, 0, 0, 0, false
	}
	length = readi32unsafe(hdr[0:])
	requestID = readi32unsafe(hdr[4:])
	responseTo = readi32unsafe(hdr[8:])
	opcode = OpCode(readi32unsafe(hdr[12:]))
	return length, requestID, responseTo, opcode, true
}

// AppendHeaderStart appends a header with a placeholder length and returns
// the index of the length so it can be fixed with UpdateLength.
func AppendHeaderStart(dst []byte, reqid, respto int32, opcode OpCode) (index int32, b []byte) {
	index, dst = bsoncore.ReserveLength(dst)
	dst = appendi32(dst, reqid)
	dst = appendi32(dst, respto)
	dst = appendi32(dst, int32(opcode))
	return index, dst
}

// AppendHeader appends a complete header to dst.
func AppendHeader(dst []byte, length, reqid, respto int32, opcode OpCode) []byte {
	dst = appendi32(dst, length)
	dst = appendi32(dst, reqid)
	dst = appendi32(dst, respto)
	return appendi32(dst, int32(opcode))
}

// UpdateLength writes the length of the message started at index.
func UpdateLength(dst []byte, index int32) []byte {
	return bsoncore.UpdateLength(dst, index, int32(len(dst[index:])))
}

// ReadDocuments reads a sequence of BSON documents filling src.
func ReadDocuments(src []byte) ([]bsoncore.Document, error) {
	var docs []bsoncore.Document
	for len(src) > 0 {
		doc, rem, ok := bsoncore.ReadDocument(src)
		if !ok {
			return nil, errors.Wrap(ErrMalformed, "truncated document")
		}
		docs = append(docs, doc)
		src = rem
	}
	return docs, nil
}

func appendi32(dst []byte, i32 int32) []byte {
	return append(dst, byte(i32), byte(i32>>8), byte(i32>>16), byte(i32>>24))
}

func appendCString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	return append(dst, 0x00)
}

func readi32(src []byte) (int32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return readi32unsafe(src), src[4:], true
}

func readi32unsafe(src []byte) int32 {
	return int32(src[0]) | int32(src[1])<<8 | int32(src[2])<<16 | int32(src[3])<<24
}

func readi64(src []byte) (int64, []byte, bool) {
	if len(src) < 8 {
		return 0, src, false
	}
	i64 := int64(src[0]) | int64(src[1])<<8 | int64(src[2])<<16 | int64(src[3])<<24 |
		int64(src[4])<<32 | int64(src[5])<<40 | int64(src[6])<<48 | int64(src[7])<<56
	return i64, src[8:], true
}

func readCString(src []byte) (string, []byte, bool) {
	for i, b := range src {
		if b == 0x00 {
			return string(src[:i]), src[i+1:], true
		}
	}
	return "", src, false
}
