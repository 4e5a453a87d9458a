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

// Msg is a parsed OP_MSG message.
type Msg struct {
	RequestID  int32
	ResponseTo int32
	Flags      MsgFlag
	Body       bsoncore.Document
	Sequences  []Sequence
}

// Sequence is a kind 1 section of an OP_MSG message.
type Sequence struct {
	Identifier string
	Documents  []bsoncore.Document
}

// AppendMsg appends an OP_MSG message whose only section is body.
func AppendMsg(dst []byte, reqid, respto int32, flags MsgFlag, body bsoncore.Document) []byte {
	idx, dst := AppendHeaderStart(dst, reqid, respto, OpMsg)
	dst = appendi32(dst, int32(flags))
	dst = append(dst, byte(SingleDocument))
	dst = append(dst, body...)
	return UpdateLength(dst, idx)
}

// ReadMsg parses an OP_MSG message. Checksums are skipped, not verified.
func ReadMsg(wm []byte) (Msg, error) {
	var m Msg
	length, reqid, respto, opcode, ok := ParseHeader(wm)
	if !ok || opcode != OpMsg {
		return m, errors.Wrapf(ErrMalformed, "expected OP_MSG, got %v", opcode)
	}
	if int(length) != len(wm) {
		return m, errors.Wrapf(ErrMalformed, "declared length %d, have %d", length, len(wm))
	}
	m.RequestID, m.ResponseTo = reqid, respto
	src := wm[HeaderLength:]

	var flags int32
	if flags, src, ok = readi32(src); !ok {
		return m, errors.Wrap(ErrMalformed, "missing flag bits")
	}
	m.Flags = MsgFlag(flags)
	if m.Flags&ChecksumPresent == ChecksumPresent {
		if len(src) < 4 {
			return m, errors.Wrap(ErrMalformed, "missing checksum")
		}
		src = src[:len(src)-4]
	}

	for len(src) > 0 {
		kind := SectionType(src[0])
		src = src[1:]
		switch kind {
		case SingleDocument:
			if m.Body, src, ok = bsoncore.ReadDocument(src); !ok {
				return m, errors.Wrap(ErrMalformed, "truncated body section")
			}
		case DocumentSequence:
			size, rem, ok := readi32(src)
			if !ok || int(size) > len(src) || size < 4 {
				return m, errors.Wrap(ErrMalformed, "truncated document sequence")
			}
			var seq Sequence
			if seq.Identifier, rem, ok = readCString(rem); !ok {
				return m, errors.Wrap(ErrMalformed, "missing sequence identifier")
			}
			docs, err := ReadDocuments(rem[:int(size)-4-len(seq.Identifier)-1])
			if err != nil {
				return m, err
			}
			seq.Documents = docs
			m.Sequences = append(m.Sequences, seq)
			src = src[size:]
		default:
			return m, errors.Wrapf(ErrMalformed, "unknown section type %d", kind)
		}
	}
	if m.Body == nil {
		return m, errors.Wrap(ErrMalformed, "missing body section")
	}
	return m, nil
}
