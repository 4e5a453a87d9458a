// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"strconv"

	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// arrayEncoder appends the documents of a BSON array element to a command
// document under construction. It remembers where each element starts so
// the last one can be taken back.
type arrayEncoder struct {
	buf        []byte
	arrayIndex int32
	start      int
	last       int
	count      int
}

// startArray appends the header of an array element named key to dst.
func startArray(dst []byte, key string) *arrayEncoder {
	idx, dst := bsoncore.AppendArrayElementStart(dst, key)
	return &arrayEncoder{buf: dst, arrayIndex: idx, start: len(dst), last: -1}
}

// writeDocument appends doc as the next element of the array.
func (e *arrayEncoder) writeDocument(doc []byte) {
	e.last = len(e.buf)
	e.buf = bsoncore.AppendDocumentElement(e.buf, strconv.Itoa(e.count), doc)
	e.count++
}

// takeLastWrittenElement truncates the last element and returns its value.
func (e *arrayEncoder) takeLastWrittenElement() []byte {
	if e.last < 0 {
		return nil
	}
	elem := bsoncore.Element(e.buf[e.last:])
	value := append([]byte(nil), elem.Value().Data...)
	e.buf = e.buf[:e.last]
	e.count--
	e.last = -1
	return value
}

// length is the number of bytes written to the array since it was started.
func (e *arrayEncoder) length() int {
	return len(e.buf) - e.start
}

// finish closes the array and returns the enclosing buffer.
func (e *arrayEncoder) finish() ([]byte, error) {
	return bsoncore.AppendArrayEnd(e.buf, e.arrayIndex)
}
