// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// Every {_id: int32} document is 14 bytes, and as an array element with a
// one digit key it takes 17.
const elemLen = 17

func serializeInsert(dst []byte, req WriteRequest) ([]byte, error) {
	return append(dst, req.(*InsertRequest).Document...), nil
}

func finishedValues(t *testing.T, enc *arrayEncoder) []bsoncore.Value {
	t.Helper()
	arr, err := enc.finish()
	require.NoError(t, err)
	vals, err := bsoncore.Element(arr).Value().Array().Values()
	require.NoError(t, err)
	return vals
}

func TestArrayEncoder(t *testing.T) {
	enc := startArray(nil, "documents")
	require.Nil(t, enc.takeLastWrittenElement())

	for i := 0; i < 3; i++ {
		enc.writeDocument(idDoc(i))
	}
	assert.Equal(t, 3*elemLen, enc.length())

	taken := enc.takeLastWrittenElement()
	assert.Equal(t, []byte(idDoc(2)), taken)
	assert.Equal(t, 2*elemLen, enc.length())
	assert.Nil(t, enc.takeLastWrittenElement())

	enc.writeDocument(idDoc(9))
	vals := finishedValues(t, enc)
	require.Len(t, vals, 3)
	assert.Equal(t, int32(9), vals[2].Document().Lookup("_id").Int32())
}

func TestBatchSource(t *testing.T) {
	t.Run("length boundary", func(t *testing.T) {
		reqs := inserts(7)
		source := newBatchSource(reqs, true)

		var batches []batch
		for source.hasMore() {
			enc := startArray(nil, "documents")
			b, err := source.nextBatch(enc, serializeInsert, 100, 3*elemLen)
			require.NoError(t, err)
			vals := finishedValues(t, enc)
			require.Len(t, vals, len(b.requests))
			for i, v := range vals {
				assert.Equal(t, int32(b.offset+i), v.Document().Lookup("_id").Int32())
			}
			batches = append(batches, b)
		}

		require.Len(t, batches, 3)
		for i, want := range [][]WriteRequest{reqs[0:3], reqs[3:6], reqs[6:7]} {
			assert.Equal(t, want, batches[i].requests)
			assert.Equal(t, i*3, batches[i].offset)
			assert.Equal(t, i == 2, batches[i].last)
		}
		assert.Equal(t, 3*elemLen, batches[0].length)
	})
	t.Run("overflow starts next batch", func(t *testing.T) {
		reqs := inserts(3)
		source := newBatchSource(reqs, true)

		enc := startArray(nil, "documents")
		b, err := source.nextBatch(enc, serializeInsert, 100, 2*elemLen+5)
		require.NoError(t, err)
		assert.Len(t, b.requests, 2)
		require.NotNil(t, source.pending)
		assert.True(t, source.pending.request == reqs[2])
		assert.Equal(t, []WriteRequest{reqs[2]}, source.remainingRequests())

		calls := 0
		counting := func(dst []byte, req WriteRequest) ([]byte, error) {
			calls++
			return serializeInsert(dst, req)
		}
		enc = startArray(nil, "documents")
		b, err = source.nextBatch(enc, counting, 100, 2*elemLen+5)
		require.NoError(t, err)
		assert.Equal(t, 0, calls, "overflowed request serialized twice")
		assert.Equal(t, []WriteRequest{reqs[2]}, b.requests)
		assert.True(t, b.last)
		assert.False(t, source.hasMore())
	})
	t.Run("count limit", func(t *testing.T) {
		reqs := inserts(5)
		source := newBatchSource(reqs, true)

		var sizes []int
		for source.hasMore() {
			b, err := source.nextBatch(startArray(nil, "documents"), serializeInsert, 2, 1<<20)
			require.NoError(t, err)
			sizes = append(sizes, len(b.requests))
		}
		assert.Equal(t, []int{2, 2, 1}, sizes)
	})
	t.Run("single request too large", func(t *testing.T) {
		source := newBatchSource(inserts(2), true)
		_, err := source.nextBatch(startArray(nil, "documents"), serializeInsert, 100, elemLen-1)
		require.ErrorIs(t, err, ErrRequestTooLarge)
	})
	t.Run("fixed batch too large", func(t *testing.T) {
		source := newBatchSource(inserts(3), false)
		_, err := source.nextBatch(startArray(nil, "documents"), serializeInsert, 2, 1<<20)
		require.Equal(t, ErrNonBatchableRequestsTooLarge, err)
	})
	t.Run("fixed batch that fits", func(t *testing.T) {
		source := newBatchSource(inserts(3), false)
		b, err := source.nextBatch(startArray(nil, "documents"), serializeInsert, 3, 1<<20)
		require.NoError(t, err)
		assert.Len(t, b.requests, 3)
		assert.True(t, b.last)
	})
}
