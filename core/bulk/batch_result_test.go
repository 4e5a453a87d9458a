// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"testing"

	"github.com/ikmak/mongo-bulkwrite/core/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

func upsertedDoc(index int, id string) bsoncore.Document {
	return bsoncore.NewDocumentBuilder().
		AppendInt32("index", int32(index)).
		AppendString("_id", id).
		Build()
}

func TestBatchResultFromCommandResponse(t *testing.T) {
	t.Run("update counts and upserts", func(t *testing.T) {
		reqs := []WriteRequest{updateReq(0), updateReq(1), updateReq(2)}
		response := bsoncore.NewDocumentBuilder().
			AppendInt32("ok", 1).
			AppendInt32("n", 3).
			AppendInt32("nModified", 1).
			AppendArray("upserted", bsoncore.NewArrayBuilder().AppendDocument(upsertedDoc(2, "x")).Build()).
			Build()

		br, err := newBatchResultFromCommandResponse(false, UpdateRequestType, reqs, response, NewRangeIndexMap(0, 0, 3))
		require.NoError(t, err)
		assert.Equal(t, int64(2), br.matchedCount)
		require.NotNil(t, br.modifiedCount)
		assert.Equal(t, int64(1), *br.modifiedCount)
		require.Len(t, br.upserts, 1)
		assert.Equal(t, 2, br.upserts[0].Index)
		assert.Equal(t, "x", br.upserts[0].ID.StringValue())
		assert.Equal(t, reqs, br.processed)
		assert.Empty(t, br.unprocessed)
	})
	t.Run("update without nModified", func(t *testing.T) {
		br, err := newBatchResultFromCommandResponse(true, UpdateRequestType, []WriteRequest{updateReq(0)}, okN(1), NewRangeIndexMap(0, 0, 1))
		require.NoError(t, err)
		assert.Nil(t, br.modifiedCount)
		assert.Equal(t, int64(1), br.matchedCount)
	})
	t.Run("delete", func(t *testing.T) {
		br, err := newBatchResultFromCommandResponse(true, DeleteRequestType, []WriteRequest{deleteReq(0), deleteReq(1)}, okN(2), NewRangeIndexMap(0, 0, 2))
		require.NoError(t, err)
		assert.Equal(t, int64(2), br.deletedCount)
		require.NotNil(t, br.modifiedCount)
		assert.Zero(t, *br.modifiedCount)
	})
	t.Run("ordered write error", func(t *testing.T) {
		reqs := inserts(4)
		response := responseWithWriteErrors(1, writeErrorDoc(1, 11000, "duplicate key"))

		br, err := newBatchResultFromCommandResponse(true, InsertRequestType, reqs, response, NewRangeIndexMap(0, 0, 4))
		require.NoError(t, err)
		assert.Equal(t, int64(1), br.insertedCount)
		require.Len(t, br.writeErrors, 1)
		assert.Equal(t, WriteError{Index: 1, Code: 11000, Message: "duplicate key"}, br.writeErrors[0])
		assert.Equal(t, reqs[:2], br.processed)
		assert.Equal(t, reqs[2:], br.unprocessed)
	})
	t.Run("unordered write errors", func(t *testing.T) {
		reqs := inserts(4)
		response := responseWithWriteErrors(2, writeErrorDoc(0, 11000, "dup"), writeErrorDoc(2, 11000, "dup"))

		br, err := newBatchResultFromCommandResponse(false, InsertRequestType, reqs, response, NewRangeIndexMap(0, 0, 4))
		require.NoError(t, err)
		assert.Len(t, br.writeErrors, 2)
		assert.Equal(t, reqs, br.processed)
		assert.Empty(t, br.unprocessed)
	})
	t.Run("write concern error", func(t *testing.T) {
		wce := bsoncore.NewDocumentBuilder().
			AppendInt32("code", 64).
			AppendString("codeName", "WriteConcernFailed").
			AppendString("errmsg", "waiting for replication timed out").
			AppendDocument("errInfo", bsoncore.NewDocumentBuilder().AppendBoolean("wtimeout", true).Build()).
			Build()
		response := bsoncore.NewDocumentBuilder().
			AppendInt32("ok", 1).
			AppendInt32("n", 1).
			AppendDocument("writeConcernError", wce).
			Build()

		br, err := newBatchResultFromCommandResponse(true, InsertRequestType, inserts(1), response, NewRangeIndexMap(0, 0, 1))
		require.NoError(t, err)
		require.NotNil(t, br.writeConcernError)
		assert.Equal(t, int32(64), br.writeConcernError.Code)
		assert.Equal(t, "WriteConcernFailed", br.writeConcernError.Name)
		assert.Equal(t, "waiting for replication timed out", br.writeConcernError.Message)
		assert.True(t, br.writeConcernError.Details.Lookup("wtimeout").Boolean())
		assert.Equal(t, response, br.writeConcernError.Response)
		assert.False(t, br.hasWriteErrors())
	})
	t.Run("malformed writeErrors", func(t *testing.T) {
		response := bsoncore.NewDocumentBuilder().AppendInt32("ok", 1).AppendString("writeErrors", "oops").Build()
		_, err := newBatchResultFromCommandResponse(true, InsertRequestType, inserts(1), response, NewRangeIndexMap(0, 0, 1))
		require.Error(t, err)
	})
}

func gleResult(t *testing.T, build func(b *bsoncore.DocumentBuilder)) *result.WriteConcernResult {
	t.Helper()
	b := bsoncore.NewDocumentBuilder().AppendInt32("ok", 1)
	build(b)
	wcr, err := result.NewWriteConcernResult(b.Build())
	require.NoError(t, err)
	return wcr
}

func TestBatchResultFromLegacy(t *testing.T) {
	t.Run("insert counts one", func(t *testing.T) {
		wcr := gleResult(t, func(b *bsoncore.DocumentBuilder) { b.AppendInt32("n", 0) })
		br := newBatchResultFromLegacy(inserts(1)[0], wcr, false, NewRangeIndexMap(0, 4, 1))
		assert.Equal(t, int64(1), br.insertedCount)
		assert.False(t, br.hasWriteErrors())
	})
	t.Run("insert unacknowledged counts one", func(t *testing.T) {
		br := newBatchResultFromLegacy(inserts(1)[0], nil, false, NewRangeIndexMap(0, 0, 1))
		assert.Equal(t, int64(1), br.insertedCount)
	})
	t.Run("duplicate key", func(t *testing.T) {
		wcr := gleResult(t, func(b *bsoncore.DocumentBuilder) {
			b.AppendInt32("n", 0).AppendString("err", "E11000 duplicate key").AppendInt32("code", 11000)
		})
		br := newBatchResultFromLegacy(inserts(1)[0], wcr, true, NewRangeIndexMap(0, 0, 1))
		require.Len(t, br.writeErrors, 1)
		we := br.writeErrors[0]
		assert.Equal(t, 0, we.Index)
		assert.Equal(t, int32(11000), we.Code)
		assert.Equal(t, "E11000 duplicate key", we.Message)
		assert.Equal(t, int32(0), we.Details.Lookup("n").Int32())
		for _, key := range []string{"ok", "code", "err"} {
			_, err := we.Details.LookupErr(key)
			assert.Error(t, err, key)
		}
		assert.Zero(t, br.insertedCount)
	})
	t.Run("write error without code", func(t *testing.T) {
		wcr := gleResult(t, func(b *bsoncore.DocumentBuilder) { b.AppendString("err", "boom") })
		br := newBatchResultFromLegacy(deleteReq(0), wcr, true, NewRangeIndexMap(0, 0, 1))
		require.Len(t, br.writeErrors, 1)
		assert.Equal(t, CodeUnknownError, br.writeErrors[0].Code)
	})
	t.Run("write concern error", func(t *testing.T) {
		wcr := gleResult(t, func(b *bsoncore.DocumentBuilder) {
			b.AppendInt32("n", 0).AppendString("err", "timeout").AppendBoolean("wtimeout", true)
		})
		br := newBatchResultFromLegacy(inserts(1)[0], wcr, true, NewRangeIndexMap(0, 0, 1))
		assert.False(t, br.hasWriteErrors())
		require.NotNil(t, br.writeConcernError)
		assert.Equal(t, CodeWriteConcernFailed, br.writeConcernError.Code)
		assert.Equal(t, "timeout", br.writeConcernError.Message)
		assert.True(t, br.writeConcernError.Details.Lookup("wtimeout").Boolean())
		assert.Equal(t, int64(1), br.insertedCount)
	})
	t.Run("upsert id from update document", func(t *testing.T) {
		u := &UpdateRequest{
			Filter:   bsoncore.NewDocumentBuilder().AppendInt32("_id", 7).Build(),
			Update:   bsoncore.NewDocumentBuilder().AppendInt32("_id", 5).AppendInt32("x", 1).Build(),
			IsUpsert: true,
		}
		wcr := gleResult(t, func(b *bsoncore.DocumentBuilder) {
			b.AppendInt32("n", 1).AppendBoolean("updatedExisting", false)
		})
		br := newBatchResultFromLegacy(u, wcr, false, NewRangeIndexMap(0, 0, 1))
		require.Len(t, br.upserts, 1)
		assert.Equal(t, int32(5), br.upserts[0].ID.Int32())
		assert.Zero(t, br.matchedCount)
		assert.Nil(t, br.modifiedCount)
	})
	t.Run("upsert id from filter", func(t *testing.T) {
		u := &UpdateRequest{
			Filter:   bsoncore.NewDocumentBuilder().AppendInt32("_id", 7).Build(),
			Update:   bsoncore.NewDocumentBuilder().AppendDocument("$set", bsoncore.NewDocumentBuilder().AppendInt32("x", 1).Build()).Build(),
			IsUpsert: true,
		}
		wcr := gleResult(t, func(b *bsoncore.DocumentBuilder) {
			b.AppendInt32("n", 1).AppendBoolean("updatedExisting", false)
		})
		br := newBatchResultFromLegacy(u, wcr, false, NewRangeIndexMap(0, 0, 1))
		require.Len(t, br.upserts, 1)
		assert.Equal(t, int32(7), br.upserts[0].ID.Int32())
	})
	t.Run("upsert id reported by server", func(t *testing.T) {
		u := updateReq(3)
		u.IsUpsert = true
		wcr := gleResult(t, func(b *bsoncore.DocumentBuilder) {
			b.AppendInt32("n", 1).AppendBoolean("updatedExisting", false).AppendString("upserted", "abc")
		})
		br := newBatchResultFromLegacy(u, wcr, false, NewRangeIndexMap(0, 0, 1))
		require.Len(t, br.upserts, 1)
		assert.Equal(t, "abc", br.upserts[0].ID.StringValue())
	})
	t.Run("update of existing document", func(t *testing.T) {
		u := updateReq(3)
		u.IsUpsert = true
		wcr := gleResult(t, func(b *bsoncore.DocumentBuilder) {
			b.AppendInt32("n", 1).AppendBoolean("updatedExisting", true)
		})
		br := newBatchResultFromLegacy(u, wcr, false, NewRangeIndexMap(0, 0, 1))
		assert.Empty(t, br.upserts)
		assert.Equal(t, int64(1), br.matchedCount)
	})
}
