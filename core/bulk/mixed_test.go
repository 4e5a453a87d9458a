// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"context"
	"testing"

	"github.com/ikmak/mongo-bulkwrite/core"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

func commandName(cmd bsoncore.Document) string {
	elems, err := cmd.Elements()
	if err != nil || len(elems) == 0 {
		return ""
	}
	return elems[0].Key()
}

// respondByVerb reports one match and one modification per update.
func respondByVerb(_ int, cmd bsoncore.Document) (bsoncore.Document, error) {
	count := len(commandRequests(cmd))
	if commandName(cmd) == "update" {
		return bsoncore.NewDocumentBuilder().
			AppendInt32("ok", 1).
			AppendInt32("n", int32(count)).
			AppendInt32("nModified", int32(count)).
			Build(), nil
	}
	return okN(count), nil
}

type failingSource struct{ err error }

func (s failingSource) AcquireChannel(context.Context, core.Namespace, bool) (ChannelHandle, error) {
	return nil, s.err
}

func TestMixedWriteOperation(t *testing.T) {
	ctx := context.Background()

	t.Run("runs share one channel", func(t *testing.T) {
		reqs := mixedRequests("IIUDI")
		ch := newFakeChannel(8)
		ch.respond = respondByVerb
		source := &fakeSource{ch: ch}

		res, err := NewMixedWriteOperation(testNS, reqs).Execute(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, 1, source.acquired)
		assert.Equal(t, 1, ch.closed)

		var verbs []string
		for _, sent := range ch.commands {
			verbs = append(verbs, commandName(sent.cmd))
		}
		assert.Equal(t, []string{"insert", "update", "delete", "insert"}, verbs)

		assert.Equal(t, 5, res.RequestCount())
		assert.Equal(t, reqs, res.ProcessedRequests())
		inserted, _ := res.InsertedCount()
		matched, _ := res.MatchedCount()
		modified, _ := res.ModifiedCount()
		deleted, _ := res.DeletedCount()
		assert.Equal(t, []int64{3, 1, 1, 1}, []int64{inserted, matched, modified, deleted})
	})
	t.Run("ordered skips runs after write errors", func(t *testing.T) {
		reqs := mixedRequests("IIUDI")
		ch := newFakeChannel(8)
		ch.respond = func(n int, cmd bsoncore.Document) (bsoncore.Document, error) {
			if commandName(cmd) == "update" {
				return responseWithWriteErrors(0, writeErrorDoc(0, 2, "bad update")), nil
			}
			return okN(len(commandRequests(cmd))), nil
		}
		source := &fakeSource{ch: ch}

		res, err := NewMixedWriteOperation(testNS, reqs).Execute(ctx, source)
		var bwErr *BulkWriteError
		require.ErrorAs(t, err, &bwErr)
		assert.Len(t, ch.commands, 2)
		assert.Equal(t, 1, ch.closed)
		assert.Equal(t, []WriteError{{Index: 2, Code: 2, Message: "bad update"}}, bwErr.WriteErrors)
		assert.Equal(t, reqs[3:], bwErr.UnprocessedRequests)
		assert.Equal(t, 5, res.RequestCount())
		assert.Equal(t, reqs[:3], res.ProcessedRequests())
	})
	t.Run("unordered maps upserts to caller indexes", func(t *testing.T) {
		reqs := mixedRequests("IUIDUI")
		ch := newFakeChannel(8)
		ch.respond = func(n int, cmd bsoncore.Document) (bsoncore.Document, error) {
			count := len(commandRequests(cmd))
			if commandName(cmd) == "update" {
				return bsoncore.NewDocumentBuilder().
					AppendInt32("ok", 1).
					AppendInt32("n", int32(count)).
					AppendInt32("nModified", 0).
					AppendArray("upserted", bsoncore.NewArrayBuilder().AppendDocument(upsertedDoc(1, "u")).Build()).
					Build(), nil
			}
			return okN(count), nil
		}

		op := NewMixedWriteOperation(testNS, reqs)
		op.Ordered = false
		op.MaxBatchCount = 2
		res, err := op.Execute(ctx, &fakeSource{ch: ch})
		require.NoError(t, err)
		require.Len(t, ch.commands, 4)

		upserts, err := res.Upserts()
		require.NoError(t, err)
		require.Len(t, upserts, 1)
		assert.Equal(t, 4, upserts[0].Index)
		assert.Equal(t, "u", upserts[0].ID.StringValue())

		inserted, _ := res.InsertedCount()
		matched, _ := res.MatchedCount()
		deleted, _ := res.DeletedCount()
		assert.Equal(t, []int64{3, 1, 1}, []int64{inserted, matched, deleted})
		assert.Equal(t, 6, res.RequestCount())
	})
	t.Run("ordered unacknowledged acknowledges all but the last run", func(t *testing.T) {
		ch := newFakeChannel(8)
		op := NewMixedWriteOperation(testNS, mixedRequests("IU"))
		op.WriteConcern = writeconcern.Unacknowledged()

		res, err := op.Execute(ctx, &fakeSource{ch: ch})
		require.NoError(t, err)
		assert.False(t, res.Acknowledged())
		require.Len(t, ch.commands, 2)
		assert.Equal(t, int32(1), commandW(t, ch.commands[0].cmd))
		assert.Equal(t, ResponseReturn, ch.commands[0].handling)
		assert.Equal(t, int32(0), commandW(t, ch.commands[1].cmd))
		assert.Equal(t, ResponseIgnore, ch.commands[1].handling)
	})
	t.Run("legacy server", func(t *testing.T) {
		ch := newFakeChannel(0)
		res, err := NewMixedWriteOperation(testNS, mixedRequests("IUD")).Execute(ctx, &fakeSource{ch: ch})
		require.NoError(t, err)
		require.Len(t, ch.calls, 3)
		assert.Equal(t, []RequestType{InsertRequestType, UpdateRequestType, DeleteRequestType},
			[]RequestType{ch.calls[0].kind, ch.calls[1].kind, ch.calls[2].kind})
		available, err := res.IsModifiedCountAvailable()
		require.NoError(t, err)
		assert.False(t, available)
	})
	t.Run("async", func(t *testing.T) {
		ch := newFakeChannel(8)
		out := NewMixedWriteOperation(testNS, inserts(3)).ExecuteAsync(ctx, &fakeSource{ch: ch})

		outcome, ok := <-out
		require.True(t, ok)
		require.NoError(t, outcome.Err)
		inserted, err := outcome.Result.InsertedCount()
		require.NoError(t, err)
		assert.Equal(t, int64(3), inserted)

		_, ok = <-out
		assert.False(t, ok)
	})
	t.Run("empty", func(t *testing.T) {
		source := &fakeSource{ch: newFakeChannel(8)}
		_, err := NewMixedWriteOperation(testNS, nil).Execute(ctx, source)
		require.Equal(t, ErrEmptyBulkWrite, err)
		assert.Zero(t, source.acquired)
	})
	t.Run("invalid write concern", func(t *testing.T) {
		source := &fakeSource{ch: newFakeChannel(8)}
		op := NewMixedWriteOperation(testNS, inserts(1))
		op.WriteConcern = writeconcern.New(writeconcern.W(-1))
		_, err := op.Execute(ctx, source)
		require.Equal(t, writeconcern.ErrNegativeW, err)
		assert.Zero(t, source.acquired)
	})
	t.Run("acquire failure", func(t *testing.T) {
		failure := errors.New("no servers")
		_, err := NewMixedWriteOperation(testNS, inserts(1)).Execute(ctx, failingSource{err: failure})
		require.ErrorIs(t, err, failure)
	})
}
