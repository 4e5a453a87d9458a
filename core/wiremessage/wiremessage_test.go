// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

func TestLegacyOpcodes(t *testing.T) {
	doc := bsoncore.NewDocumentBuilder().AppendInt32("x", 1).Build()
	update := bsoncore.NewDocumentBuilder().
		AppendDocument("$set", bsoncore.NewDocumentBuilder().AppendInt32("y", 2).Build()).
		Build()

	t.Run("query", func(t *testing.T) {
		wm := AppendQuery(nil, 7, SecondaryOK, "db.$cmd", 0, -1, doc)
		length, reqid, _, opcode, ok := ParseHeader(wm)
		require.True(t, ok)
		assert.Equal(t, int32(len(wm)), length)
		assert.Equal(t, int32(7), reqid)
		assert.Equal(t, OpQuery, opcode)

		q, err := ReadQuery(wm)
		require.NoError(t, err)
		assert.Equal(t, "db.$cmd", q.FullCollectionName)
		assert.Equal(t, int32(-1), q.Limit)
		assert.Equal(t, SecondaryOK, q.Flags)
		assert.Equal(t, doc, q.Query)
	})
	t.Run("insert", func(t *testing.T) {
		wm := AppendInsert(nil, 1, ContinueOnError, "db.coll", doc, doc)
		ins, err := ReadInsert(wm)
		require.NoError(t, err)
		assert.Equal(t, ContinueOnError, ins.Flags)
		assert.Equal(t, "db.coll", ins.FullCollectionName)
		if diff := cmp.Diff([]bsoncore.Document{doc, doc}, ins.Documents); diff != "" {
			t.Errorf("documents differ (-want +got):\n%s", diff)
		}
	})
	t.Run("update", func(t *testing.T) {
		wm := AppendUpdate(nil, 1, "db.coll", Upsert|MultiUpdate, doc, update)
		u, err := ReadUpdate(wm)
		require.NoError(t, err)
		assert.Equal(t, Upsert|MultiUpdate, u.Flags)
		assert.Equal(t, doc, u.Selector)
		assert.Equal(t, update, u.Update)
	})
	t.Run("delete", func(t *testing.T) {
		wm := AppendDelete(nil, 1, "db.coll", SingleRemove, doc)
		d, err := ReadDelete(wm)
		require.NoError(t, err)
		assert.Equal(t, SingleRemove, d.Flags)
		assert.Equal(t, doc, d.Selector)
	})
	t.Run("wrong opcode", func(t *testing.T) {
		wm := AppendDelete(nil, 1, "db.coll", SingleRemove, doc)
		_, err := ReadUpdate(wm)
		require.Error(t, err)
	})
}

func TestReply(t *testing.T) {
	doc := bsoncore.NewDocumentBuilder().AppendDouble("ok", 1).Build()
	wm := AppendReply(nil, 3, 9, AwaitCapable, doc)

	r, err := ReadReply(wm)
	require.NoError(t, err)
	assert.Equal(t, int32(9), r.ResponseTo)
	assert.Equal(t, int32(1), r.NumberReturned)
	assert.Equal(t, doc, r.Documents[0])
	assert.Equal(t, "[AwaitCapable]", r.Flags.String())

	_, err = ReadReply(wm[:len(wm)-2])
	require.Error(t, err)
}

func TestMsg(t *testing.T) {
	body := bsoncore.NewDocumentBuilder().AppendInt32("insert", 1).AppendString("$db", "db").Build()
	wm := AppendMsg(nil, 11, 0, MoreToCome, body)

	m, err := ReadMsg(wm)
	require.NoError(t, err)
	assert.Equal(t, int32(11), m.RequestID)
	assert.Equal(t, MoreToCome, m.Flags)
	assert.Equal(t, body, m.Body)
	assert.Empty(t, m.Sequences)

	t.Run("document sequence", func(t *testing.T) {
		doc := bsoncore.NewDocumentBuilder().AppendInt32("_id", 1).Build()
		idx, wm := AppendHeaderStart(nil, 12, 0, OpMsg)
		wm = appendi32(wm, 0)
		wm = append(wm, byte(SingleDocument))
		wm = append(wm, body...)
		wm = append(wm, byte(DocumentSequence))
		sidx, wm := bsoncore.ReserveLength(wm)
		wm = appendCString(wm, "documents")
		wm = append(wm, doc...)
		wm = append(wm, doc...)
		wm = bsoncore.UpdateLength(wm, sidx, int32(len(wm[sidx:])))
		wm = UpdateLength(wm, idx)

		m, err := ReadMsg(wm)
		require.NoError(t, err)
		require.Len(t, m.Sequences, 1)
		assert.Equal(t, "documents", m.Sequences[0].Identifier)
		assert.Len(t, m.Sequences[0].Documents, 2)
	})
}

func TestCompression(t *testing.T) {
	body := bsoncore.NewDocumentBuilder().
		AppendString("payload", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").
		Build()
	wm := AppendMsg(nil, 5, 0, 0, body)

	for _, name := range []string{"snappy", "zlib", "zstd"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c, err := NewCompressor(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.ID().String())

			compressed, err := AppendCompressed(nil, c, wm)
			require.NoError(t, err)
			_, reqid, _, opcode, ok := ParseHeader(compressed)
			require.True(t, ok)
			assert.Equal(t, OpCompressed, opcode)
			assert.Equal(t, int32(5), reqid)

			out, err := Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, wm, out)
		})
	}

	_, err := NewCompressor("lz4")
	require.Error(t, err)

	out, err := Decompress(wm)
	require.NoError(t, err)
	assert.Equal(t, wm, out)
}
