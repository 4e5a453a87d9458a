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
	"github.com/ikmak/mongo-bulkwrite/core/description"
	"github.com/ikmak/mongo-bulkwrite/core/result"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

var testNS = core.Namespace{DB: "db", Collection: "coll"}

func serverWithWire(max int32) description.Server {
	return description.Server{
		Addr:            "localhost:27017",
		MaxBatchCount:   1000,
		MaxDocumentSize: 16 * 1024 * 1024,
		MaxMessageSize:  48000000,
		WireVersion:     &description.VersionRange{Min: 0, Max: max},
	}
}

type sentCommand struct {
	db       string
	cmd      bsoncore.Document
	handling ResponseHandling
}

type legacyCall struct {
	kind            RequestType
	doc             bsoncore.Document
	filter          bsoncore.Document
	update          bsoncore.Document
	multi           bool
	upsert          bool
	continueOnError bool
	wc              *writeconcern.WriteConcern
}

// fakeChannel records what is sent to it. respond answers commands and
// legacy answers legacy writes; when nil every request succeeds.
type fakeChannel struct {
	desc     description.Server
	respond  func(n int, cmd bsoncore.Document) (bsoncore.Document, error)
	legacy   func(n int, call legacyCall) (*result.WriteConcernResult, error)
	commands []sentCommand
	calls    []legacyCall
	closed   int
}

func newFakeChannel(wire int32) *fakeChannel {
	return &fakeChannel{desc: serverWithWire(wire)}
}

func (c *fakeChannel) Description() description.Server { return c.desc }

func (c *fakeChannel) ConnectionID() string { return "localhost:27017[-1]" }

func (c *fakeChannel) Command(_ context.Context, db string, cmd bsoncore.Document, handling ResponseHandling) (bsoncore.Document, error) {
	c.commands = append(c.commands, sentCommand{db: db, cmd: cmd, handling: handling})
	if handling == ResponseIgnore {
		return nil, nil
	}
	if c.respond != nil {
		return c.respond(len(c.commands)-1, cmd)
	}
	return okN(len(commandRequests(cmd))), nil
}

func (c *fakeChannel) legacyWrite(call legacyCall) (*result.WriteConcernResult, error) {
	c.calls = append(c.calls, call)
	if !call.wc.Acknowledged() {
		return nil, nil
	}
	if c.legacy != nil {
		return c.legacy(len(c.calls)-1, call)
	}
	return &result.WriteConcernResult{DocumentsAffected: 1}, nil
}

func (c *fakeChannel) Insert(_ context.Context, _ core.Namespace, doc bsoncore.Document, wc *writeconcern.WriteConcern, continueOnError bool) (*result.WriteConcernResult, error) {
	return c.legacyWrite(legacyCall{kind: InsertRequestType, doc: doc, wc: wc, continueOnError: continueOnError})
}

func (c *fakeChannel) Update(_ context.Context, _ core.Namespace, filter, update bsoncore.Document, multi, upsert bool, wc *writeconcern.WriteConcern) (*result.WriteConcernResult, error) {
	return c.legacyWrite(legacyCall{kind: UpdateRequestType, filter: filter, update: update, multi: multi, upsert: upsert, wc: wc})
}

func (c *fakeChannel) Delete(_ context.Context, _ core.Namespace, filter bsoncore.Document, multi bool, wc *writeconcern.WriteConcern) (*result.WriteConcernResult, error) {
	return c.legacyWrite(legacyCall{kind: DeleteRequestType, filter: filter, multi: multi, wc: wc})
}

func (c *fakeChannel) Close() error {
	c.closed++
	return nil
}

type fakeSource struct {
	ch       *fakeChannel
	acquired int
}

func (s *fakeSource) AcquireChannel(context.Context, core.Namespace, bool) (ChannelHandle, error) {
	s.acquired++
	return s.ch, nil
}

func idDoc(id int) bsoncore.Document {
	return bsoncore.NewDocumentBuilder().AppendInt32("_id", int32(id)).Build()
}

func inserts(n int) []WriteRequest {
	reqs := make([]WriteRequest, n)
	for i := range reqs {
		reqs[i] = &InsertRequest{Document: idDoc(i)}
	}
	return reqs
}

func updateReq(id int) *UpdateRequest {
	return &UpdateRequest{
		Filter: idDoc(id),
		Update: bsoncore.NewDocumentBuilder().
			AppendDocument("$set", bsoncore.NewDocumentBuilder().AppendInt32("x", 1).Build()).
			Build(),
	}
}

func deleteReq(id int) *DeleteRequest {
	return &DeleteRequest{Filter: idDoc(id), Limit: 1}
}

func okN(n int) bsoncore.Document {
	return bsoncore.NewDocumentBuilder().AppendInt32("ok", 1).AppendInt32("n", int32(n)).Build()
}

func writeErrorDoc(index int, code int32, msg string) bsoncore.Document {
	return bsoncore.NewDocumentBuilder().
		AppendInt32("index", int32(index)).
		AppendInt32("code", code).
		AppendString("errmsg", msg).
		Build()
}

func responseWithWriteErrors(n int, wes ...bsoncore.Document) bsoncore.Document {
	arr := bsoncore.NewArrayBuilder()
	for _, we := range wes {
		arr.AppendDocument(we)
	}
	return bsoncore.NewDocumentBuilder().
		AppendInt32("ok", 1).
		AppendInt32("n", int32(n)).
		AppendArray("writeErrors", arr.Build()).
		Build()
}

// commandRequests returns the request array of a write command.
func commandRequests(cmd bsoncore.Document) []bsoncore.Value {
	for _, key := range []string{"documents", "updates", "deletes"} {
		if arr, ok := cmd.Lookup(key).ArrayOK(); ok {
			vals, err := arr.Values()
			if err != nil {
				panic(err)
			}
			return vals
		}
	}
	return nil
}

func commandKeys(t *testing.T, cmd bsoncore.Document) []string {
	t.Helper()
	elems, err := cmd.Elements()
	require.NoError(t, err)
	keys := make([]string, 0, len(elems))
	for _, e := range elems {
		keys = append(keys, e.Key())
	}
	return keys
}

func commandW(t *testing.T, cmd bsoncore.Document) interface{} {
	t.Helper()
	wc, err := cmd.LookupErr("writeConcern")
	if err != nil {
		return nil
	}
	return wc.Document().Lookup("w").Int32()
}
