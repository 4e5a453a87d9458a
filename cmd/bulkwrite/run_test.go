// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/ikmak/mongo-bulkwrite/internal/drivertest"
	"github.com/ikmak/mongo-bulkwrite/mongo"
	"github.com/ikmak/mongo-bulkwrite/mongo/options"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

const testModels = `{"insertOne": {"document": {"_id": 1}}}
{"insertOne": {"document": {"_id": 2}}}
{"deleteOne": {"filter": {"_id": 1}}}
`

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}

func testConfig() config {
	return config{uri: "mongodb://localhost:27017", db: "db", coll: "c"}
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("report", func(t *testing.T) {
		s := drivertest.NewServer(8)
		defer s.Close()

		var out bytes.Buffer
		err := run(ctx, testConfig(), strings.NewReader(testModels), &out, testLogger(), options.Client().SetDialer(s))
		require.NoError(t, err)

		assert.Contains(t, out.String(), `"insertedCount": 2`)
		assert.Contains(t, out.String(), `"deletedCount": 1`)
		assert.Contains(t, out.String(), "2 batches")
		assert.Len(t, s.Requests(), 2)
	})
	t.Run("batch limits", func(t *testing.T) {
		s := drivertest.NewServer(8)
		defer s.Close()

		cfg := testConfig()
		cfg.unordered = true
		cfg.maxBatchCount = 1
		var out bytes.Buffer
		err := run(ctx, cfg, strings.NewReader(testModels), &out, testLogger(), options.Client().SetDialer(s))
		require.NoError(t, err)

		reqs := s.Requests()
		require.Len(t, reqs, 3)
		for _, req := range reqs {
			assert.False(t, req.Command.Lookup("ordered").Boolean())
			assert.Equal(t, 1, drivertest.RequestCount(req.Command))
		}
		assert.Contains(t, out.String(), "3 batches")
	})
	t.Run("write errors are reported", func(t *testing.T) {
		s := drivertest.NewServer(8)
		defer s.Close()
		s.Handler = func(req drivertest.Request) bsoncore.Document {
			if req.CommandName() != "insert" {
				return drivertest.OK(drivertest.RequestCount(req.Command))
			}
			return bsoncore.NewDocumentBuilder().
				AppendInt32("ok", 1).
				AppendInt32("n", 1).
				AppendArray("writeErrors", bsoncore.NewArrayBuilder().
					AppendDocument(bsoncore.NewDocumentBuilder().
						AppendInt32("index", 1).
						AppendInt32("code", 11000).
						AppendString("errmsg", "duplicate key").
						Build()).
					Build()).
				Build()
		}

		var out bytes.Buffer
		err := run(ctx, testConfig(), strings.NewReader(testModels), &out, testLogger(), options.Client().SetDialer(s))
		var exc mongo.BulkWriteException
		require.ErrorAs(t, err, &exc)
		require.Len(t, exc.WriteErrors, 1)
		assert.Equal(t, 11000, exc.WriteErrors[0].Code)

		assert.Contains(t, out.String(), `"errmsg": "duplicate key"`)
		assert.Contains(t, out.String(), `"unprocessed": 1`)
	})
	t.Run("unacknowledged", func(t *testing.T) {
		s := drivertest.NewServer(8)
		defer s.Close()

		cfg := testConfig()
		cfg.w = "0"
		var out bytes.Buffer
		err := run(ctx, cfg, strings.NewReader(testModels), &out, testLogger(), options.Client().SetDialer(s))
		require.NoError(t, err)
		assert.Contains(t, out.String(), `"acknowledged": false`)
	})
	t.Run("no models", func(t *testing.T) {
		err := run(ctx, testConfig(), strings.NewReader("# nothing\n"), io.Discard, testLogger())
		assert.ErrorIs(t, err, ErrNoModels)
	})
	t.Run("invalid write concern", func(t *testing.T) {
		cfg := testConfig()
		cfg.w = "-1"
		err := run(ctx, cfg, strings.NewReader(testModels), io.Discard, testLogger())
		assert.Error(t, err)
	})
}

func TestRootCmd(t *testing.T) {
	t.Run("requires collection", func(t *testing.T) {
		cmd := newRootCmd()
		cmd.SetArgs([]string{})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		assert.Error(t, cmd.Execute())
	})
	t.Run("invalid log level", func(t *testing.T) {
		cmd := newRootCmd()
		cmd.SetArgs([]string{"--coll", "c", "--log-level", "loud"})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
