// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package connection

import (
	"context"
	"runtime"

	"github.com/ikmak/mongo-bulkwrite/core/description"
	"github.com/ikmak/mongo-bulkwrite/core/wiremessage"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// Version is the version reported to servers in the handshake.
const Version = "0.1.0"

const driverName = "mongo-bulkwrite"

// handshake describes the server from its isMaster and buildInfo replies and
// negotiates compression. It is sent uncompressed as OP_QUERY, which every
// server understands.
func (c *connection) handshake(ctx context.Context, cfg *config) error {
	isMaster, err := c.runCommand(ctx, "admin", isMasterCommand(cfg))
	if err != nil {
		return Error{ConnectionID: c.id, Wrapped: err, message: "isMaster failed"}
	}
	buildInfo, err := c.runCommand(ctx, "admin", bsoncore.NewDocumentBuilder().AppendInt32("buildInfo", 1).Build())
	if err != nil {
		return Error{ConnectionID: c.id, Wrapped: err, message: "buildInfo failed"}
	}

	c.desc, err = description.NewServer(c.addr.String(), isMaster, buildInfo)
	if err != nil {
		return Error{ConnectionID: c.id, Wrapped: err, message: "cannot describe server"}
	}

	for _, name := range cfg.compressors {
		for _, supported := range c.desc.Compression {
			if name != supported {
				continue
			}
			if c.compressor, err = wiremessage.NewCompressor(name); err != nil {
				return err
			}
			return nil
		}
	}
	return nil
}

func isMasterCommand(cfg *config) bsoncore.Document {
	client := bsoncore.NewDocumentBuilder().
		AppendDocument("driver", bsoncore.NewDocumentBuilder().
			AppendString("name", driverName).
			AppendString("version", Version).
			Build()).
		AppendDocument("os", bsoncore.NewDocumentBuilder().
			AppendString("type", runtime.GOOS).
			AppendString("architecture", runtime.GOARCH).
			Build()).
		AppendString("platform", runtime.Version())
	if cfg.appName != "" {
		client.AppendDocument("application", bsoncore.NewDocumentBuilder().AppendString("name", cfg.appName).Build())
	}

	compression := bsoncore.NewArrayBuilder()
	for _, name := range cfg.compressors {
		compression.AppendString(name)
	}

	return bsoncore.NewDocumentBuilder().
		AppendInt32("isMaster", 1).
		AppendDocument("client", client.Build()).
		AppendArray("compression", compression.Build()).
		Build()
}

// runCommand sends cmd as an OP_QUERY and returns the reply document.
func (c *connection) runCommand(ctx context.Context, db string, cmd bsoncore.Document) (bsoncore.Document, error) {
	reqid := wiremessage.NextRequestID()
	wm := wiremessage.AppendQuery(nil, reqid, 0, db+".$cmd", 0, -1, cmd)
	if err := c.WriteWireMessage(ctx, wm); err != nil {
		return nil, err
	}
	wm, err := c.ReadWireMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	reply, err := wiremessage.ReadReply(wm)
	if err != nil {
		return nil, err
	}
	if reply.ResponseTo != reqid {
		return nil, errors.Errorf("reply is for request %d, expected %d", reply.ResponseTo, reqid)
	}
	if len(reply.Documents) != 1 {
		return nil, errors.Errorf("expected 1 document in reply, got %d", len(reply.Documents))
	}
	return reply.Documents[0], nil
}
