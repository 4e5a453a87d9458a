// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"context"

	"github.com/ikmak/mongo-bulkwrite/core"
	"github.com/ikmak/mongo-bulkwrite/core/description"
	"github.com/ikmak/mongo-bulkwrite/core/result"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// ResponseHandling tells a Channel whether the caller needs the reply to a command.
type ResponseHandling uint8

// These are the response handling policies.
const (
	ResponseReturn ResponseHandling = iota
	// ResponseIgnore allows the channel to not wait for a reply. Command
	// then returns a nil document.
	ResponseIgnore
)

// Channel sends write commands and legacy write opcodes to one server. A
// Channel is not safe for concurrent use.
type Channel interface {
	Description() description.Server
	ConnectionID() string

	// Command runs cmd against db. A reply with ok: 0 is returned as an error.
	Command(ctx context.Context, db string, cmd bsoncore.Document, handling ResponseHandling) (bsoncore.Document, error)

	// Insert, Update and Delete send a legacy opcode followed, when wc is
	// acknowledged, by a getLastError. A reply reporting an error is
	// returned as a *result.WriteConcernError. An unacknowledged write
	// returns a nil result.
	Insert(ctx context.Context, ns core.Namespace, doc bsoncore.Document, wc *writeconcern.WriteConcern, continueOnError bool) (*result.WriteConcernResult, error)
	Update(ctx context.Context, ns core.Namespace, filter, update bsoncore.Document, multi, upsert bool, wc *writeconcern.WriteConcern) (*result.WriteConcernResult, error)
	Delete(ctx context.Context, ns core.Namespace, filter bsoncore.Document, multi bool, wc *writeconcern.WriteConcern) (*result.WriteConcernResult, error)
}

// ChannelHandle is a Channel that must be closed to release it.
type ChannelHandle interface {
	Channel
	Close() error
}

// ChannelSource hands out channels to the server that accepts writes for a namespace.
type ChannelSource interface {
	AcquireChannel(ctx context.Context, ns core.Namespace, forWrite bool) (ChannelHandle, error)
}
