// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package channel sends bulk write commands and legacy write opcodes over a
// pooled connection.
package channel

import (
	"context"
	"io"
	"time"

	"github.com/ikmak/mongo-bulkwrite/core"
	"github.com/ikmak/mongo-bulkwrite/core/bulk"
	"github.com/ikmak/mongo-bulkwrite/core/connection"
	"github.com/ikmak/mongo-bulkwrite/core/description"
	"github.com/ikmak/mongo-bulkwrite/core/result"
	"github.com/ikmak/mongo-bulkwrite/core/wiremessage"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.Level = logrus.PanicLevel
	return l
}()

var ackResponse = bsoncore.NewDocumentBuilder().AppendInt32("ok", 1).Build()

// Channel implements bulk.ChannelHandle over a single connection. Closing it
// closes the connection, which returns a pooled connection to its pool.
type Channel struct {
	conn    connection.Connection
	monitor *event.CommandMonitor
	logger  logrus.FieldLogger
}

var _ bulk.ChannelHandle = (*Channel)(nil)

// New returns a channel over conn. monitor and logger may be nil.
func New(conn connection.Connection, monitor *event.CommandMonitor, logger logrus.FieldLogger) *Channel {
	if logger == nil {
		logger = discard
	}
	return &Channel{
		conn:    conn,
		monitor: monitor,
		logger:  logger.WithField("connection", conn.ID()),
	}
}

// Description implements the bulk.Channel interface.
func (c *Channel) Description() description.Server { return c.conn.Description() }

// ConnectionID implements the bulk.Channel interface.
func (c *Channel) ConnectionID() string { return c.conn.ID() }

// Close implements the bulk.ChannelHandle interface.
func (c *Channel) Close() error { return c.conn.Close() }

// Command implements the bulk.Channel interface. Servers that support OP_MSG
// receive it with the $db field; older servers receive an OP_QUERY against
// the $cmd collection of db. With bulk.ResponseIgnore an OP_MSG is sent with
// moreToCome and no reply is read, while an OP_QUERY reply is read and
// dropped.
func (c *Channel) Command(ctx context.Context, db string, cmd bsoncore.Document, handling bulk.ResponseHandling) (bsoncore.Document, error) {
	ignore := handling == bulk.ResponseIgnore
	reqid := wiremessage.NextRequestID()

	var wm []byte
	opMsg := c.Description().Capabilities().OpMsg
	if opMsg {
		body, err := appendDB(cmd, db)
		if err != nil {
			return nil, err
		}
		var flags wiremessage.MsgFlag
		if ignore {
			flags |= wiremessage.MoreToCome
		}
		wm = wiremessage.AppendMsg(nil, reqid, 0, flags, body)
	} else {
		wm = wiremessage.AppendQuery(nil, reqid, 0, db+".$cmd", 0, -1, cmd)
	}

	started := c.startedEvent(ctx, db, cmd, reqid)
	if err := c.conn.WriteWireMessage(ctx, wm); err != nil {
		c.failedEvent(ctx, cmd, reqid, started, err)
		return nil, err
	}
	if ignore && opMsg {
		c.succeededEvent(ctx, cmd, reqid, started, ackResponse)
		return nil, nil
	}

	reply, err := c.readReply(ctx, reqid)
	if err == nil && !ignore {
		err = extractError(reply)
	}
	if err != nil {
		c.failedEvent(ctx, cmd, reqid, started, err)
		return nil, err
	}
	c.succeededEvent(ctx, cmd, reqid, started, reply)
	if ignore {
		return nil, nil
	}
	return reply, nil
}

func (c *Channel) readReply(ctx context.Context, reqid int32) (bsoncore.Document, error) {
	wm, err := c.conn.ReadWireMessage(ctx, nil)
	if err != nil {
		return nil, err
	}

	_, _, respto, opcode, ok := wiremessage.ParseHeader(wm)
	if !ok {
		return nil, ResponseError{Message: "malformed reply", Wrapped: wiremessage.ErrMalformed}
	}
	if respto != reqid {
		return nil, ResponseError{Message: "reply to another request"}
	}

	switch opcode {
	case wiremessage.OpMsg:
		msg, err := wiremessage.ReadMsg(wm)
		if err != nil {
			return nil, ResponseError{Message: "malformed OP_MSG reply", Wrapped: err}
		}
		return msg.Body, nil
	case wiremessage.OpReply:
		reply, err := wiremessage.ReadReply(wm)
		if err != nil {
			return nil, ResponseError{Message: "malformed OP_REPLY", Wrapped: err}
		}
		switch len(reply.Documents) {
		case 0:
			return nil, ErrNoCommandResponse
		case 1:
		default:
			return nil, ErrMultiDocCommandResponse
		}
		if reply.Flags&wiremessage.QueryFailure == wiremessage.QueryFailure {
			return nil, QueryFailureError{Message: "command failure", Response: reply.Documents[0]}
		}
		return reply.Documents[0], nil
	}
	return nil, ResponseError{Message: "unexpected reply opcode " + opcode.String()}
}

// appendDB returns a copy of cmd with a $db field.
func appendDB(cmd bsoncore.Document, db string) (bsoncore.Document, error) {
	if len(cmd) < 5 {
		return nil, ResponseError{Message: "command document is too short"}
	}
	idx, dst := bsoncore.AppendDocumentStart(make([]byte, 0, len(cmd)+len(db)+11))
	dst = append(dst, cmd[4:len(cmd)-1]...)
	dst = bsoncore.AppendStringElement(dst, "$db", db)
	return bsoncore.AppendDocumentEnd(dst, idx)
}

// Insert implements the bulk.Channel interface.
func (c *Channel) Insert(ctx context.Context, ns core.Namespace, doc bsoncore.Document, wc *writeconcern.WriteConcern, continueOnError bool) (*result.WriteConcernResult, error) {
	var flags wiremessage.InsertFlag
	if continueOnError {
		flags |= wiremessage.ContinueOnError
	}
	wm := wiremessage.AppendInsert(nil, wiremessage.NextRequestID(), flags, ns.FullName(), doc)
	return c.legacyWrite(ctx, ns, "insert", wm, wc)
}

// Update implements the bulk.Channel interface.
func (c *Channel) Update(ctx context.Context, ns core.Namespace, filter, update bsoncore.Document, multi, upsert bool, wc *writeconcern.WriteConcern) (*result.WriteConcernResult, error) {
	var flags wiremessage.UpdateFlag
	if multi {
		flags |= wiremessage.MultiUpdate
	}
	if upsert {
		flags |= wiremessage.Upsert
	}
	wm := wiremessage.AppendUpdate(nil, wiremessage.NextRequestID(), ns.FullName(), flags, filter, update)
	return c.legacyWrite(ctx, ns, "update", wm, wc)
}

// Delete implements the bulk.Channel interface.
func (c *Channel) Delete(ctx context.Context, ns core.Namespace, filter bsoncore.Document, multi bool, wc *writeconcern.WriteConcern) (*result.WriteConcernResult, error) {
	var flags wiremessage.DeleteFlag
	if !multi {
		flags |= wiremessage.SingleRemove
	}
	wm := wiremessage.AppendDelete(nil, wiremessage.NextRequestID(), ns.FullName(), flags, filter)
	return c.legacyWrite(ctx, ns, "delete", wm, wc)
}

// legacyWrite sends wm and, for acknowledged writes, a getLastError with the
// fields of wc.
func (c *Channel) legacyWrite(ctx context.Context, ns core.Namespace, op string, wm []byte, wc *writeconcern.WriteConcern) (*result.WriteConcernResult, error) {
	log := c.logger.WithFields(logrus.Fields{"ns": ns.FullName(), "op": op})
	if err := c.conn.WriteWireMessage(ctx, wm); err != nil {
		return nil, err
	}
	if !wc.Acknowledged() {
		log.Debug("sent unacknowledged legacy write")
		return nil, nil
	}

	idx, gle := bsoncore.AppendDocumentStart(nil)
	gle = bsoncore.AppendInt32Element(gle, "getLastError", 1)
	gle, err := wc.AppendGetLastErrorFields(gle)
	if err != nil {
		return nil, err
	}
	gle, err = bsoncore.AppendDocumentEnd(gle, idx)
	if err != nil {
		return nil, err
	}

	reply, err := c.legacyCommand(ctx, ns.DB, gle)
	if err != nil {
		return nil, err
	}
	wcr, err := result.NewWriteConcernResult(reply)
	if err != nil {
		return nil, err
	}
	if err := result.NewWriteConcernError(c.ConnectionID(), wcr); err != nil {
		log.WithError(err).Debug("legacy write failed")
		return wcr, err
	}
	return wcr, nil
}

// legacyCommand runs cmd as an OP_QUERY, which is what servers without
// write commands understand.
func (c *Channel) legacyCommand(ctx context.Context, db string, cmd bsoncore.Document) (bsoncore.Document, error) {
	reqid := wiremessage.NextRequestID()
	started := c.startedEvent(ctx, db, cmd, reqid)
	if err := c.conn.WriteWireMessage(ctx, wiremessage.AppendQuery(nil, reqid, 0, db+".$cmd", 0, -1, cmd)); err != nil {
		c.failedEvent(ctx, cmd, reqid, started, err)
		return nil, err
	}
	reply, err := c.readReply(ctx, reqid)
	if err == nil {
		err = extractError(reply)
	}
	if err != nil {
		c.failedEvent(ctx, cmd, reqid, started, err)
		return nil, err
	}
	c.succeededEvent(ctx, cmd, reqid, started, reply)
	return reply, nil
}

func commandName(cmd bsoncore.Document) string {
	elems, err := cmd.Elements()
	if err != nil || len(elems) == 0 {
		return ""
	}
	return elems[0].Key()
}

func (c *Channel) startedEvent(ctx context.Context, db string, cmd bsoncore.Document, reqid int32) time.Time {
	if c.monitor != nil && c.monitor.Started != nil {
		c.monitor.Started(ctx, &event.CommandStartedEvent{
			Command:      cmd,
			DatabaseName: db,
			CommandName:  commandName(cmd),
			RequestID:    int64(reqid),
			ConnectionID: c.conn.ID(),
		})
	}
	return time.Now()
}

func (c *Channel) finishedEvent(cmd bsoncore.Document, reqid int32, started time.Time) event.CommandFinishedEvent {
	return event.CommandFinishedEvent{
		Duration:     time.Since(started),
		CommandName:  commandName(cmd),
		RequestID:    int64(reqid),
		ConnectionID: c.conn.ID(),
	}
}

func (c *Channel) succeededEvent(ctx context.Context, cmd bsoncore.Document, reqid int32, started time.Time, reply bsoncore.Document) {
	if c.monitor == nil || c.monitor.Succeeded == nil {
		return
	}
	c.monitor.Succeeded(ctx, &event.CommandSucceededEvent{
		CommandFinishedEvent: c.finishedEvent(cmd, reqid, started),
		Reply:                reply,
	})
}

func (c *Channel) failedEvent(ctx context.Context, cmd bsoncore.Document, reqid int32, started time.Time, err error) {
	c.logger.WithError(err).WithField("command", commandName(cmd)).Debug("command failed")
	if c.monitor == nil || c.monitor.Failed == nil {
		return
	}
	c.monitor.Failed(ctx, &event.CommandFailedEvent{
		CommandFinishedEvent: c.finishedEvent(cmd, reqid, started),
		Failure:              err.Error(),
	})
}

// PoolBinding is a bulk.ChannelSource handing out channels over connections
// from a single pool.
type PoolBinding struct {
	Pool    connection.Pool
	Monitor *event.CommandMonitor
	Logger  logrus.FieldLogger
}

var _ bulk.ChannelSource = PoolBinding{}

// AcquireChannel implements the bulk.ChannelSource interface. Every channel
// goes to the pool's server, so forWrite is not consulted.
func (b PoolBinding) AcquireChannel(ctx context.Context, ns core.Namespace, _ bool) (bulk.ChannelHandle, error) {
	conn, err := b.Pool.Get(ctx)
	if err != nil {
		return nil, err
	}
	return New(conn, b.Monitor, b.Logger), nil
}
