// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package drivertest provides an in-memory server that speaks enough of the
// wire protocol to test connections, channels and bulk writes end to end.
package drivertest

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/ikmak/mongo-bulkwrite/core/wiremessage"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// Request is a message received by a Server.
type Request struct {
	OpCode wiremessage.OpCode
	// Compressor is the compressor the message arrived with, or CompressorNoOp.
	Compressor wiremessage.CompressorID
	// DB and Command are set for OP_QUERY and OP_MSG commands.
	DB      string
	Command bsoncore.Document
	// MsgFlags are the flags of an OP_MSG.
	MsgFlags wiremessage.MsgFlag

	Insert *wiremessage.Insert
	Update *wiremessage.Update
	Delete *wiremessage.Delete
}

// CommandName returns the name of the command, or "" for legacy writes.
func (r Request) CommandName() string {
	if r.Command == nil {
		return ""
	}
	elems, err := r.Command.Elements()
	if err != nil || len(elems) == 0 {
		return ""
	}
	return elems[0].Key()
}

// Handler answers a command. isMaster and buildInfo are answered by the
// Server itself.
type Handler func(req Request) bsoncore.Document

// Server is an in-memory server. Connections to it are made with
// DialContext, which makes it usable as a connection dialer.
type Server struct {
	IsMaster  bsoncore.Document
	BuildInfo bsoncore.Document
	Handler   Handler

	mu       sync.Mutex
	requests []Request
	dialed   int
	conns    []net.Conn
}

// NewServer returns a server reporting maxWireVersion and the given
// compressors. Commands it does not know are answered with {ok: 1, n: N},
// N being the number of requests in a write command.
func NewServer(maxWireVersion int32, compressors ...string) *Server {
	b := bsoncore.NewDocumentBuilder().
		AppendInt32("ok", 1).
		AppendBoolean("ismaster", true).
		AppendInt32("maxWriteBatchSize", 1000).
		AppendInt32("maxBsonObjectSize", 16*1024*1024).
		AppendInt32("maxMessageSizeBytes", 48000000).
		AppendInt32("minWireVersion", 0).
		AppendInt32("maxWireVersion", maxWireVersion)
	if len(compressors) > 0 {
		arr := bsoncore.NewArrayBuilder()
		for _, c := range compressors {
			arr.AppendString(c)
		}
		b.AppendArray("compression", arr.Build())
	}
	return &Server{
		IsMaster: b.Build(),
		BuildInfo: bsoncore.NewDocumentBuilder().
			AppendInt32("ok", 1).
			AppendString("version", "4.2.0").
			AppendString("gitVersion", "a4b751dcf51dd249c5865812b390cfd1c0129c30").
			Build(),
	}
}

// DialContext returns the client end of a new in-memory connection.
func (s *Server) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, server := net.Pipe()
	s.mu.Lock()
	s.dialed++
	s.conns = append(s.conns, server)
	s.mu.Unlock()
	go s.serve(server)
	return client, nil
}

// Dialed returns the number of connections made to the server.
func (s *Server) Dialed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialed
}

// Requests returns the messages received so far, excluding handshakes.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Close closes every connection made to the server.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) serve(nc net.Conn) {
	defer nc.Close()
	for {
		wm, err := readMessage(nc)
		if err != nil {
			return
		}
		reply, err := s.handle(wm)
		if err != nil {
			return
		}
		if reply == nil {
			continue
		}
		if _, err := nc.Write(reply); err != nil {
			return
		}
	}
}

func readMessage(r io.Reader) ([]byte, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}
	length := int32(binary.LittleEndian.Uint32(size[:]))
	if length < wiremessage.HeaderLength {
		return nil, wiremessage.ErrMalformed
	}
	wm := make([]byte, length)
	copy(wm, size[:])
	if _, err := io.ReadFull(r, wm[4:]); err != nil {
		return nil, err
	}
	return wm, nil
}

// handle processes one message and returns the reply to send, if any.
func (s *Server) handle(wm []byte) ([]byte, error) {
	var compressor wiremessage.CompressorID
	_, reqid, _, opcode, _ := wiremessage.ParseHeader(wm)
	if opcode == wiremessage.OpCompressed {
		compressor = wiremessage.CompressorID(wm[wiremessage.HeaderLength+8])
		var err error
		if wm, err = wiremessage.Decompress(wm); err != nil {
			return nil, err
		}
		_, _, _, opcode, _ = wiremessage.ParseHeader(wm)
	}

	req := Request{OpCode: opcode, Compressor: compressor}
	var reply []byte
	switch opcode {
	case wiremessage.OpQuery:
		q, err := wiremessage.ReadQuery(wm)
		if err != nil {
			return nil, err
		}
		req.DB = strings.TrimSuffix(q.FullCollectionName, ".$cmd")
		req.Command = q.Query
		doc := s.answer(req)
		reply = wiremessage.AppendReply(nil, wiremessage.NextRequestID(), reqid, 0, doc)
	case wiremessage.OpMsg:
		m, err := wiremessage.ReadMsg(wm)
		if err != nil {
			return nil, err
		}
		req.Command = m.Body
		req.MsgFlags = m.Flags
		req.DB, _ = m.Body.Lookup("$db").StringValueOK()
		doc := s.answer(req)
		if m.Flags&wiremessage.MoreToCome == 0 {
			reply = wiremessage.AppendMsg(nil, wiremessage.NextRequestID(), reqid, 0, doc)
		}
	case wiremessage.OpInsert:
		ins, err := wiremessage.ReadInsert(wm)
		if err != nil {
			return nil, err
		}
		req.Insert = &ins
		s.record(req)
	case wiremessage.OpUpdate:
		upd, err := wiremessage.ReadUpdate(wm)
		if err != nil {
			return nil, err
		}
		req.Update = &upd
		s.record(req)
	case wiremessage.OpDelete:
		del, err := wiremessage.ReadDelete(wm)
		if err != nil {
			return nil, err
		}
		req.Delete = &del
		s.record(req)
	default:
		return nil, errors.Errorf("unsupported opcode %v", opcode)
	}

	if reply == nil || compressor == wiremessage.CompressorNoOp {
		return reply, nil
	}
	c, err := wiremessage.CompressorFor(compressor)
	if err != nil {
		return nil, err
	}
	return wiremessage.AppendCompressed(nil, c, reply)
}

func (s *Server) answer(req Request) bsoncore.Document {
	switch strings.ToLower(req.CommandName()) {
	case "ismaster", "hello":
		return s.IsMaster
	case "buildinfo":
		return s.BuildInfo
	}
	s.record(req)
	if s.Handler != nil {
		return s.Handler(req)
	}
	return OK(RequestCount(req.Command))
}

func (s *Server) record(req Request) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
}

// OK returns the reply {ok: 1, n: n}.
func OK(n int) bsoncore.Document {
	return bsoncore.NewDocumentBuilder().AppendInt32("ok", 1).AppendInt32("n", int32(n)).Build()
}

// RequestCount returns the number of requests in a write command.
func RequestCount(cmd bsoncore.Document) int {
	for _, key := range []string{"documents", "updates", "deletes"} {
		if arr, ok := cmd.Lookup(key).ArrayOK(); ok {
			vals, err := arr.Values()
			if err != nil {
				return 0
			}
			return len(vals)
		}
	}
	return 0
}
