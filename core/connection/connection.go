// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package connection contains the types for building and pooling connections that can speak the
// MongoDB Wire Protocol. A connection runs the isMaster handshake when it is opened, describes the
// server it is connected to and compresses the messages it writes when the server allows it.
package connection

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/ikmak/mongo-bulkwrite/core/description"
	"github.com/ikmak/mongo-bulkwrite/core/wiremessage"
	"github.com/sirupsen/logrus"
)

var globalClientConnectionID uint64

func nextClientConnectionID() uint64 {
	return atomic.AddUint64(&globalClientConnectionID, 1)
}

// Connection is used to read and write wire protocol messages to a network.
type Connection interface {
	WriteWireMessage(ctx context.Context, wm []byte) error
	ReadWireMessage(ctx context.Context, dst []byte) ([]byte, error)
	Close() error
	Expired() bool
	Alive() bool
	ID() string
	Description() description.Server
}

type connection struct {
	addr         Addr
	id           string
	nc           net.Conn
	dead         bool
	desc         description.Server
	compressor   wiremessage.Compressor
	idleTimeout  time.Duration
	idleDeadline time.Time
	lifeDeadline time.Time
	logger       logrus.FieldLogger
}

// New opens a connection to a server and runs the handshake on it. The
// returned connection compresses messages with the first of the configured
// compressors the server also supports.
func New(ctx context.Context, addr Addr, opts ...Option) (Connection, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return dial(ctx, addr, cfg)
}

func dial(ctx context.Context, addr Addr, cfg *config) (*connection, error) {
	if cfg.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.connectTimeout)
		defer cancel()
	}

	id := fmt.Sprintf("%s[-%d]", addr, nextClientConnectionID())
	nc, err := cfg.dialer.DialContext(ctx, addr.Network(), addr.String())
	if err != nil {
		return nil, Error{ConnectionID: id, Wrapped: err, message: "failed to connect"}
	}

	var lifeDeadline time.Time
	if cfg.lifeTimeout > 0 {
		lifeDeadline = time.Now().Add(cfg.lifeTimeout)
	}
	c := &connection{
		addr:         addr,
		id:           id,
		nc:           nc,
		idleTimeout:  cfg.idleTimeout,
		lifeDeadline: lifeDeadline,
		logger:       cfg.logger.WithField("connection", id),
	}
	c.bumpIdleDeadline()

	if err := c.handshake(ctx, cfg); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"maxWireVersion": c.desc.WireVersion,
		"compressor":     c.compressorName(),
	}).Debug("connection established")
	return c, nil
}

func (c *connection) compressorName() string {
	if c.compressor == nil {
		return ""
	}
	return c.compressor.ID().String()
}

func (c *connection) bumpIdleDeadline() {
	if c.idleTimeout > 0 {
		c.idleDeadline = time.Now().Add(c.idleTimeout)
	}
}

func (c *connection) setDeadline(ctx context.Context, set func(time.Time) error) error {
	var deadline time.Time
	if dl, ok := ctx.Deadline(); ok {
		deadline = dl
	}
	return set(deadline)
}

func (c *connection) WriteWireMessage(ctx context.Context, wm []byte) error {
	if c.dead {
		return Error{ConnectionID: c.id, message: "connection is dead"}
	}

	select {
	case <-ctx.Done():
		return Error{ConnectionID: c.id, Wrapped: ctx.Err(), message: "failed to write"}
	default:
	}

	if c.compressor != nil {
		compressed, err := wiremessage.AppendCompressed(nil, c.compressor, wm)
		if err != nil {
			return Error{ConnectionID: c.id, Wrapped: err, message: "unable to compress wire message"}
		}
		wm = compressed
	}

	if err := c.setDeadline(ctx, c.nc.SetWriteDeadline); err != nil {
		return Error{ConnectionID: c.id, Wrapped: err, message: "failed to set write deadline"}
	}
	if _, err := c.nc.Write(wm); err != nil {
		_ = c.Close()
		return NetworkError{ConnectionID: c.id, Wrapped: err}
	}

	c.bumpIdleDeadline()
	return nil
}

// ReadWireMessage reads a whole message into dst, decompressing it if needed.
func (c *connection) ReadWireMessage(ctx context.Context, dst []byte) ([]byte, error) {
	if c.dead {
		return dst, Error{ConnectionID: c.id, message: "connection is dead"}
	}

	select {
	case <-ctx.Done():
		// We close the connection because we don't know if there is an unread message on the wire.
		_ = c.Close()
		return nil, Error{ConnectionID: c.id, Wrapped: ctx.Err(), message: "failed to read"}
	default:
	}

	if err := c.setDeadline(ctx, c.nc.SetReadDeadline); err != nil {
		return nil, Error{ConnectionID: c.id, Wrapped: err, message: "failed to set read deadline"}
	}

	var sizeBuf [4]byte
	if _, err := io.ReadFull(c.nc, sizeBuf[:]); err != nil {
		_ = c.Close()
		return nil, NetworkError{ConnectionID: c.id, Wrapped: err}
	}

	size := int32(binary.LittleEndian.Uint32(sizeBuf[:]))
	maxMessageSize := c.desc.MaxMessageSize
	if maxMessageSize == 0 {
		maxMessageSize = description.DefaultMaxMessageSize
	}
	if size < wiremessage.HeaderLength || int(size) > maxMessageSize {
		_ = c.Close()
		return nil, Error{ConnectionID: c.id, message: fmt.Sprintf("invalid message length %d", size)}
	}

	wm := make([]byte, size)
	copy(wm, sizeBuf[:])
	if _, err := io.ReadFull(c.nc, wm[4:]); err != nil {
		_ = c.Close()
		return nil, NetworkError{ConnectionID: c.id, Wrapped: err}
	}

	wm, err := wiremessage.Decompress(wm)
	if err != nil {
		return nil, Error{ConnectionID: c.id, Wrapped: err, message: "unable to decompress message"}
	}

	c.bumpIdleDeadline()
	return append(dst[:0], wm...), nil
}

func (c *connection) Close() error {
	c.dead = true
	err := c.nc.Close()
	if err != nil {
		return Error{ConnectionID: c.id, Wrapped: err, message: "failed to close net.Conn"}
	}
	return nil
}

func (c *connection) Expired() bool {
	now := time.Now()
	if !c.idleDeadline.IsZero() && now.After(c.idleDeadline) {
		return true
	}
	if !c.lifeDeadline.IsZero() && now.After(c.lifeDeadline) {
		return true
	}
	return c.dead
}

func (c *connection) Alive() bool {
	return !c.dead
}

func (c *connection) ID() string {
	return c.id
}

func (c *connection) Description() description.Server {
	return c.desc
}
