// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/ikmak/mongo-bulkwrite/core/channel"
	"github.com/ikmak/mongo-bulkwrite/core/connection"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/ikmak/mongo-bulkwrite/mongo/options"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultHost = "localhost:27017"

// Client is a handle representing a pool of connections to a MongoDB server.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	address        connection.Addr
	pool           connection.Pool
	writeConcern   *writeconcern.WriteConcern
	logger         logrus.FieldLogger
	bulkMonitor    *event.BulkMonitor
	commandMonitor *event.CommandMonitor
	disconnected   int32
}

// Connect creates a new Client with the given options and connects its
// connection pool. Connections are opened as operations need them.
//
// Options are applied in order, so a later option overrides an earlier one.
func Connect(ctx context.Context, opts ...options.Lister[options.ClientOptions]) (*Client, error) {
	co, err := options.Merge(opts...)
	if err != nil {
		return nil, err
	}

	hosts := co.Hosts
	if len(hosts) == 0 {
		hosts = []string{defaultHost}
	}

	logger := co.Logger
	if logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		logger = l
	}

	connOpts := []connection.Option{
		connection.WithCompressors(func([]string) []string { return co.Compressors }),
		connection.WithLogger(func(logrus.FieldLogger) logrus.FieldLogger { return logger }),
	}
	if co.AppName != nil {
		connOpts = append(connOpts, connection.WithAppName(func(string) string { return *co.AppName }))
	}
	if co.ConnectTimeout != nil {
		connOpts = append(connOpts, connection.WithConnectTimeout(func(time.Duration) time.Duration { return *co.ConnectTimeout }))
	}
	if co.Dialer != nil {
		connOpts = append(connOpts, connection.WithDialer(func(connection.Dialer) connection.Dialer { return co.Dialer }))
	}
	if co.PoolMonitor != nil {
		connOpts = append(connOpts, connection.WithMonitor(func(*event.PoolMonitor) *event.PoolMonitor { return co.PoolMonitor }))
	}

	size := options.DefaultMaxPoolSize
	if co.MaxPoolSize != nil {
		size = *co.MaxPoolSize
	}

	addr := connection.Addr(hosts[0]).Canonicalize()
	pool, err := connection.NewPool(addr, size, size, connOpts...)
	if err != nil {
		return nil, err
	}
	if err := pool.Connect(ctx); err != nil {
		return nil, errors.Wrap(err, "cannot connect pool")
	}
	if len(hosts) > 1 {
		logger.WithField("address", addr.String()).Warn("only the first host is used")
	}

	return &Client{
		address:        addr,
		pool:           pool,
		writeConcern:   co.WriteConcern,
		logger:         logger,
		bulkMonitor:    co.BulkMonitor,
		commandMonitor: co.CommandMonitor,
	}, nil
}

// Disconnect closes the client's connections. Connections in use are closed
// when they are returned, or when ctx is done.
func (c *Client) Disconnect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&c.disconnected, 0, 1) {
		return ErrClientDisconnected
	}
	return c.pool.Disconnect(ctx)
}

// Database returns a handle for a database with the given name.
func (c *Client) Database(name string) *Database {
	return &Database{client: c, name: name, writeConcern: c.writeConcern}
}

func (c *Client) binding() (channel.PoolBinding, error) {
	if atomic.LoadInt32(&c.disconnected) == 1 {
		return channel.PoolBinding{}, ErrClientDisconnected
	}
	return channel.PoolBinding{Pool: c.pool, Monitor: c.commandMonitor, Logger: c.logger}, nil
}
