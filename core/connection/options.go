// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package connection

import (
	"context"
	"net"
	"time"

	"github.com/ikmak/mongo-bulkwrite/core/wiremessage"
	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/sirupsen/logrus"
)

// Dialer is used to make network connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialerFunc is a type implemented by functions that can be used as a Dialer.
type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialContext implements the Dialer interface.
func (df DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return df(ctx, network, address)
}

// DefaultDialer is the Dialer implementation that is used by this package. Changing this
// will also change the Dialer used for this package. This should only be changed why all
// of the connections being made need to use a different Dialer. Most of the time, using a
// WithDialer option is more appropriate than changing this variable.
var DefaultDialer Dialer = &net.Dialer{}

type config struct {
	appName        string
	compressors    []string
	connectTimeout time.Duration
	dialer         Dialer
	idleTimeout    time.Duration
	lifeTimeout    time.Duration
	logger         logrus.FieldLogger
	poolMonitor    *event.PoolMonitor
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		connectTimeout: 30 * time.Second,
		dialer:         DefaultDialer,
		idleTimeout:    10 * time.Minute,
		lifeTimeout:    30 * time.Minute,
	}

	for _, opt := range opts {
		err := opt(cfg)
		if err != nil {
			return nil, err
		}
	}

	for _, name := range cfg.compressors {
		if _, err := wiremessage.NewCompressor(name); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = discard
	}
	return cfg, nil
}

// Option is used to configure a connection.
type Option func(*config) error

// WithAppName sets the application name which gets sent to MongoDB when it
// first connects.
func WithAppName(fn func(string) string) Option {
	return func(c *config) error {
		c.appName = fn(c.appName)
		return nil
	}
}

// WithCompressors sets the compressors offered to the server, in order of
// preference.
func WithCompressors(fn func([]string) []string) Option {
	return func(c *config) error {
		c.compressors = fn(c.compressors)
		return nil
	}
}

// WithConnectTimeout configures the maximum amount of time a dial will wait for a
// connect to complete. The default is 30 seconds.
func WithConnectTimeout(fn func(time.Duration) time.Duration) Option {
	return func(c *config) error {
		c.connectTimeout = fn(c.connectTimeout)
		return nil
	}
}

// WithDialer configures the Dialer to use when making a new connection to MongoDB.
func WithDialer(fn func(Dialer) Dialer) Option {
	return func(c *config) error {
		c.dialer = fn(c.dialer)
		return nil
	}
}

// WithIdleTimeout configures the maximum idle time to allow for a connection.
func WithIdleTimeout(fn func(time.Duration) time.Duration) Option {
	return func(c *config) error {
		c.idleTimeout = fn(c.idleTimeout)
		return nil
	}
}

// WithLifeTimeout configures the maximum life of a connection.
func WithLifeTimeout(fn func(time.Duration) time.Duration) Option {
	return func(c *config) error {
		c.lifeTimeout = fn(c.lifeTimeout)
		return nil
	}
}

// WithLogger configures the logger connections and pools write to.
func WithLogger(fn func(logrus.FieldLogger) logrus.FieldLogger) Option {
	return func(c *config) error {
		c.logger = fn(c.logger)
		return nil
	}
}

// WithMonitor configures a event for connection monitoring.
func WithMonitor(fn func(*event.PoolMonitor) *event.PoolMonitor) Option {
	return func(c *config) error {
		c.poolMonitor = fn(c.poolMonitor)
		return nil
	}
}
