// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

import (
	"time"

	"github.com/ikmak/mongo-bulkwrite/core/connection"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

// DefaultMaxPoolSize is the number of connections a client opens at most.
const DefaultMaxPoolSize uint64 = 100

// ClientOptions represents arguments that can be used to configure a Client.
//
// See corresponding setter methods for documentation.
type ClientOptions struct {
	AppName        *string
	Compressors    []string
	ConnectTimeout *time.Duration
	Dialer         connection.Dialer
	Hosts          []string
	MaxPoolSize    *uint64
	WriteConcern   *writeconcern.WriteConcern

	Logger         logrus.FieldLogger
	BulkMonitor    *event.BulkMonitor
	CommandMonitor *event.CommandMonitor
	PoolMonitor    *event.PoolMonitor
}

// ClientOptionsBuilder contains options to configure a Client. Each option
// can be set through setter functions.
type ClientOptionsBuilder struct {
	Opts []func(*ClientOptions) error
}

// Client creates a new ClientOptionsBuilder.
func Client() *ClientOptionsBuilder {
	return &ClientOptionsBuilder{}
}

// List returns a list of ClientOptions setter functions.
func (c *ClientOptionsBuilder) List() []func(*ClientOptions) error {
	return c.Opts
}

func (c *ClientOptionsBuilder) add(fn func(*ClientOptions) error) *ClientOptionsBuilder {
	c.Opts = append(c.Opts, fn)
	return c
}

// ApplyURI parses uri and sets the options it specifies: the hosts, appname,
// compressors, connectTimeoutMS, maxPoolSize, w and journal. Options set
// by setters called after ApplyURI override those from the URI.
func (c *ClientOptionsBuilder) ApplyURI(uri string) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		cs, err := connstring.ParseAndValidate(uri)
		if err != nil {
			return errors.Wrap(err, "invalid connection string")
		}

		opts.Hosts = cs.Hosts
		if cs.AppName != "" {
			appName := cs.AppName
			opts.AppName = &appName
		}
		if len(cs.Compressors) > 0 {
			opts.Compressors = cs.Compressors
		}
		if cs.ConnectTimeoutSet {
			timeout := cs.ConnectTimeout
			opts.ConnectTimeout = &timeout
		}
		if cs.MaxPoolSizeSet {
			size := cs.MaxPoolSize
			opts.MaxPoolSize = &size
		}

		var wcOpts []writeconcern.Option
		switch {
		case cs.WNumberSet:
			wcOpts = append(wcOpts, writeconcern.W(cs.WNumber))
		case cs.WString == "majority":
			wcOpts = append(wcOpts, writeconcern.WMajority())
		case cs.WString != "":
			wcOpts = append(wcOpts, writeconcern.WTagSet(cs.WString))
		}
		if cs.JSet {
			wcOpts = append(wcOpts, writeconcern.J(cs.J))
		}
		if len(wcOpts) > 0 {
			opts.WriteConcern = writeconcern.New(wcOpts...)
		}
		return nil
	})
}

// SetAppName specifies an application name that is sent to the server in
// the connection handshake.
func (c *ClientOptionsBuilder) SetAppName(s string) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		opts.AppName = &s
		return nil
	})
}

// SetCompressors sets the compressors, in order of preference, that can be
// used for messages sent to and received from the server. Valid values are
// "snappy", "zlib" and "zstd".
func (c *ClientOptionsBuilder) SetCompressors(comps []string) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		opts.Compressors = comps
		return nil
	})
}

// SetConnectTimeout specifies how long to wait for a new connection to be
// established. The default is 30 seconds.
func (c *ClientOptionsBuilder) SetConnectTimeout(d time.Duration) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		opts.ConnectTimeout = &d
		return nil
	})
}

// SetDialer specifies a custom dialer used to open connections.
func (c *ClientOptionsBuilder) SetDialer(d connection.Dialer) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		opts.Dialer = d
		return nil
	})
}

// SetHosts specifies the server to connect to. Only the first host is used.
func (c *ClientOptionsBuilder) SetHosts(s []string) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		opts.Hosts = s
		return nil
	})
}

// SetMaxPoolSize specifies the maximum number of connections to the server.
// The default is 100. A value of 0 is invalid.
func (c *ClientOptionsBuilder) SetMaxPoolSize(u uint64) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		if u == 0 {
			return errors.New("maxPoolSize must be positive")
		}
		opts.MaxPoolSize = &u
		return nil
	})
}

// SetWriteConcern specifies the default write concern of the client's
// collections.
func (c *ClientOptionsBuilder) SetWriteConcern(wc *writeconcern.WriteConcern) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		if err := wc.Validate(); err != nil {
			return err
		}
		opts.WriteConcern = wc
		return nil
	})
}

// SetLogger specifies the logger for the client's connections and bulk
// writes.
func (c *ClientOptionsBuilder) SetLogger(l logrus.FieldLogger) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		opts.Logger = l
		return nil
	})
}

// SetBulkMonitor specifies a monitor that receives an event for every bulk
// write batch.
func (c *ClientOptionsBuilder) SetBulkMonitor(m *event.BulkMonitor) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		opts.BulkMonitor = m
		return nil
	})
}

// SetCommandMonitor specifies a monitor for the commands sent to the server.
func (c *ClientOptionsBuilder) SetCommandMonitor(m *event.CommandMonitor) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		opts.CommandMonitor = m
		return nil
	})
}

// SetPoolMonitor specifies a monitor for connection pool events.
func (c *ClientOptionsBuilder) SetPoolMonitor(m *event.PoolMonitor) *ClientOptionsBuilder {
	return c.add(func(opts *ClientOptions) error {
		opts.PoolMonitor = m
		return nil
	})
}
