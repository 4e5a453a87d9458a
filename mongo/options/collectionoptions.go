// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

import (
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
)

// CollectionOptions represents arguments that can be used to configure a Collection.
type CollectionOptions struct {
	// WriteConcern is the write concern to use for operations executed on the Collection. The default value is the
	// write concern of the Database from which the Collection was created.
	WriteConcern *writeconcern.WriteConcern
}

// CollectionOptionsBuilder contains options to configure a Collection.
type CollectionOptionsBuilder struct {
	Opts []func(*CollectionOptions) error
}

// Collection creates a new CollectionOptionsBuilder instance.
func Collection() *CollectionOptionsBuilder {
	return &CollectionOptionsBuilder{}
}

// List returns a list of CollectionOptions setter functions.
func (c *CollectionOptionsBuilder) List() []func(*CollectionOptions) error {
	return c.Opts
}

// SetWriteConcern sets the value for the WriteConcern field.
func (c *CollectionOptionsBuilder) SetWriteConcern(wc *writeconcern.WriteConcern) *CollectionOptionsBuilder {
	c.Opts = append(c.Opts, func(opts *CollectionOptions) error {
		if err := wc.Validate(); err != nil {
			return err
		}
		opts.WriteConcern = wc
		return nil
	})
	return c
}
