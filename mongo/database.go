// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"github.com/ikmak/mongo-bulkwrite/core"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/ikmak/mongo-bulkwrite/mongo/options"
)

// Database is a handle to a MongoDB database.
type Database struct {
	client       *Client
	name         string
	writeConcern *writeconcern.WriteConcern
}

// Client returns the Client the database was created from.
func (db *Database) Client() *Client { return db.client }

// Name returns the name of the database.
func (db *Database) Name() string { return db.name }

// Collection gets a handle for a collection with the given name in the
// database. Invalid options are ignored and leave the database's settings
// in place.
func (db *Database) Collection(name string, opts ...options.Lister[options.CollectionOptions]) *Collection {
	coll := &Collection{
		client:       db.client,
		db:           db,
		ns:           core.Namespace{DB: db.name, Collection: name},
		writeConcern: db.writeConcern,
	}
	co, err := options.Merge(opts...)
	if err != nil {
		db.client.logger.WithError(err).Warn("ignoring invalid collection options")
		return coll
	}
	if co.WriteConcern != nil {
		coll.writeConcern = co.WriteConcern
	}
	return coll
}
