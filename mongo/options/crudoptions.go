// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

// InsertOneOptions represents arguments that can be used to configure an
// InsertOne operation.
type InsertOneOptions struct {
	BypassDocumentValidation *bool
}

// InsertOneOptionsBuilder contains options to configure InsertOne operations.
type InsertOneOptionsBuilder struct {
	Opts []func(*InsertOneOptions) error
}

// InsertOne creates a new *InsertOneOptionsBuilder instance.
func InsertOne() *InsertOneOptionsBuilder {
	return &InsertOneOptionsBuilder{}
}

// List returns a list of InsertOneOptions setter functions.
func (ioo *InsertOneOptionsBuilder) List() []func(*InsertOneOptions) error {
	return ioo.Opts
}

// SetBypassDocumentValidation sets the value for the BypassDocumentValidation field.
func (ioo *InsertOneOptionsBuilder) SetBypassDocumentValidation(b bool) *InsertOneOptionsBuilder {
	ioo.Opts = append(ioo.Opts, func(opts *InsertOneOptions) error {
		opts.BypassDocumentValidation = &b
		return nil
	})
	return ioo
}

// InsertManyOptions represents arguments that can be used to configure an
// InsertMany operation.
type InsertManyOptions struct {
	BypassDocumentValidation *bool
	Ordered                  *bool
}

// InsertManyOptionsBuilder contains options to configure InsertMany operations.
type InsertManyOptionsBuilder struct {
	Opts []func(*InsertManyOptions) error
}

// InsertMany creates a new *InsertManyOptionsBuilder instance.
func InsertMany() *InsertManyOptionsBuilder {
	opts := &InsertManyOptionsBuilder{}
	opts.SetOrdered(DefaultOrdered)
	return opts
}

// List returns a list of InsertManyOptions setter functions.
func (imo *InsertManyOptionsBuilder) List() []func(*InsertManyOptions) error {
	return imo.Opts
}

// SetBypassDocumentValidation sets the value for the BypassDocumentValidation field.
func (imo *InsertManyOptionsBuilder) SetBypassDocumentValidation(b bool) *InsertManyOptionsBuilder {
	imo.Opts = append(imo.Opts, func(opts *InsertManyOptions) error {
		opts.BypassDocumentValidation = &b
		return nil
	})
	return imo
}

// SetOrdered sets the value for the Ordered field. If true, no writes will
// be executed after one fails. The default value is true.
func (imo *InsertManyOptionsBuilder) SetOrdered(b bool) *InsertManyOptionsBuilder {
	imo.Opts = append(imo.Opts, func(opts *InsertManyOptions) error {
		opts.Ordered = &b
		return nil
	})
	return imo
}

// UpdateOneOptions represents arguments that can be used to configure an
// UpdateOne operation.
type UpdateOneOptions struct {
	ArrayFilters             []interface{}
	BypassDocumentValidation *bool
	Collation                *Collation
	Hint                     interface{}
	Upsert                   *bool
}

// UpdateOneOptionsBuilder contains options to configure UpdateOne operations.
type UpdateOneOptionsBuilder struct {
	Opts []func(*UpdateOneOptions) error
}

// UpdateOne creates a new *UpdateOneOptionsBuilder instance.
func UpdateOne() *UpdateOneOptionsBuilder {
	return &UpdateOneOptionsBuilder{}
}

// List returns a list of UpdateOneOptions setter functions.
func (uo *UpdateOneOptionsBuilder) List() []func(*UpdateOneOptions) error {
	return uo.Opts
}

// SetArrayFilters sets the filters that determine which array elements an
// update operator applies to. Servers older than 3.6 reject the option.
func (uo *UpdateOneOptionsBuilder) SetArrayFilters(af []interface{}) *UpdateOneOptionsBuilder {
	uo.Opts = append(uo.Opts, func(opts *UpdateOneOptions) error {
		opts.ArrayFilters = af
		return nil
	})
	return uo
}

// SetBypassDocumentValidation sets the value for the BypassDocumentValidation field.
func (uo *UpdateOneOptionsBuilder) SetBypassDocumentValidation(b bool) *UpdateOneOptionsBuilder {
	uo.Opts = append(uo.Opts, func(opts *UpdateOneOptions) error {
		opts.BypassDocumentValidation = &b
		return nil
	})
	return uo
}

// SetCollation sets the collation used to match the filter. Servers older
// than 3.4 reject the option.
func (uo *UpdateOneOptionsBuilder) SetCollation(c *Collation) *UpdateOneOptionsBuilder {
	uo.Opts = append(uo.Opts, func(opts *UpdateOneOptions) error {
		opts.Collation = c
		return nil
	})
	return uo
}

// SetHint sets the index to use, as an index name or a specification
// document. Servers older than 4.2 reject the option.
func (uo *UpdateOneOptionsBuilder) SetHint(h interface{}) *UpdateOneOptionsBuilder {
	uo.Opts = append(uo.Opts, func(opts *UpdateOneOptions) error {
		opts.Hint = h
		return nil
	})
	return uo
}

// SetUpsert sets the value for the Upsert field. If true, a new document
// is inserted when the filter matches nothing. The default value is false.
func (uo *UpdateOneOptionsBuilder) SetUpsert(b bool) *UpdateOneOptionsBuilder {
	uo.Opts = append(uo.Opts, func(opts *UpdateOneOptions) error {
		opts.Upsert = &b
		return nil
	})
	return uo
}

// DeleteOneOptions represents arguments that can be used to configure a
// DeleteOne operation.
type DeleteOneOptions struct {
	Collation *Collation
	Hint      interface{}
}

// DeleteOneOptionsBuilder contains options to configure DeleteOne operations.
type DeleteOneOptionsBuilder struct {
	Opts []func(*DeleteOneOptions) error
}

// DeleteOne creates a new *DeleteOneOptionsBuilder instance.
func DeleteOne() *DeleteOneOptionsBuilder {
	return &DeleteOneOptionsBuilder{}
}

// List returns a list of DeleteOneOptions setter functions.
func (do *DeleteOneOptionsBuilder) List() []func(*DeleteOneOptions) error {
	return do.Opts
}

// SetCollation sets the collation used to match the filter.
func (do *DeleteOneOptionsBuilder) SetCollation(c *Collation) *DeleteOneOptionsBuilder {
	do.Opts = append(do.Opts, func(opts *DeleteOneOptions) error {
		opts.Collation = c
		return nil
	})
	return do
}

// SetHint sets the index to use, as an index name or a specification
// document.
func (do *DeleteOneOptionsBuilder) SetHint(h interface{}) *DeleteOneOptionsBuilder {
	do.Opts = append(do.Opts, func(opts *DeleteOneOptions) error {
		opts.Hint = h
		return nil
	})
	return do
}
