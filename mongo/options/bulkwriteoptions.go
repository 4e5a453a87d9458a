// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

import (
	"github.com/pkg/errors"
)

// DefaultOrdered is the default value for the Ordered option in BulkWriteOptions.
var DefaultOrdered = true

// BulkWriteOptions represents arguments that can be used to configure a
// BulkWrite operation.
//
// See corresponding setter methods for documentation.
type BulkWriteOptions struct {
	BypassDocumentValidation *bool
	Ordered                  *bool
	MaxBatchCount            *int
	MaxBatchLength           *int
}

// BulkWriteOptionsBuilder contains options to configure bulk write operations.
// Each option can be set through setter functions. See documentation for each
// setter function for an explanation of the option.
type BulkWriteOptionsBuilder struct {
	Opts []func(*BulkWriteOptions) error
}

// BulkWrite creates a new *BulkWriteOptionsBuilder instance.
func BulkWrite() *BulkWriteOptionsBuilder {
	opts := &BulkWriteOptionsBuilder{}
	opts = opts.SetOrdered(DefaultOrdered)

	return opts
}

// List returns a list of BulkWriteOptions setter functions.
func (b *BulkWriteOptionsBuilder) List() []func(*BulkWriteOptions) error {
	return b.Opts
}

// SetOrdered sets the value for the Ordered field. If true, no writes will be executed after one fails.
// The default value is true.
func (b *BulkWriteOptionsBuilder) SetOrdered(ordered bool) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		opts.Ordered = &ordered

		return nil
	})

	return b
}

// SetBypassDocumentValidation sets the value for the BypassDocumentValidation field. If true, writes
// executed as part of the operation will opt out of document-level validation on the server. The default
// value is false, which omits the field from the commands. Servers older than 3.2 reject true.
func (b *BulkWriteOptionsBuilder) SetBypassDocumentValidation(bypass bool) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		opts.BypassDocumentValidation = &bypass

		return nil
	})

	return b
}

// SetMaxBatchCount caps the number of requests in a batch below the server's
// maxWriteBatchSize.
func (b *BulkWriteOptionsBuilder) SetMaxBatchCount(n int) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		if n <= 0 {
			return errors.Errorf("max batch count must be positive, got %d", n)
		}
		opts.MaxBatchCount = &n

		return nil
	})

	return b
}

// SetMaxBatchLength caps the serialized size of the requests in a batch
// below the server's maxMessageSizeBytes.
func (b *BulkWriteOptionsBuilder) SetMaxBatchLength(n int) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		if n <= 0 {
			return errors.Errorf("max batch length must be positive, got %d", n)
		}
		opts.MaxBatchLength = &n

		return nil
	})

	return b
}
