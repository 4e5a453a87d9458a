// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package writeconcern describes the level of acknowledgement requested from
// the server for write operations.
package writeconcern

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// ErrInconsistent indicates that an inconsistent write concern was specified.
var ErrInconsistent = errors.New("a write concern cannot have both w=0 and j=true")

// ErrNegativeW indicates that a negative integer `w` field was specified.
var ErrNegativeW = errors.New("write concern `w` field cannot be a negative number")

// ErrNegativeWTimeout indicates that a negative WTimeout was specified.
var ErrNegativeWTimeout = errors.New("write concern `wtimeout` field cannot be negative")

// WriteConcern describes the level of acknowledgement requested from MongoDB for write operations
// to a standalone mongod or to replica sets or to sharded clusters.
//
// A nil *WriteConcern is the server default.
type WriteConcern struct {
	w        interface{}
	j        *bool
	wTimeout time.Duration
}

// Option is an option to provide when creating a WriteConcern.
type Option func(concern *WriteConcern)

// New constructs a new WriteConcern.
func New(options ...Option) *WriteConcern {
	concern := &WriteConcern{}

	for _, option := range options {
		option(concern)
	}

	return concern
}

// W requests acknowledgement that write operations propagate to the specified number of mongod
// instances.
func W(w int) Option {
	return func(concern *WriteConcern) {
		concern.w = w
	}
}

// WMajority requests acknowledgement that write operations propagate to the majority of mongod
// instances.
func WMajority() Option {
	return func(concern *WriteConcern) {
		concern.w = "majority"
	}
}

// WTagSet requests acknowledgement that write operations propagate to the specified mongod
// instance.
func WTagSet(tag string) Option {
	return func(concern *WriteConcern) {
		concern.w = tag
	}
}

// J requests acknowledgement from MongoDB that write operations are written to
// the journal.
func J(j bool) Option {
	return func(concern *WriteConcern) {
		concern.j = &j
	}
}

// WTimeout specifies a time limit for the write concern.
func WTimeout(d time.Duration) Option {
	return func(concern *WriteConcern) {
		concern.wTimeout = d
	}
}

// W1 returns the write concern {w: 1}.
func W1() *WriteConcern {
	return New(W(1))
}

// Unacknowledged returns the write concern {w: 0}.
func Unacknowledged() *WriteConcern {
	return New(W(0))
}

// Parse builds a write concern from its connection string form. w is either
// a number or a tag set name such as "majority"; an empty w leaves it unset.
func Parse(w string, journal *bool, wTimeout time.Duration) (*WriteConcern, error) {
	wc := New(WTimeout(wTimeout))
	if journal != nil {
		J(*journal)(wc)
	}
	if w != "" {
		if n, err := strconv.Atoi(w); err == nil {
			W(n)(wc)
		} else if w == "majority" {
			WMajority()(wc)
		} else {
			WTagSet(w)(wc)
		}
	}
	if err := wc.Validate(); err != nil {
		return nil, err
	}
	return wc, nil
}

// GetW returns the w value, which is either nil, an int, or a string.
func (wc *WriteConcern) GetW() interface{} {
	if wc == nil {
		return nil
	}
	return wc.w
}

// GetJ returns the journal flag and whether it was set.
func (wc *WriteConcern) GetJ() (bool, bool) {
	if wc == nil || wc.j == nil {
		return false, false
	}
	return *wc.j, true
}

// GetWTimeout returns the write concern timeout.
func (wc *WriteConcern) GetWTimeout() time.Duration {
	if wc == nil {
		return 0
	}
	return wc.wTimeout
}

// Validate checks the write concern for inconsistent settings.
func (wc *WriteConcern) Validate() error {
	if wc == nil {
		return nil
	}
	if j, ok := wc.GetJ(); ok && j {
		if v, isInt := wc.w.(int); isInt && v == 0 {
			return ErrInconsistent
		}
	}
	if v, isInt := wc.w.(int); isInt && v < 0 {
		return ErrNegativeW
	}
	if wc.wTimeout < 0 {
		return ErrNegativeWTimeout
	}
	return nil
}

// Acknowledged indicates whether or not a write with the given write concern will be acknowledged.
func (wc *WriteConcern) Acknowledged() bool {
	if wc == nil {
		return true
	}
	if j, ok := wc.GetJ(); ok && j {
		return true
	}

	switch v := wc.w.(type) {
	case int:
		if v == 0 {
			return false
		}
	}

	return true
}

// IsServerDefault reports whether no field of the write concern is set, in
// which case it is omitted from commands.
func (wc *WriteConcern) IsServerDefault() bool {
	return wc == nil || (wc.w == nil && wc.j == nil && wc.wTimeout == 0)
}

// AppendDocument appends the write concern as a BSON document to dst.
func (wc *WriteConcern) AppendDocument(dst []byte) ([]byte, error) {
	if err := wc.Validate(); err != nil {
		return dst, err
	}

	idx, dst := bsoncore.AppendDocumentStart(dst)
	dst = wc.appendFields(dst)
	return bsoncore.AppendDocumentEnd(dst, idx)
}

// AppendElement appends the write concern to dst as an element named
// "writeConcern". Nothing is appended for the server default.
func (wc *WriteConcern) AppendElement(dst []byte) ([]byte, error) {
	if wc.IsServerDefault() {
		return dst, nil
	}
	doc, err := wc.AppendDocument(nil)
	if err != nil {
		return dst, err
	}
	return bsoncore.AppendDocumentElement(dst, "writeConcern", doc), nil
}

// AppendGetLastErrorFields appends the write concern fields to a
// getLastError command, which takes them at the top level.
func (wc *WriteConcern) AppendGetLastErrorFields(dst []byte) ([]byte, error) {
	if err := wc.Validate(); err != nil {
		return dst, err
	}
	return wc.appendFields(dst), nil
}

func (wc *WriteConcern) appendFields(dst []byte) []byte {
	if wc == nil {
		return dst
	}
	switch t := wc.w.(type) {
	case int:
		dst = bsoncore.AppendInt32Element(dst, "w", int32(t))
	case string:
		dst = bsoncore.AppendStringElement(dst, "w", t)
	}
	if wc.j != nil {
		dst = bsoncore.AppendBooleanElement(dst, "j", *wc.j)
	}
	if wc.wTimeout != 0 {
		dst = bsoncore.AppendInt64Element(dst, "wtimeout", int64(wc.wTimeout/time.Millisecond))
	}
	return dst
}

// String implements the fmt.Stringer interface.
func (wc *WriteConcern) String() string {
	if wc.IsServerDefault() {
		return "{}"
	}
	doc, err := wc.AppendDocument(nil)
	if err != nil {
		return fmt.Sprintf("invalid write concern: %v", err)
	}
	return bsoncore.Document(doc).String()
}

// AckWrite returns true if a write concern represents an acknowledged write
func AckWrite(wc *WriteConcern) bool {
	return wc == nil || wc.Acknowledged()
}
