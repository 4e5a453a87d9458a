// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"context"

	"github.com/ikmak/mongo-bulkwrite/core"
	"github.com/ikmak/mongo-bulkwrite/core/description"
	"github.com/ikmak/mongo-bulkwrite/core/result"
	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// limits are the server limits and features a request is checked against.
type limits struct {
	caps            description.Capabilities
	maxDocumentSize int
}

// RequestKind holds everything that differs between inserts, updates and
// deletes: the command verb, the name of the request array, how one request
// is serialized into it and how one request is sent as a legacy opcode.
type RequestKind struct {
	Type        RequestType
	CommandName string
	ElementName string
	// SupportsBypass reports whether the command accepts bypassDocumentValidation.
	SupportsBypass bool

	check     func(l limits, req WriteRequest) error
	serialize func(dst []byte, req WriteRequest) ([]byte, error)
	emulate   func(ctx context.Context, ch Channel, ns core.Namespace, req WriteRequest, wc *writeconcern.WriteConcern, ordered bool) (*result.WriteConcernResult, error)
}

// KindFor returns the RequestKind for rt.
func KindFor(rt RequestType) (*RequestKind, error) {
	switch rt {
	case InsertRequestType:
		return insertKind, nil
	case UpdateRequestType:
		return updateKind, nil
	case DeleteRequestType:
		return deleteKind, nil
	}
	return nil, errors.Errorf("unrecognized request type %d", rt)
}

// serializer returns a serializeFunc that checks each request against l.
func (k *RequestKind) serializer(l limits) serializeFunc {
	return func(dst []byte, req WriteRequest) ([]byte, error) {
		if req.RequestType() != k.Type {
			return dst, errors.Errorf("%s request in %s batch", req.RequestType(), k.Type)
		}
		if err := k.check(l, req); err != nil {
			return dst, err
		}
		return k.serialize(dst, req)
	}
}

var insertKind = &RequestKind{
	Type:           InsertRequestType,
	CommandName:    "insert",
	ElementName:    "documents",
	SupportsBypass: true,
	check: func(l limits, req WriteRequest) error {
		doc := req.(*InsertRequest).Document
		if l.maxDocumentSize > 0 && len(doc) > l.maxDocumentSize {
			return errors.Wrapf(ErrDocumentTooLarge, "document is %d bytes, limit %d", len(doc), l.maxDocumentSize)
		}
		return nil
	},
	serialize: func(dst []byte, req WriteRequest) ([]byte, error) {
		doc := req.(*InsertRequest).Document
		if err := doc.Validate(); err != nil {
			return dst, errors.Wrap(err, "invalid document")
		}
		return append(dst, doc...), nil
	},
	emulate: func(ctx context.Context, ch Channel, ns core.Namespace, req WriteRequest, wc *writeconcern.WriteConcern, ordered bool) (*result.WriteConcernResult, error) {
		return ch.Insert(ctx, ns, req.(*InsertRequest).Document, wc, !ordered)
	},
}

var updateKind = &RequestKind{
	Type:           UpdateRequestType,
	CommandName:    "update",
	ElementName:    "updates",
	SupportsBypass: true,
	check: func(l limits, req WriteRequest) error {
		u := req.(*UpdateRequest)
		if u.Collation != nil && !l.caps.Collation {
			return ErrCollationNotSupported
		}
		if u.ArrayFilters != nil && !l.caps.ArrayFilters {
			return ErrArrayFiltersNotSupported
		}
		if u.Hint.Type != 0 && !l.caps.UpdateHint {
			return ErrHintNotSupported
		}
		return nil
	},
	serialize: func(dst []byte, req WriteRequest) ([]byte, error) {
		u := req.(*UpdateRequest)
		idx, dst := bsoncore.AppendDocumentStart(dst)
		dst = bsoncore.AppendDocumentElement(dst, "q", u.Filter)
		dst = bsoncore.AppendDocumentElement(dst, "u", u.Update)
		if u.IsMulti {
			dst = bsoncore.AppendBooleanElement(dst, "multi", true)
		}
		if u.IsUpsert {
			dst = bsoncore.AppendBooleanElement(dst, "upsert", true)
		}
		if u.Collation != nil {
			dst = bsoncore.AppendDocumentElement(dst, "collation", u.Collation)
		}
		if u.ArrayFilters != nil {
			dst = bsoncore.AppendArrayElement(dst, "arrayFilters", u.ArrayFilters)
		}
		if u.Hint.Type != 0 {
			dst = bsoncore.AppendValueElement(dst, "hint", u.Hint)
		}
		return bsoncore.AppendDocumentEnd(dst, idx)
	},
	emulate: func(ctx context.Context, ch Channel, ns core.Namespace, req WriteRequest, wc *writeconcern.WriteConcern, _ bool) (*result.WriteConcernResult, error) {
		u := req.(*UpdateRequest)
		return ch.Update(ctx, ns, u.Filter, u.Update, u.IsMulti, u.IsUpsert, wc)
	},
}

var deleteKind = &RequestKind{
	Type:        DeleteRequestType,
	CommandName: "delete",
	ElementName: "deletes",
	check: func(l limits, req WriteRequest) error {
		if req.(*DeleteRequest).Collation != nil && !l.caps.Collation {
			return ErrCollationNotSupported
		}
		return nil
	},
	serialize: func(dst []byte, req WriteRequest) ([]byte, error) {
		d := req.(*DeleteRequest)
		idx, dst := bsoncore.AppendDocumentStart(dst)
		dst = bsoncore.AppendDocumentElement(dst, "q", d.Filter)
		dst = bsoncore.AppendInt32Element(dst, "limit", d.Limit)
		if d.Collation != nil {
			dst = bsoncore.AppendDocumentElement(dst, "collation", d.Collation)
		}
		return bsoncore.AppendDocumentEnd(dst, idx)
	},
	emulate: func(ctx context.Context, ch Channel, ns core.Namespace, req WriteRequest, wc *writeconcern.WriteConcern, _ bool) (*result.WriteConcernResult, error) {
		d := req.(*DeleteRequest)
		return ch.Delete(ctx, ns, d.Filter, d.Limit != 1, wc)
	},
}
