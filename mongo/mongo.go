// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package mongo provides a client for writing to a MongoDB server with bulk
// writes. Write models and documents may be any value the bson package
// can marshal to a document, including bsoncore.Document.
package mongo

import (
	"strconv"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

func transformDocument(val interface{}) (bsoncore.Document, error) {
	if val == nil {
		return nil, ErrNilDocument
	}
	switch v := val.(type) {
	case bsoncore.Document:
		return v, v.Validate()
	case bson.Raw:
		return bsoncore.Document(v), bsoncore.Document(v).Validate()
	case []byte:
		return bsoncore.Document(v), bsoncore.Document(v).Validate()
	}
	b, err := bson.Marshal(val)
	if err != nil {
		return nil, errors.Wrap(err, "cannot transform type to a BSON document")
	}
	return b, nil
}

// ensureID returns doc with an _id, prepending a new ObjectID when it has
// none, along with the _id value.
func ensureID(doc bsoncore.Document) (bsoncore.Document, interface{}, error) {
	if v, err := doc.LookupErr("_id"); err == nil {
		id, err := convertValue(v)
		return doc, id, err
	}

	oid := bson.NewObjectID()
	idx, dst := bsoncore.AppendDocumentStart(make([]byte, 0, len(doc)+17))
	dst = bsoncore.AppendObjectIDElement(dst, "_id", oid)
	dst = append(dst, doc[4:len(doc)-1]...)
	dst, err := bsoncore.AppendDocumentEnd(dst, idx)
	if err != nil {
		return nil, nil, err
	}
	return dst, oid, nil
}

// convertValue returns the Go value of v as the bson package decodes it
// into an empty interface.
func convertValue(v bsoncore.Value) (interface{}, error) {
	if v.Type == 0 {
		return nil, nil
	}
	var out interface{}
	rv := bson.RawValue{Type: bson.Type(v.Type), Value: v.Data}
	if err := rv.Unmarshal(&out); err != nil {
		return nil, errors.Wrap(err, "cannot decode value")
	}
	return out, nil
}

// transformHint accepts an index name or an index specification document.
func transformHint(hint interface{}) (bsoncore.Value, error) {
	if hint == nil {
		return bsoncore.Value{}, nil
	}
	if s, ok := hint.(string); ok {
		return bsoncore.Value{Type: bsoncore.TypeString, Data: bsoncore.AppendString(nil, s)}, nil
	}
	doc, err := transformDocument(hint)
	if err != nil {
		return bsoncore.Value{}, errors.Wrap(err, "hint must be a string or a document")
	}
	return bsoncore.Value{Type: bsoncore.TypeEmbeddedDocument, Data: doc}, nil
}

func transformArray(vals []interface{}) (bsoncore.Array, error) {
	if vals == nil {
		return nil, nil
	}
	idx, arr := bsoncore.AppendArrayStart(nil)
	for i, v := range vals {
		doc, err := transformDocument(v)
		if err != nil {
			return nil, errors.Wrapf(err, "array filter %d", i)
		}
		arr = bsoncore.AppendDocumentElement(arr, strconv.Itoa(i), doc)
	}
	arr, err := bsoncore.AppendArrayEnd(arr, idx)
	return arr, err
}
