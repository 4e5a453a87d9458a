// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/ikmak/mongo-bulkwrite/mongo"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

const maxLineSize = 16*1024*1024 + 1024

// readModels parses one extended JSON write model per line, skipping blank
// lines and lines starting with '#'.
func readModels(r io.Reader) ([]mongo.WriteModel, error) {
	var models []mongo.WriteModel

	lineNumber := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		var raw bson.Raw
		if err := bson.UnmarshalExtJSON([]byte(line), false, &raw); err != nil {
			return nil, errors.Wrapf(err, "error parsing line %d", lineNumber)
		}
		model, err := parseModel(bsoncore.Document(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid model on line %d", lineNumber)
		}
		models = append(models, model)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

func parseModel(doc bsoncore.Document) (mongo.WriteModel, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, err
	}
	if len(elems) != 1 {
		return nil, errors.Errorf("expected a document with one key, got %d keys", len(elems))
	}
	name := elems[0].Key()
	body, ok := elems[0].Value().DocumentOK()
	if !ok {
		return nil, errors.Errorf("%s must be a document", name)
	}

	switch name {
	case "insertOne":
		document, err := lookupDocument(body, "document")
		if err != nil {
			return nil, err
		}
		return mongo.NewInsertOneModel().SetDocument(document), nil
	case "updateOne", "updateMany", "replaceOne":
		filter, err := lookupDocument(body, "filter")
		if err != nil {
			return nil, err
		}
		upsert, _ := body.Lookup("upsert").BooleanOK()
		hint, err := lookupHint(body)
		if err != nil {
			return nil, err
		}

		switch name {
		case "replaceOne":
			replacement, err := lookupDocument(body, "replacement")
			if err != nil {
				return nil, err
			}
			return mongo.NewReplaceOneModel().SetFilter(filter).SetReplacement(replacement).SetUpsert(upsert).SetHint(hint), nil
		case "updateOne":
			update, err := lookupDocument(body, "update")
			if err != nil {
				return nil, err
			}
			return mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(upsert).SetHint(hint), nil
		default:
			update, err := lookupDocument(body, "update")
			if err != nil {
				return nil, err
			}
			return mongo.NewUpdateManyModel().SetFilter(filter).SetUpdate(update).SetUpsert(upsert).SetHint(hint), nil
		}
	case "deleteOne", "deleteMany":
		filter, err := lookupDocument(body, "filter")
		if err != nil {
			return nil, err
		}
		hint, err := lookupHint(body)
		if err != nil {
			return nil, err
		}
		if name == "deleteOne" {
			return mongo.NewDeleteOneModel().SetFilter(filter).SetHint(hint), nil
		}
		return mongo.NewDeleteManyModel().SetFilter(filter).SetHint(hint), nil
	}
	return nil, errors.Errorf("unknown write model %q", name)
}

func lookupDocument(body bsoncore.Document, key string) (interface{}, error) {
	val, err := body.LookupErr(key)
	if err != nil {
		return nil, errors.Errorf("missing %q", key)
	}
	doc, ok := val.DocumentOK()
	if !ok {
		return nil, errors.Errorf("%q must be a document", key)
	}
	return doc, nil
}

func lookupHint(body bsoncore.Document) (interface{}, error) {
	val, err := body.LookupErr("hint")
	if err != nil {
		return nil, nil
	}
	if s, ok := val.StringValueOK(); ok {
		return s, nil
	}
	if doc, ok := val.DocumentOK(); ok {
		return doc, nil
	}
	return nil, errors.New(`"hint" must be a string or a document`)
}
