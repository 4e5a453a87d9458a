// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"strings"

	"github.com/ikmak/mongo-bulkwrite/core/bulk"
	"github.com/ikmak/mongo-bulkwrite/mongo/options"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// WriteModel is the interface satisfied by all models for bulk writes.
type WriteModel interface {
	writeRequest() (bulk.WriteRequest, error)
}

// InsertOneModel is the write model for insert operations.
type InsertOneModel struct {
	Document interface{}
}

// NewInsertOneModel creates a new InsertOneModel.
func NewInsertOneModel() *InsertOneModel {
	return &InsertOneModel{}
}

// SetDocument sets the BSON document for the InsertOneModel. A document
// without an _id is given a new ObjectID.
func (iom *InsertOneModel) SetDocument(doc interface{}) *InsertOneModel {
	iom.Document = doc
	return iom
}

func (iom *InsertOneModel) writeRequest() (bulk.WriteRequest, error) {
	doc, err := transformDocument(iom.Document)
	if err != nil {
		return nil, err
	}
	doc, _, err = ensureID(doc)
	if err != nil {
		return nil, err
	}
	return &bulk.InsertRequest{Document: doc}, nil
}

// DeleteOneModel is the write model for deleting at most one document.
type DeleteOneModel struct {
	Filter    interface{}
	Collation *options.Collation
	Hint      interface{}
}

// NewDeleteOneModel creates a new DeleteOneModel.
func NewDeleteOneModel() *DeleteOneModel {
	return &DeleteOneModel{}
}

// SetFilter sets the filter for the DeleteOneModel.
func (dom *DeleteOneModel) SetFilter(filter interface{}) *DeleteOneModel {
	dom.Filter = filter
	return dom
}

// SetCollation sets the collation for the DeleteOneModel.
func (dom *DeleteOneModel) SetCollation(collation *options.Collation) *DeleteOneModel {
	dom.Collation = collation
	return dom
}

// SetHint sets the index for the DeleteOneModel, as a name or a specification document.
func (dom *DeleteOneModel) SetHint(hint interface{}) *DeleteOneModel {
	dom.Hint = hint
	return dom
}

func (dom *DeleteOneModel) writeRequest() (bulk.WriteRequest, error) {
	return deleteRequest(dom.Filter, dom.Collation, dom.Hint, 1)
}

// DeleteManyModel is the write model for deleteMany operations.
type DeleteManyModel struct {
	Filter    interface{}
	Collation *options.Collation
	Hint      interface{}
}

// NewDeleteManyModel creates a new DeleteManyModel.
func NewDeleteManyModel() *DeleteManyModel {
	return &DeleteManyModel{}
}

// SetFilter sets the filter for the DeleteManyModel.
func (dmm *DeleteManyModel) SetFilter(filter interface{}) *DeleteManyModel {
	dmm.Filter = filter
	return dmm
}

// SetCollation sets the collation for the DeleteManyModel.
func (dmm *DeleteManyModel) SetCollation(collation *options.Collation) *DeleteManyModel {
	dmm.Collation = collation
	return dmm
}

// SetHint sets the index for the DeleteManyModel.
func (dmm *DeleteManyModel) SetHint(hint interface{}) *DeleteManyModel {
	dmm.Hint = hint
	return dmm
}

func (dmm *DeleteManyModel) writeRequest() (bulk.WriteRequest, error) {
	return deleteRequest(dmm.Filter, dmm.Collation, dmm.Hint, 0)
}

func deleteRequest(filter interface{}, collation *options.Collation, hint interface{}, limit int32) (bulk.WriteRequest, error) {
	f, err := transformDocument(filter)
	if err != nil {
		return nil, err
	}
	h, err := transformHint(hint)
	if err != nil {
		return nil, err
	}
	return &bulk.DeleteRequest{Filter: f, Collation: collation.ToDocument(), Hint: h, Limit: limit}, nil
}

// ReplaceOneModel is the write model for replace operations.
type ReplaceOneModel struct {
	Filter      interface{}
	Replacement interface{}
	Collation   *options.Collation
	Hint        interface{}
	Upsert      *bool
}

// NewReplaceOneModel creates a new ReplaceOneModel.
func NewReplaceOneModel() *ReplaceOneModel {
	return &ReplaceOneModel{}
}

// SetFilter sets the filter for the ReplaceOneModel.
func (rom *ReplaceOneModel) SetFilter(filter interface{}) *ReplaceOneModel {
	rom.Filter = filter
	return rom
}

// SetReplacement sets the replacement document for the ReplaceOneModel.
func (rom *ReplaceOneModel) SetReplacement(rep interface{}) *ReplaceOneModel {
	rom.Replacement = rep
	return rom
}

// SetCollation sets the collation for the ReplaceOneModel.
func (rom *ReplaceOneModel) SetCollation(collation *options.Collation) *ReplaceOneModel {
	rom.Collation = collation
	return rom
}

// SetHint sets the index for the ReplaceOneModel.
func (rom *ReplaceOneModel) SetHint(hint interface{}) *ReplaceOneModel {
	rom.Hint = hint
	return rom
}

// SetUpsert specifies if a new document should be created if no document matches the query.
func (rom *ReplaceOneModel) SetUpsert(upsert bool) *ReplaceOneModel {
	rom.Upsert = &upsert
	return rom
}

func (rom *ReplaceOneModel) writeRequest() (bulk.WriteRequest, error) {
	rep, err := transformDocument(rom.Replacement)
	if err != nil {
		return nil, err
	}
	if firstKeyIsOperator(rep) {
		return nil, ErrDollarKeyInReplacement
	}
	return updateRequest(rom.Filter, rep, rom.Collation, nil, rom.Hint, rom.Upsert, false)
}

// UpdateOneModel is the write model for updating at most one document.
type UpdateOneModel struct {
	Filter       interface{}
	Update       interface{}
	ArrayFilters []interface{}
	Collation    *options.Collation
	Hint         interface{}
	Upsert       *bool
}

// NewUpdateOneModel creates a new UpdateOneModel.
func NewUpdateOneModel() *UpdateOneModel {
	return &UpdateOneModel{}
}

// SetFilter sets the filter for the UpdateOneModel.
func (uom *UpdateOneModel) SetFilter(filter interface{}) *UpdateOneModel {
	uom.Filter = filter
	return uom
}

// SetUpdate sets the update document for the UpdateOneModel.
func (uom *UpdateOneModel) SetUpdate(update interface{}) *UpdateOneModel {
	uom.Update = update
	return uom
}

// SetArrayFilters specifies a set of filters specifying to which array elements an update should apply.
func (uom *UpdateOneModel) SetArrayFilters(filters []interface{}) *UpdateOneModel {
	uom.ArrayFilters = filters
	return uom
}

// SetCollation sets the collation for the UpdateOneModel.
func (uom *UpdateOneModel) SetCollation(collation *options.Collation) *UpdateOneModel {
	uom.Collation = collation
	return uom
}

// SetHint sets the index for the UpdateOneModel.
func (uom *UpdateOneModel) SetHint(hint interface{}) *UpdateOneModel {
	uom.Hint = hint
	return uom
}

// SetUpsert specifies if a new document should be created if no document matches the query.
func (uom *UpdateOneModel) SetUpsert(upsert bool) *UpdateOneModel {
	uom.Upsert = &upsert
	return uom
}

func (uom *UpdateOneModel) writeRequest() (bulk.WriteRequest, error) {
	upd, err := transformUpdate(uom.Update)
	if err != nil {
		return nil, err
	}
	return updateRequest(uom.Filter, upd, uom.Collation, uom.ArrayFilters, uom.Hint, uom.Upsert, false)
}

// UpdateManyModel is the write model for updateMany operations.
type UpdateManyModel struct {
	Filter       interface{}
	Update       interface{}
	ArrayFilters []interface{}
	Collation    *options.Collation
	Hint         interface{}
	Upsert       *bool
}

// NewUpdateManyModel creates a new UpdateManyModel.
func NewUpdateManyModel() *UpdateManyModel {
	return &UpdateManyModel{}
}

// SetFilter sets the filter for the UpdateManyModel.
func (umm *UpdateManyModel) SetFilter(filter interface{}) *UpdateManyModel {
	umm.Filter = filter
	return umm
}

// SetUpdate sets the update document for the UpdateManyModel.
func (umm *UpdateManyModel) SetUpdate(update interface{}) *UpdateManyModel {
	umm.Update = update
	return umm
}

// SetArrayFilters specifies a set of filters specifying to which array elements an update should apply.
func (umm *UpdateManyModel) SetArrayFilters(filters []interface{}) *UpdateManyModel {
	umm.ArrayFilters = filters
	return umm
}

// SetCollation sets the collation for the UpdateManyModel.
func (umm *UpdateManyModel) SetCollation(collation *options.Collation) *UpdateManyModel {
	umm.Collation = collation
	return umm
}

// SetHint sets the index for the UpdateManyModel.
func (umm *UpdateManyModel) SetHint(hint interface{}) *UpdateManyModel {
	umm.Hint = hint
	return umm
}

// SetUpsert specifies if a new document should be created if no document matches the query.
func (umm *UpdateManyModel) SetUpsert(upsert bool) *UpdateManyModel {
	umm.Upsert = &upsert
	return umm
}

func (umm *UpdateManyModel) writeRequest() (bulk.WriteRequest, error) {
	upd, err := transformUpdate(umm.Update)
	if err != nil {
		return nil, err
	}
	return updateRequest(umm.Filter, upd, umm.Collation, umm.ArrayFilters, umm.Hint, umm.Upsert, true)
}

func updateRequest(
	filter interface{},
	update bsoncore.Document,
	collation *options.Collation,
	arrayFilters []interface{},
	hint interface{},
	upsert *bool,
	multi bool,
) (bulk.WriteRequest, error) {
	f, err := transformDocument(filter)
	if err != nil {
		return nil, err
	}
	af, err := transformArray(arrayFilters)
	if err != nil {
		return nil, err
	}
	h, err := transformHint(hint)
	if err != nil {
		return nil, err
	}
	return &bulk.UpdateRequest{
		Filter:       f,
		Update:       update,
		Collation:    collation.ToDocument(),
		ArrayFilters: af,
		Hint:         h,
		IsMulti:      multi,
		IsUpsert:     upsert != nil && *upsert,
	}, nil
}

// transformUpdate requires every top level key of the update to be an
// update operator.
func transformUpdate(update interface{}) (bsoncore.Document, error) {
	doc, err := transformDocument(update)
	if err != nil {
		return nil, err
	}
	if err := ensureDollarKey(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ErrNonDollarKey is returned when an update document has a key that is
// not an update operator.
var ErrNonDollarKey = errors.New("update document must contain key beginning with '$'")

// ErrDollarKeyInReplacement is returned when a replacement document begins
// with an update operator.
var ErrDollarKeyInReplacement = errors.New("replacement document cannot contain keys beginning with '$'")

func ensureDollarKey(doc bsoncore.Document) error {
	elems, err := doc.Elements()
	if err != nil {
		return err
	}
	if len(elems) == 0 {
		return ErrNonDollarKey
	}
	for _, elem := range elems {
		if !strings.HasPrefix(elem.Key(), "$") {
			return ErrNonDollarKey
		}
	}
	return nil
}

// firstKeyIsOperator reports whether the first key of doc begins with '$'.
func firstKeyIsOperator(doc bsoncore.Document) bool {
	elems, err := doc.Elements()
	return err == nil && len(elems) > 0 && strings.HasPrefix(elems[0].Key(), "$")
}
