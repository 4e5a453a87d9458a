// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package core

import (
	"strings"

	"github.com/pkg/errors"
)

// Namespace encapsulates a database and collection name, which together
// uniquely identifies a collection within a MongoDB cluster.
type Namespace struct {
	DB         string
	Collection string
}

// ParseNamespace parses a namespace string into a Namespace.
//
// The namespace string must contain at least one ".", the first of which is the separator
// between the database and collection names. After the namespace string is split,
// the rules in NewNamespace are applied.
func ParseNamespace(fullName string) (Namespace, error) {
	idx := strings.Index(fullName, ".")
	if idx == -1 {
		return Namespace{}, errors.Errorf("namespace %q must contain a '.'", fullName)
	}
	return NewNamespace(fullName[:idx], fullName[idx+1:])
}

// NewNamespace creates a Namespace from the given database and collection names.
//
// Neither can be empty, and the database name may not contain a "." or " " character.
func NewNamespace(db, collection string) (Namespace, error) {
	ns := Namespace{DB: db, Collection: collection}
	return ns, ns.Validate()
}

// Validate checks the database and collection names.
func (ns Namespace) Validate() error {
	switch {
	case ns.Collection == "":
		return errors.New("collection name cannot be empty")
	case ns.DB == "":
		return errors.New("database name cannot be empty")
	case strings.ContainsAny(ns.DB, " ."):
		return errors.Errorf("database name %q cannot contain ' ' or '.'", ns.DB)
	}
	return nil
}

// FullName returns the full namespace string, which is the result of joining the database
// name and the collection name with a "." character.
func (ns Namespace) FullName() string {
	return ns.DB + "." + ns.Collection
}

// String implements the fmt.Stringer interface.
func (ns Namespace) String() string {
	return ns.FullName()
}
