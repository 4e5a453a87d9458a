// Copyright (C) MongoDB, Inc. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package options defines the optional configurations for the mongo package.
// Each options type has a builder whose setters are applied in order by
// Merge, so a later builder overrides an earlier one.
package options

// Lister is an interface that wraps a List method to return a slice of
// setter functions for an options type.
type Lister[T any] interface {
	List() []func(*T) error
}

// Merge applies the setters of every lister, in order, to a new T.
func Merge[T any](listers ...Lister[T]) (*T, error) {
	opts := new(T)
	for _, l := range listers {
		if l == nil {
			continue
		}
		for _, setterFn := range l.List() {
			if setterFn == nil {
				continue
			}
			if err := setterFn(opts); err != nil {
				return nil, err
			}
		}
	}
	return opts, nil
}
