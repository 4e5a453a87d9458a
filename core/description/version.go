// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

import (
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/pkg/errors"
)

// Version represents a software version.
type Version struct {
	Desc  string
	Parts []uint8
}

// ParseVersion parses a server version string such as "3.6.4" or
// "4.0.0-rc1".
func ParseVersion(desc string) (Version, error) {
	s := desc
	// semver wants exactly three numeric components.
	if n := strings.Count(strings.SplitN(s, "-", 2)[0], "."); n < 2 {
		head, tail := s, ""
		if i := strings.Index(s, "-"); i >= 0 {
			head, tail = s[:i], s[i:]
		}
		s = head + strings.Repeat(".0", 2-n) + tail
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, errors.Wrapf(err, "invalid server version %q", desc)
	}
	return Version{
		Desc:  desc,
		Parts: []uint8{uint8(v.Major), uint8(v.Minor), uint8(v.Patch)},
	}, nil
}

// AtLeast ensures that the version is at least as large as the "other" version.
func (v Version) AtLeast(other ...uint8) bool {
	for i := range other {
		if i == len(v.Parts) {
			return false
		}
		if v.Parts[i] < other[i] {
			return false
		}
		if v.Parts[i] > other[i] {
			return true
		}
	}
	return true
}

// IsZero returns whether the version is unset.
func (v Version) IsZero() bool {
	return v.Desc == "" && v.Parts == nil
}

// String provides the string representation of the Version.
func (v Version) String() string {
	return v.Desc
}
