// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNamespace(t *testing.T) {
	testCases := []struct {
		name    string
		full    string
		want    Namespace
		wantErr bool
	}{
		{"simple", "test.coll", Namespace{DB: "test", Collection: "coll"}, false},
		{"dotted collection", "test.a.b", Namespace{DB: "test", Collection: "a.b"}, false},
		{"no dot", "test", Namespace{}, true},
		{"empty collection", "test.", Namespace{}, true},
		{"empty database", ".coll", Namespace{}, true},
		{"space in database", "te st.coll", Namespace{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ns, err := ParseNamespace(tc.full)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, ns)
			require.Equal(t, tc.full, ns.FullName())
		})
	}
}
