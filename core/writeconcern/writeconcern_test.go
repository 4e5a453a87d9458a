// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package writeconcern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

func TestWriteConcern(t *testing.T) {
	t.Run("Acknowledged", func(t *testing.T) {
		testCases := []struct {
			name string
			wc   *WriteConcern
			ack  bool
		}{
			{"nil", nil, true},
			{"empty", New(), true},
			{"w0", Unacknowledged(), false},
			{"w1", W1(), true},
			{"majority", New(WMajority()), true},
			{"w0 j", New(W(0), J(true)), true},
			{"w0 j false", New(W(0), J(false)), false},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				assert.Equal(t, tc.ack, tc.wc.Acknowledged())
				assert.Equal(t, tc.ack, AckWrite(tc.wc))
			})
		}
	})
	t.Run("IsServerDefault", func(t *testing.T) {
		assert.True(t, (*WriteConcern)(nil).IsServerDefault())
		assert.True(t, New().IsServerDefault())
		assert.False(t, W1().IsServerDefault())
		assert.False(t, New(J(false)).IsServerDefault())
	})
	t.Run("Validate", func(t *testing.T) {
		require.Equal(t, ErrInconsistent, New(W(0), J(true)).Validate())
		require.Equal(t, ErrNegativeW, New(W(-1)).Validate())
		require.Equal(t, ErrNegativeWTimeout, New(WTimeout(-time.Second)).Validate())
		require.NoError(t, New(WMajority(), J(true), WTimeout(time.Second)).Validate())
	})
	t.Run("AppendElement", func(t *testing.T) {
		dst, err := New().AppendElement(nil)
		require.NoError(t, err)
		require.Empty(t, dst)

		idx, dst := bsoncore.AppendDocumentStart(nil)
		dst, err = New(WMajority(), J(true), WTimeout(1500*time.Millisecond)).AppendElement(dst)
		require.NoError(t, err)
		dst, err = bsoncore.AppendDocumentEnd(dst, idx)
		require.NoError(t, err)

		wcDoc := bsoncore.Document(dst).Lookup("writeConcern").Document()
		assert.Equal(t, "majority", wcDoc.Lookup("w").StringValue())
		assert.True(t, wcDoc.Lookup("j").Boolean())
		assert.Equal(t, int64(1500), wcDoc.Lookup("wtimeout").Int64())
	})
	t.Run("AppendGetLastErrorFields", func(t *testing.T) {
		dst := bsoncore.AppendInt32Element(nil, "getLastError", 1)
		dst, err := W1().AppendGetLastErrorFields(dst)
		require.NoError(t, err)
		doc := bsoncore.BuildDocument(nil, dst)
		assert.Equal(t, int32(1), bsoncore.Document(doc).Lookup("w").Int32())
	})
}

func TestParse(t *testing.T) {
	wc, err := Parse("2", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, wc.GetW())

	wc, err = Parse("majority", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "majority", wc.GetW())
	assert.Equal(t, time.Second, wc.GetWTimeout())

	wc, err = Parse("dc1", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "dc1", wc.GetW())

	journal := true
	_, err = Parse("0", &journal, 0)
	require.Equal(t, ErrInconsistent, err)
}
