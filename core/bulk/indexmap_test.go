// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeIndexMap(t *testing.T) {
	t.Run("Map", func(t *testing.T) {
		testCases := []struct {
			index, original, count int
		}{
			{0, 0, 1},
			{0, 10, 3},
			{2, 10, 5},
			{5, 0, 4},
		}
		for _, tc := range testCases {
			m := NewRangeIndexMap(tc.index, tc.original, tc.count)
			assert.True(t, m.IsRangeBased())
			for i := tc.index; i < tc.index+tc.count; i++ {
				got, err := m.Map(i)
				require.NoError(t, err)
				assert.Equal(t, tc.original+(i-tc.index), got)
			}
			_, err := m.Map(tc.index + tc.count)
			require.ErrorIs(t, err, ErrIndexOutOfRange)
			_, err = m.Map(tc.index - 1)
			require.ErrorIs(t, err, ErrIndexOutOfRange)
		}
	})
	t.Run("Add contiguous", func(t *testing.T) {
		m := NewRangeIndexMap(0, 0, 0)
		var im IndexMap = m
		for i := 0; i < 4; i++ {
			im = im.Add(i, 7+i)
			assert.Same(t, m, im)
		}
		assert.Equal(t, &RangeIndexMap{Index: 0, OriginalIndex: 7, Count: 4}, m)
	})
	t.Run("Add non-contiguous", func(t *testing.T) {
		m := NewRangeIndexMap(0, 5, 2)
		im := m.Add(2, 9)
		assert.False(t, im.IsRangeBased())
		for i, want := range []int{5, 6, 9} {
			got, err := im.Map(i)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		assert.Equal(t, 2, m.Count)
	})
}

func TestListIndexMap(t *testing.T) {
	l1 := ListIndexMap{}.Add(0, 3)
	l2 := l1.Add(1, 7)
	l3 := l1.Add(1, 8)

	got, err := l2.Map(1)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	got, err = l3.Map(1)
	require.NoError(t, err)
	assert.Equal(t, 8, got)

	_, err = l1.Map(1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	got, err = l1.Map(0)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	l4 := l2.Add(5, 0)
	got, err = l4.Map(5)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.Equal(t, 3, l4.(ListIndexMap).Len())
}

func TestIdentityIndexMap(t *testing.T) {
	m := IdentityIndexMap()
	got, err := m.Map(42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = m.Map(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	assert.Equal(t, m, m.Add(3, 3))

	im := m.Add(2, 7)
	for i, want := range []int{0, 1, 7} {
		got, err := im.Map(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
