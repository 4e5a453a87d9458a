// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import "github.com/pkg/errors"

// IndexMap translates the index of a request within a batch or run to its
// index in the caller's request list.
type IndexMap interface {
	// IsRangeBased reports whether the map is a single contiguous range.
	IsRangeBased() bool
	// Map returns the original index of index.
	Map(index int) (int, error)
	// Add returns a map that also maps index to originalIndex. Only a
	// RangeIndexMap is updated in place; other maps are left unchanged.
	Add(index, originalIndex int) IndexMap
}

type identityIndexMap struct{}

// IdentityIndexMap returns the map in which every index maps to itself.
func IdentityIndexMap() IndexMap { return identityIndexMap{} }

func (identityIndexMap) IsRangeBased() bool { return false }

func (identityIndexMap) Map(index int) (int, error) {
	if index < 0 {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "index %d", index)
	}
	return index, nil
}

func (m identityIndexMap) Add(index, originalIndex int) IndexMap {
	if index == originalIndex {
		return m
	}
	var list IndexMap = ListIndexMap{}
	for i := 0; i < index; i++ {
		list = list.Add(i, i)
	}
	return list.Add(index, originalIndex)
}

// RangeIndexMap maps the Count indexes starting at Index to the indexes
// starting at OriginalIndex.
type RangeIndexMap struct {
	Index         int
	OriginalIndex int
	Count         int
}

// NewRangeIndexMap returns a range-based map.
func NewRangeIndexMap(index, originalIndex, count int) *RangeIndexMap {
	return &RangeIndexMap{Index: index, OriginalIndex: originalIndex, Count: count}
}

// IsRangeBased implements the IndexMap interface.
func (*RangeIndexMap) IsRangeBased() bool { return true }

// Map implements the IndexMap interface.
func (m *RangeIndexMap) Map(index int) (int, error) {
	if index < m.Index || index >= m.Index+m.Count {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "index %d not in [%d, %d)", index, m.Index, m.Index+m.Count)
	}
	return m.OriginalIndex + (index - m.Index), nil
}

// Add extends the range in place when the entry is contiguous with it and
// otherwise returns a ListIndexMap holding the range plus the entry.
func (m *RangeIndexMap) Add(index, originalIndex int) IndexMap {
	if m.Count == 0 {
		m.Index, m.OriginalIndex, m.Count = index, originalIndex, 1
		return m
	}
	if index == m.Index+m.Count && originalIndex == m.OriginalIndex+m.Count {
		m.Count++
		return m
	}
	entries := make([]indexEntry, 0, m.Count+1)
	for i := 0; i < m.Count; i++ {
		entries = append(entries, indexEntry{index: m.Index + i, originalIndex: m.OriginalIndex + i})
	}
	entries = append(entries, indexEntry{index: index, originalIndex: originalIndex})
	return ListIndexMap{entries: &entries, n: len(entries)}
}

type indexEntry struct {
	index         int
	originalIndex int
}

// ListIndexMap maps arbitrary indexes. It is persistent: Add never changes
// the entries visible through an existing value.
type ListIndexMap struct {
	// entries is shared by the maps derived from one another; each map sees
	// only the first n entries.
	entries *[]indexEntry
	n       int
}

// IsRangeBased implements the IndexMap interface.
func (ListIndexMap) IsRangeBased() bool { return false }

// Len returns the number of entries.
func (m ListIndexMap) Len() int { return m.n }

// Map implements the IndexMap interface.
func (m ListIndexMap) Map(index int) (int, error) {
	if m.entries == nil {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "index %d", index)
	}
	entries := (*m.entries)[:m.n]
	if index >= 0 && index < len(entries) && entries[index].index == index {
		return entries[index].originalIndex, nil
	}
	for _, e := range entries {
		if e.index == index {
			return e.originalIndex, nil
		}
	}
	return 0, errors.Wrapf(ErrIndexOutOfRange, "index %d", index)
}

// Add implements the IndexMap interface.
func (m ListIndexMap) Add(index, originalIndex int) IndexMap {
	e := indexEntry{index: index, originalIndex: originalIndex}
	if m.entries != nil && len(*m.entries) == m.n {
		*m.entries = append(*m.entries, e)
		return ListIndexMap{entries: m.entries, n: m.n + 1}
	}
	entries := make([]indexEntry, m.n, m.n+1)
	if m.entries != nil {
		copy(entries, (*m.entries)[:m.n])
	}
	entries = append(entries, e)
	return ListIndexMap{entries: &entries, n: m.n + 1}
}
