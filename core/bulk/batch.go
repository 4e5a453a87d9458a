// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import "github.com/pkg/errors"

// overflow is a request that was serialized into a batch and taken back
// because the batch went over a limit. It starts the next batch.
type overflow struct {
	request    WriteRequest
	serialized []byte
}

// batchSource hands out the requests of a run one batch at a time.
type batchSource struct {
	remaining  []WriteRequest
	pending    *overflow
	canBeSplit bool
	// offset is the run index of the first request of the next batch.
	offset int
}

func newBatchSource(requests []WriteRequest, canBeSplit bool) *batchSource {
	return &batchSource{remaining: requests, canBeSplit: canBeSplit}
}

func (s *batchSource) hasMore() bool {
	return s.pending != nil || len(s.remaining) > 0
}

// remainingRequests returns the requests that have not been put in a batch.
func (s *batchSource) remainingRequests() []WriteRequest {
	var rest []WriteRequest
	if s.pending != nil {
		rest = append(rest, s.pending.request)
	}
	return append(rest, s.remaining...)
}

// batch is the set of requests serialized into one write command.
type batch struct {
	requests []WriteRequest
	// offset is the run index of requests[0].
	offset int
	// length is the serialized length of the request array.
	length int
	last   bool
}

type serializeFunc func(dst []byte, req WriteRequest) ([]byte, error)

// nextBatch serializes requests into enc until one past maxCount or
// maxLength has been written. The request that went over is taken back
// and kept for the next batch unless it is the only one, in which case it
// can never be sent.
func (s *batchSource) nextBatch(enc *arrayEncoder, serialize serializeFunc, maxCount, maxLength int) (batch, error) {
	b := batch{offset: s.offset}
	if s.pending != nil {
		enc.writeDocument(s.pending.serialized)
		b.requests = append(b.requests, s.pending.request)
		s.pending = nil
	}

	over := func() bool { return len(b.requests) > maxCount || enc.length() > maxLength }
	for len(s.remaining) > 0 && !over() {
		req := s.remaining[0]
		doc, err := serialize(nil, req)
		if err != nil {
			return b, err
		}
		enc.writeDocument(doc)
		b.requests = append(b.requests, req)
		s.remaining = s.remaining[1:]
	}

	if over() {
		switch {
		case !s.canBeSplit:
			return b, ErrNonBatchableRequestsTooLarge
		case len(b.requests) == 1:
			return b, errors.Wrapf(ErrRequestTooLarge, "request at index %d is %d bytes, limit %d", b.offset, enc.length(), maxLength)
		}
		last := len(b.requests) - 1
		s.pending = &overflow{request: b.requests[last], serialized: enc.takeLastWrittenElement()}
		b.requests = b.requests[:last]
	}

	s.offset += len(b.requests)
	b.length = enc.length()
	b.last = !s.hasMore()
	return b, nil
}
