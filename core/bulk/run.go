// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

// Run is a sequence of requests of one type that is executed by a single
// UnmixedWriteOperation. IndexMap maps positions in Requests to positions in
// the request list the run was split from.
type Run struct {
	Requests []WriteRequest
	IndexMap IndexMap
}

func newRun() *Run {
	return &Run{IndexMap: NewRangeIndexMap(0, 0, 0)}
}

func (r *Run) add(req WriteRequest, originalIndex int) {
	r.IndexMap = r.IndexMap.Add(len(r.Requests), originalIndex)
	r.Requests = append(r.Requests, req)
}

// RequestType returns the type of the requests in the run.
func (r *Run) RequestType() RequestType {
	if len(r.Requests) == 0 {
		return 0
	}
	return r.Requests[0].RequestType()
}

// Len returns the number of requests in the run.
func (r *Run) Len() int { return len(r.Requests) }

// runSplitter groups requests into runs lazily. In ordered mode a run ends
// when the request type changes or the run is full. In unordered mode there
// is one open run per type; a full run is emitted at once and the open runs
// are emitted in the order they were started when the input is exhausted.
type runSplitter struct {
	requests     []WriteRequest
	ordered      bool
	maxRunLength int
	pos          int

	open  []*Run
	ready []*Run

	peeked *Run
}

func newRunSplitter(requests []WriteRequest, ordered bool, maxRunLength int) (*runSplitter, error) {
	if len(requests) == 0 {
		return nil, ErrEmptyBulkWrite
	}
	if maxRunLength < 1 {
		return nil, ErrInvalidBatchCount
	}
	return &runSplitter{requests: requests, ordered: ordered, maxRunLength: maxRunLength}, nil
}

// next returns the next run and whether it is the last one. It returns nil
// once every run has been returned.
func (s *runSplitter) next() (*Run, bool) {
	run := s.peeked
	s.peeked = nil
	if run == nil {
		run = s.find()
	}
	if run == nil {
		return nil, true
	}
	s.peeked = s.find()
	return run, s.peeked == nil
}

// drain returns the requests of every run not yet returned by next.
func (s *runSplitter) drain() []WriteRequest {
	var rest []WriteRequest
	for run, _ := s.next(); run != nil; run, _ = s.next() {
		rest = append(rest, run.Requests...)
	}
	return rest
}

func (s *runSplitter) find() *Run {
	if s.ordered {
		return s.findOrdered()
	}
	return s.findUnordered()
}

func (s *runSplitter) findOrdered() *Run {
	if s.pos >= len(s.requests) {
		return nil
	}
	run := newRun()
	rt := s.requests[s.pos].RequestType()
	for s.pos < len(s.requests) && run.Len() < s.maxRunLength && s.requests[s.pos].RequestType() == rt {
		run.add(s.requests[s.pos], s.pos)
		s.pos++
	}
	return run
}

func (s *runSplitter) findUnordered() *Run {
	for len(s.ready) == 0 && s.pos < len(s.requests) {
		req := s.requests[s.pos]
		run := s.openRun(req.RequestType())
		if run.Len() == s.maxRunLength {
			s.closeRun(run)
			s.ready = append(s.ready, run)
			run = s.openRun(req.RequestType())
		}
		run.add(req, s.pos)
		s.pos++
	}

	if len(s.ready) > 0 {
		run := s.ready[0]
		s.ready = s.ready[1:]
		return run
	}
	if len(s.open) > 0 {
		run := s.open[0]
		s.open = s.open[1:]
		return run
	}
	return nil
}

func (s *runSplitter) openRun(rt RequestType) *Run {
	for _, run := range s.open {
		if run.RequestType() == rt {
			return run
		}
	}
	run := newRun()
	s.open = append(s.open, run)
	return run
}

func (s *runSplitter) closeRun(run *Run) {
	for i, r := range s.open {
		if r == run {
			s.open = append(s.open[:i], s.open[i+1:]...)
			return
		}
	}
}
