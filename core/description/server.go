// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

import (
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// Defaults used when a server does not report its limits.
const (
	DefaultMaxBatchCount   = 1000
	DefaultMaxDocumentSize = 16 * 1024 * 1024
	DefaultMaxMessageSize  = 48000000
)

// Server represents a description of a server. This is created from an isMaster
// command and, optionally, a buildInfo command.
type Server struct {
	Addr string

	Compression     []string
	GitVersion      string
	LastUpdateTime  time.Time
	MaxBatchCount   int
	MaxDocumentSize int
	MaxMessageSize  int
	WireVersion     *VersionRange
	Version         Version
}

// NewServer creates a new server description from the given isMaster and
// buildInfo replies. buildInfo may be nil.
func NewServer(addr string, isMaster, buildInfo bsoncore.Document) (Server, error) {
	s := Server{
		Addr:            addr,
		LastUpdateTime:  time.Now().UTC(),
		MaxBatchCount:   DefaultMaxBatchCount,
		MaxDocumentSize: DefaultMaxDocumentSize,
		MaxMessageSize:  DefaultMaxMessageSize,
	}

	elems, err := isMaster.Elements()
	if err != nil {
		return s, errors.Wrap(err, "malformed isMaster reply")
	}

	var minWire, maxWire int32
	var hasWire bool
	for _, elem := range elems {
		switch elem.Key() {
		case "ok":
			if ok, _ := elem.Value().AsInt64OK(); ok != 1 {
				return s, errors.New("isMaster reply not ok")
			}
		case "maxWriteBatchSize":
			if n, ok := elem.Value().AsInt64OK(); ok {
				s.MaxBatchCount = int(n)
			}
		case "maxBsonObjectSize":
			if n, ok := elem.Value().AsInt64OK(); ok {
				s.MaxDocumentSize = int(n)
			}
		case "maxMessageSizeBytes":
			if n, ok := elem.Value().AsInt64OK(); ok {
				s.MaxMessageSize = int(n)
			}
		case "minWireVersion":
			if n, ok := elem.Value().AsInt64OK(); ok {
				minWire, hasWire = int32(n), true
			}
		case "maxWireVersion":
			if n, ok := elem.Value().AsInt64OK(); ok {
				maxWire, hasWire = int32(n), true
			}
		case "compression":
			arr, ok := elem.Value().ArrayOK()
			if !ok {
				continue
			}
			vals, err := arr.Values()
			if err != nil {
				return s, errors.Wrap(err, "malformed compression list")
			}
			for _, v := range vals {
				if c, ok := v.StringValueOK(); ok {
					s.Compression = append(s.Compression, c)
				}
			}
		}
	}

	if hasWire {
		s.WireVersion = &VersionRange{Min: minWire, Max: maxWire}
	}

	if buildInfo != nil {
		if gv, ok := buildInfo.Lookup("gitVersion").StringValueOK(); ok {
			s.GitVersion = gv
		}
		if desc, ok := buildInfo.Lookup("version").StringValueOK(); ok {
			v, err := ParseVersion(desc)
			if err != nil {
				return s, err
			}
			s.Version = v
		}
	}

	return s, nil
}

// Capabilities returns the write features this server supports.
func (s Server) Capabilities() Capabilities {
	return CapabilitiesFor(s.WireVersion)
}
