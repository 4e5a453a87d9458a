// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

// Wire versions at which write features became available.
const (
	WireVersion26 int32 = 2 // write commands
	WireVersion32 int32 = 4 // bypassDocumentValidation
	WireVersion34 int32 = 5 // collation
	WireVersion36 int32 = 6 // arrayFilters, OP_MSG
	WireVersion42 int32 = 8 // hint on update
)

// VersionRange is the wire version range a server reports in isMaster.
type VersionRange struct {
	Min int32
	Max int32
}

// Capabilities is the set of write features a server supports. It is
// resolved once per connection from the server's wire version and consulted
// everywhere a feature must be gated.
type Capabilities struct {
	WriteCommands            bool
	BypassDocumentValidation bool
	Collation                bool
	ArrayFilters             bool
	OpMsg                    bool
	UpdateHint               bool
}

// CapabilitiesFor resolves the capabilities of a server with the given wire
// version range. A nil range is a server that only speaks legacy opcodes.
func CapabilitiesFor(wv *VersionRange) Capabilities {
	if wv == nil {
		return Capabilities{}
	}
	return Capabilities{
		WriteCommands:            wv.Max >= WireVersion26,
		BypassDocumentValidation: wv.Max >= WireVersion32,
		Collation:                wv.Max >= WireVersion34,
		ArrayFilters:             wv.Max >= WireVersion36,
		OpMsg:                    wv.Max >= WireVersion36,
		UpdateHint:               wv.Max >= WireVersion42,
	}
}
