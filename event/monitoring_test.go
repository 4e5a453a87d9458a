// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	assert.Nil(t, Combine(nil, nil))

	var started, finished int
	m := &BulkMonitor{
		BatchStarted:  func(context.Context, *BatchStartedEvent) { started++ },
		BatchFinished: func(context.Context, *BatchFinishedEvent) { finished++ },
	}
	assert.Same(t, m, Combine(nil, m))

	combined := Combine(m, &BulkMonitor{}, m)
	combined.Started(context.Background(), &BatchStartedEvent{})
	combined.Finished(context.Background(), &BatchFinishedEvent{})
	assert.Equal(t, 2, started)
	assert.Equal(t, 2, finished)

	var nilMonitor *BulkMonitor
	nilMonitor.Started(context.Background(), &BatchStartedEvent{})
}
