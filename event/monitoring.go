// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package event contains hooks that are invoked as commands are sent,
// connections are pooled and bulk write batches are executed.
package event

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// CommandStartedEvent represents an event generated when a command is sent to a server.
type CommandStartedEvent struct {
	Command      bsoncore.Document
	DatabaseName string
	CommandName  string
	RequestID    int64
	ConnectionID string
}

// CommandFinishedEvent represents a generic command finishing.
type CommandFinishedEvent struct {
	Duration     time.Duration
	CommandName  string
	RequestID    int64
	ConnectionID string
}

// CommandSucceededEvent represents an event generated when a command's execution succeeds.
type CommandSucceededEvent struct {
	CommandFinishedEvent
	Reply bsoncore.Document
}

// CommandFailedEvent represents an event generated when a command's execution fails.
type CommandFailedEvent struct {
	CommandFinishedEvent
	Failure string
}

// CommandMonitor represents a monitor that is triggered for different events.
type CommandMonitor struct {
	Started   func(context.Context, *CommandStartedEvent)
	Succeeded func(context.Context, *CommandSucceededEvent)
	Failed    func(context.Context, *CommandFailedEvent)
}

// strings for pool command monitoring types
const (
	ConnectionCreated  = "ConnectionCreated"
	ConnectionClosed   = "ConnectionClosed"
	GetSucceeded       = "ConnectionCheckedOut"
	GetFailed          = "ConnectionCheckOutFailed"
	ConnectionReturned = "ConnectionCheckedIn"
	PoolClosedEvent    = "ConnectionPoolClosed"
)

// PoolEvent contains all information summarizing a pool event
type PoolEvent struct {
	Type         string `json:"type"`
	Address      string `json:"address"`
	ConnectionID uint64 `json:"connectionId"`
	Reason       string `json:"reason"`
}

// PoolMonitor is a function that allows the user to gain access to events occurring in the pool
type PoolMonitor struct {
	Event func(*PoolEvent)
}

// BatchStartedEvent is generated before a bulk write batch is sent.
type BatchStartedEvent struct {
	Namespace    string
	CommandName  string
	ConnectionID string
	RequestCount int
	Bytes        int
	Emulated     bool
}

// BatchFinishedEvent is generated after a bulk write batch completes,
// successfully or not.
type BatchFinishedEvent struct {
	Namespace    string
	CommandName  string
	ConnectionID string
	RequestCount int
	Bytes        int
	Duration     time.Duration
	WriteErrors  int
	// Failure is set when the batch could not be executed at all.
	Failure error
}

// BulkMonitor is triggered for every batch of a bulk write.
type BulkMonitor struct {
	BatchStarted  func(context.Context, *BatchStartedEvent)
	BatchFinished func(context.Context, *BatchFinishedEvent)
}

// Started invokes the BatchStarted hook if it is set.
func (m *BulkMonitor) Started(ctx context.Context, evt *BatchStartedEvent) {
	if m != nil && m.BatchStarted != nil {
		m.BatchStarted(ctx, evt)
	}
}

// Finished invokes the BatchFinished hook if it is set.
func (m *BulkMonitor) Finished(ctx context.Context, evt *BatchFinishedEvent) {
	if m != nil && m.BatchFinished != nil {
		m.BatchFinished(ctx, evt)
	}
}

// Combine returns a monitor that forwards every event to each of monitors.
func Combine(monitors ...*BulkMonitor) *BulkMonitor {
	var ms []*BulkMonitor
	for _, m := range monitors {
		if m != nil {
			ms = append(ms, m)
		}
	}
	switch len(ms) {
	case 0:
		return nil
	case 1:
		return ms[0]
	}
	return &BulkMonitor{
		BatchStarted: func(ctx context.Context, evt *BatchStartedEvent) {
			for _, m := range ms {
				m.Started(ctx, evt)
			}
		},
		BatchFinished: func(ctx context.Context, evt *BatchFinishedEvent) {
			for _, m := range ms {
				m.Finished(ctx, evt)
			}
		},
	}
}
