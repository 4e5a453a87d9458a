// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package channel

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

var (
	// ErrNoCommandResponse occurs when the server sent no response document to a command.
	ErrNoCommandResponse = errors.New("no command response document")
	// ErrMultiDocCommandResponse occurs when the server sent multiple documents in response to a command.
	ErrMultiDocCommandResponse = errors.New("command returned multiple documents")
)

// QueryFailureError is an error representing a command failure as a document.
type QueryFailureError struct {
	Message  string
	Response bsoncore.Document
}

// Error implements the error interface.
func (e QueryFailureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Response)
}

// ResponseError is an error parsing the response to a command.
type ResponseError struct {
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e ResponseError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Wrapped)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e ResponseError) Unwrap() error { return e.Wrapped }

// Error is a command execution error from the database.
type Error struct {
	Code    int32
	Message string
	Labels  []string
	Name    string
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("(%v) %v", e.Name, e.Message)
	}
	return e.Message
}

// HasErrorLabel returns true if the error contains the specified label.
func (e Error) HasErrorLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// extractError returns an Error when the reply does not have ok: 1.
func extractError(reply bsoncore.Document) error {
	elems, err := reply.Elements()
	if err != nil {
		return ResponseError{Message: "malformed command response", Wrapped: err}
	}

	var ok bool
	var e Error
	for _, elem := range elems {
		val := elem.Value()
		switch elem.Key() {
		case "ok":
			if b, isBool := val.BooleanOK(); isBool {
				ok = b
			} else if n, isNum := val.AsInt64OK(); isNum {
				ok = n == 1
			}
		case "errmsg":
			e.Message, _ = val.StringValueOK()
		case "codeName":
			e.Name, _ = val.StringValueOK()
		case "code":
			if c, isInt := val.AsInt64OK(); isInt {
				e.Code = int32(c)
			}
		case "errorLabels":
			arr, isArr := val.ArrayOK()
			if !isArr {
				continue
			}
			vals, err := arr.Values()
			if err != nil {
				continue
			}
			for _, v := range vals {
				if s, isStr := v.StringValueOK(); isStr {
					e.Labels = append(e.Labels, s)
				}
			}
		}
	}

	if ok {
		return nil
	}
	if e.Message == "" {
		e.Message = "command failed"
	}
	return e
}
