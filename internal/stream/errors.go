// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
)

// =============================================================================
// CLIENT ERRORS
// =============================================================================

// ClientError represents a transport failure talking to the generation service.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches client errors of the same type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeRemote
	ErrTypeTruncated
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning = &ClientError{Type: ErrTypeNotRunning, Message: "generation service is not reachable"}
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrTruncated  = &ClientError{Type: ErrTypeTruncated, Message: "stream ended before completion"}
)

// =============================================================================
// REPLY ERRORS
// =============================================================================

var (
	// ErrStream matches every StreamError.
	ErrStream = errors.New("reply stream failed")

	// ErrReplyBusy is returned when a reply is already streaming into the conversation.
	ErrReplyBusy = errors.New("reply already in progress")

	// ErrReplyCanceled is the outcome of a reply abandoned with Cancel or ctx.
	ErrReplyCanceled = errors.New("reply canceled")

	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// StreamError is a reply that failed mid-stream. The partial text is discarded.
type StreamError struct {
	ConversationID string
	Err            error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("reply for %s: %v", e.ConversationID, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Is reports ErrStream as a match.
func (e *StreamError) Is(target error) bool { return target == ErrStream }
