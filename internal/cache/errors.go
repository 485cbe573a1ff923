// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"errors"
	"fmt"
)

// ErrMutationFailed matches every error returned by a rolled back mutation.
var ErrMutationFailed = errors.New("mutation failed")

// MutationError describes a rolled back mutation. Err is the repository error.
type MutationError struct {
	Op             Op
	ConversationID string
	Err            error
}

// Error implements the error interface.
func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ConversationID, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// Is reports ErrMutationFailed as a match.
func (e *MutationError) Is(target error) bool {
	return target == ErrMutationFailed
}
