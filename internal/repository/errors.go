// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repository

var (
	// ErrConversationNotFound is returned when a mutation targets an unknown id.
	ErrConversationNotFound = &RepositoryError{Message: "conversation not found"}

	// ErrInvalidMessage is returned when a draft has an unknown role.
	ErrInvalidMessage = &RepositoryError{Message: "invalid message"}
)

// RepositoryError represents a repository-related error.
// Use errors.Is to compare.
type RepositoryError struct {
	Message string
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return e.Message
}

// Is implements errors.Is support.
func (e *RepositoryError) Is(target error) bool {
	t, ok := target.(*RepositoryError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
