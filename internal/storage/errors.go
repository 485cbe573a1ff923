// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBlobNotFound is returned by BlobStore.Get when the key has never been set.
	ErrBlobNotFound = &StorageError{Message: "blob not found"}

	// ErrStorageCorrupt marks a persisted blob that could not be decoded.
	// Adapter.Load recovers from it by reseeding and only logs it.
	ErrStorageCorrupt = &StorageError{Message: "storage blob corrupt"}

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = &StorageError{Message: "store closed"}

	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = &StorageError{Message: "unknown storage driver"}
)

// StorageError represents a storage-related error.
// It can be compared using errors.Is.
type StorageError struct {
	Message string
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing storage errors.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
