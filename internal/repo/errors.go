// Package repo implements the persistence layer: one GORM/SQLite store per
// chat, a factory that owns those stores, and the badger-backed global
// settings store. This file defines the error values returned by the layer.
package repo

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by SettingsStore.Get when the key is absent.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRecorded indicates that a live record with the same key was
	// inserted first (check-then-insert race between two writers).
	ErrAlreadyRecorded = errors.New("already recorded")

	// ErrInvalidTenantPath marks a storage root entry that looks like a tenant
	// directory but does not carry a parseable tenant id.
	ErrInvalidTenantPath = errors.New("invalid tenant path")

	// ErrConfiguration is returned when the storage root or a pool cannot be
	// set up from the given configuration.
	ErrConfiguration = errors.New("storage configuration error")
)

// StorageError wraps a failed storage operation (disk, lock contention,
// corruption). It unwraps to the driver error.
type StorageError struct {
	Op       string
	TenantID int64
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s (tenant %d): %v", e.Op, e.TenantID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageIO reports whether err is (or wraps) a *StorageError.
func IsStorageIO(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, tenantID int64, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, TenantID: tenantID, Err: err}
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "constraint failed: primary key")
}
