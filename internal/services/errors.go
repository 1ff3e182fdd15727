// Package services holds the bot's business logic: the dedup policy that turns
// store lookups into "new" vs "duplicate" decisions, and the retention sweeper.
// This file centralizes service-level error values so callers can check them
// with errors.Is.
//
// Storage failures are not redeclared here; they arrive as *repo.StorageError
// and are reported to the caller unchanged (wrapped with %w).
package services

import "errors"

var (
	// ErrNoPhoto is returned when /setimage is not a reply to a photo.
	ErrNoPhoto = errors.New("replied message has no photo")

	// ErrNotOwner is returned when a non-owner calls an owner-only operation.
	ErrNotOwner = errors.New("operation is restricted to the bot owner")

	// ErrSweepInProgress is returned by Sweeper.RunOnce when another sweep is
	// still running.
	ErrSweepInProgress = errors.New("sweep already in progress")

	// ErrEmptyEvent is returned for events that carry nothing to check.
	ErrEmptyEvent = errors.New("event has nothing to check")
)
