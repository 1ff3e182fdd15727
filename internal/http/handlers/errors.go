package handlers

// Stable error codes of the admin API.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"
	ErrCodeUnavailable      = "unavailable"

	// Domain-specific:
	ErrCodeListFailed  = "list_failed"
	ErrCodeStatsFailed = "stats_failed"
	ErrCodeSweepFailed = "sweep_failed"
)
