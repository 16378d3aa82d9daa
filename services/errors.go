package services

import "errors"

var (
	ErrLeagueNotFound = errors.New("league not found")
	ErrMatchNotFound  = errors.New("match not found")

	ErrInsufficientParticipants = errors.New("at least 2 participants (or complete teams) are required")
	ErrInvalidTransition        = errors.New("invalid match status transition")
	ErrInvalidLeagueState       = errors.New("operation not allowed in the current league status")
	ErrLeagueCompleted          = errors.New("league is completed")
	ErrPermissionDenied         = errors.New("operation not allowed for the current user")

	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidScore     = errors.New("invalid score or winner")
	ErrReasonRequired   = errors.New("a reason is required")
	ErrDateRequired     = errors.New("a new date is required")

	// ErrDuplicatePlayoffCreation marks a second playoff creation attempt. It aborts the
	// league update and is turned into a no-op before reaching callers.
	ErrDuplicatePlayoffCreation = errors.New("playoff already created")
)
