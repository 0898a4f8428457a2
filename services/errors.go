package services

import "errors"

// Shared sentinels mapped to HTTP statuses in the handlers. Validation errors
// are non-retryable; conflict errors are retryable after the caller refreshes
// its snapshot.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business-rule failures.
	ErrValidationFailed       = errors.New("validation failed")
	ErrEventNameRequired      = errors.New("event name is required")
	ErrEventDatesRequired     = errors.New("event dates are required")
	ErrEventInvalidRegDate    = errors.New("event registration date cannot be after start date")
	ErrEventInvalidDateRange  = errors.New("event end date must be after start date")
	ErrEventInvalidStatus     = errors.New("invalid event status provided")
	ErrEventStatusTransition  = errors.New("invalid event status transition")
	ErrEventKindImmutable     = errors.New("event kind cannot change after creation")
	ErrMatchLockedEdit        = errors.New("match is locked; unlock it before editing")
	ErrMatchDeleteLocked      = errors.New("locked match cannot be deleted")
	ErrMatchDeleteReferenced  = errors.New("match is referenced by downstream bracket edges")
	ErrClientIDRequired       = errors.New("create entry requires a clientId")
	ErrClientIDDuplicate      = errors.New("duplicate clientId in one batch")
	ErrStandingsNotConfirmed  = errors.New("standings are not confirmed for this division")
	ErrPlayoffTargetsMissing  = errors.New("division has no playoff placement divisions configured")
	ErrPlayoffCapacityInvalid = errors.New("playoff team count does not fit the placement divisions")
	ErrOverrideTeamInvalid    = errors.New("override references a team outside the division")

	// Conflicts.
	ErrEventNameConflict    = errors.New("event name already exists")
	ErrTeamNameConflict     = errors.New("team name is already in use")
	ErrBookingConflict      = errors.New("requested interval is no longer free")
	ErrConfirmationConflict = errors.New("standings were confirmed concurrently")

	// Entity-specific not-founds, kept distinct for precise responses.
	ErrEventNotFound     = errors.New("event not found")
	ErrDivisionNotFound  = errors.New("division not found")
	ErrTeamNotFound      = errors.New("team not found")
	ErrSportNotFound     = errors.New("sport not found")
	ErrProfileNotFound   = errors.New("scoring profile not found")
	ErrFieldNotFound     = errors.New("field not found")
	ErrMatchNotFound     = errors.New("match not found")
	ErrCandidateNotFound = errors.New("booking candidate not found")
	ErrRentalNotFound    = errors.New("rental not found")

	// Authorization.
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
)
