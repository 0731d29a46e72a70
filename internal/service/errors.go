package service

import "errors"

// Domain errors surfaced to the HTTP layer. Handlers map these to status
// codes; anything else is a 500.
var (
	ErrNotParticipant      = errors.New("user is not a participant of this project")
	ErrNotAllowed          = errors.New("operation not allowed for this role")
	ErrProjectNotOpen      = errors.New("project is not accepting applications")
	ErrAlreadyApplied      = errors.New("professional already has a pending application")
	ErrChatClosed          = errors.New("chat is read-only at this project status")
	ErrNoCounterpart       = errors.New("project has no assigned professional yet")
	ErrInvalidUpdateType   = errors.New("invalid update type")
	ErrInvoiceNotAvailable = errors.New("invoice is not available at this project status")
	ErrInvoiceNotPending   = errors.New("invoice is not pending")
	ErrReviewNotAvailable  = errors.New("reviews open once the project is paid")
	ErrAlreadyReviewed     = errors.New("a review for this role already exists")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)
