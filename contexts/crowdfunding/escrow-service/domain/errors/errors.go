package errors

import "errors"

// Failure kinds. Every rejected operation returns an error that matches exactly
// one of these with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAlreadyVoted      = errors.New("caller already voted on this request")
	ErrAlreadyFinalized  = errors.New("request already finalized")
	ErrQuorumNotMet      = errors.New("approval quorum not met")
	ErrInsufficientFunds = errors.New("insufficient escrow balance")
)

var (
	ErrInvalidTarget          = newKindError(ErrInvalidArgument, "campaign target must be a positive amount")
	ErrInvalidAmount          = newKindError(ErrInvalidArgument, "amount must be positive")
	ErrInvalidRequestValue    = newKindError(ErrInvalidArgument, "request value must be positive")
	ErrInvalidRecipient       = newKindError(ErrInvalidArgument, "recipient must be a valid address")
	ErrInvalidIdentity        = newKindError(ErrInvalidArgument, "identity must be a valid address")
	ErrInvalidListFilter      = newKindError(ErrInvalidArgument, "invalid list filter")
	ErrIdempotencyKeyConflict = newKindError(ErrInvalidArgument, "idempotency key reused with different request")

	ErrCampaignNotFound = newKindError(ErrNotFound, "campaign not found")
	ErrRequestNotFound  = newKindError(ErrNotFound, "disbursement request not found")

	ErrCallerRequired    = newKindError(ErrUnauthorized, "caller identity is required")
	ErrNotCampaignOwner  = newKindError(ErrUnauthorized, "caller is not the campaign owner")
	ErrNotContributor    = newKindError(ErrUnauthorized, "caller is not a contributor to the campaign")
	ErrInvariantViolated = errors.New("escrow invariant violated")
)

type kindError struct {
	kind    error
	message string
}

func newKindError(kind error, message string) error {
	return &kindError{kind: kind, message: message}
}

func (e *kindError) Error() string {
	return e.message
}

func (e *kindError) Unwrap() error {
	return e.kind
}
