package domain

import "errors"

// Expected, user-facing outcomes. An operation returning one of these made
// no partial mutation; the caller reports the condition and moves on.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrIndexOutOfRange   = errors.New("inventory index out of range")
	ErrItemNotFound      = errors.New("item not found")
	ErrSelfTarget        = errors.New("target must be another user")
	ErrProposalPending   = errors.New("a proposal is already pending")
	ErrNoPendingProposal = errors.New("no pending proposal")
	ErrNotMarried        = errors.New("not married")
	ErrAlreadyMarried    = errors.New("already married")
	ErrCooldownActive    = errors.New("cooldown active")
	ErrAlreadySet        = errors.New("field already set")
	ErrNotSet            = errors.New("field not set")
	ErrInvalidImageURL   = errors.New("invalid image url")
	ErrEmptyCaption      = errors.New("caption must not be empty")
	ErrUnauthorized      = errors.New("unauthorized")
)
