package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be a positive value")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrEntryNotFound       = errors.New("payout entry not found")
	ErrEntryNotRequested   = errors.New("payout entry is not in requested state")
)
