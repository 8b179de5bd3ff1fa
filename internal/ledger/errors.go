// Package ledger holds the error taxonomy shared by the store and the
// money-movement engines. The boundary layer maps these to HTTP codes.
package ledger

import "errors"

var (
	ErrNotFound             = errors.New("record not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrRestrictionViolation = errors.New("transfer restriction violated")
	ErrAlreadyWithdrawn     = errors.New("saving already withdrawn")
	ErrInvalidArgument      = errors.New("invalid argument")
)
