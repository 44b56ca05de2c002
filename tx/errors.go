package tx

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed or missing configuration, mismatched
	// token ids, count mismatches or missing metadata keys.
	ErrValidation = errors.New("tx: validation failed")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = fmt.Errorf("%w: required parameter is nil", ErrValidation)

	// ErrMissingKey indicates no signing key could be resolved for an input.
	ErrMissingKey = fmt.Errorf("%w: private key is required", ErrValidation)

	// ErrInvalidAddress indicates an address string could not be decoded.
	ErrInvalidAddress = fmt.Errorf("%w: invalid address", ErrValidation)

	// ErrInsufficientFunds indicates the candidates cannot cover outputs and fee.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrProtocol indicates an unrecognized token protocol variant.
	ErrProtocol = errors.New("tx: unsupported protocol")

	// ErrScript indicates script construction failed.
	ErrScript = errors.New("tx: script build failed")

	// ErrSigning indicates transaction signing failed.
	ErrSigning = errors.New("tx: signing failed")
)

// InsufficientFundsError carries the accumulated numbers at the point the
// funding candidates were exhausted.
type InsufficientFundsError struct {
	TotalIn  uint64
	TotalOut uint64
	Fee      uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("tx: insufficient funds: have %d sat, need %d sat (outputs %d + fee %d)",
		e.TotalIn, e.TotalOut+e.Fee, e.TotalOut, e.Fee)
}

// Unwrap lets errors.Is match ErrInsufficientFunds.
func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
