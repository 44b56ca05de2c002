package bsv20

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/ordinals-go/tx"
)

var (
	// ErrTokenMismatch indicates an input belongs to a different token.
	ErrTokenMismatch = fmt.Errorf("%w: Input tokens do not match the provided tokenID", tx.ErrValidation)

	// ErrNotEnoughTokens indicates outputs exceed the token inputs.
	ErrNotEnoughTokens = fmt.Errorf("%w: not enough tokens to send", tx.ErrInsufficientFunds)

	// ErrTokenSatoshis indicates a token UTXO not holding exactly one satoshi.
	ErrTokenSatoshis = errors.New("bsv20: token utxo must hold exactly 1 satoshi")

	// ErrNotListing indicates a token UTXO lacks listing data.
	ErrNotListing = errors.New("bsv20: token utxo is not a listing")
)

// TokenUTXO is a 1-satoshi output carrying a token balance.
type TokenUTXO struct {
	tx.UTXO
	Amt       string `json:"amt"`               // tsat decimal string
	ID        string `json:"id"`                // tick or origin outpoint
	Payout    []byte `json:"payout,omitempty"`  // serialized payout output, listings only
	Price     uint64 `json:"price,omitempty"`   // listing price in satoshis
	IsListing bool   `json:"isListing,omitempty"`
}

// Amount parses Amt.
func (u *TokenUTXO) Amount() (*uint256.Int, error) {
	return ParseAmount(u.Amt)
}

// Validate checks the 1-satoshi invariant and the amount encoding.
func (u *TokenUTXO) Validate() error {
	if u == nil {
		return fmt.Errorf("%w: token utxo", tx.ErrNilParam)
	}
	if u.Satoshis != 1 {
		return fmt.Errorf("%w: %w: %s holds %d", tx.ErrValidation, ErrTokenSatoshis, u.Outpoint(), u.Satoshis)
	}
	if _, err := u.Amount(); err != nil {
		return err
	}
	if u.IsListing && len(u.Payout) == 0 {
		return fmt.Errorf("%w: %w: %s has no payout", tx.ErrValidation, ErrNotListing, u.Outpoint())
	}
	return nil
}

// ValidateSameToken checks every utxo is valid and belongs to tokenID.
func ValidateSameToken(utxos []*TokenUTXO, tokenID string) error {
	for _, u := range utxos {
		if err := u.Validate(); err != nil {
			return err
		}
		if u.ID != tokenID {
			return ErrTokenMismatch
		}
	}
	return nil
}

// SumAmounts totals the token amounts of utxos.
func SumAmounts(utxos []*TokenUTXO) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, u := range utxos {
		amt, err := u.Amount()
		if err != nil {
			return nil, err
		}
		if _, overflow := total.AddOverflow(total, amt); overflow {
			return nil, fmt.Errorf("%w: token amount overflow", tx.ErrValidation)
		}
	}
	return total, nil
}

// UTXOs returns the embedded value UTXOs.
func UTXOs(utxos []*TokenUTXO) []*tx.UTXO {
	out := make([]*tx.UTXO, len(utxos))
	for i, u := range utxos {
		out[i] = &u.UTXO
	}
	return out
}
