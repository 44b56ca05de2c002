package bsv20

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/ordinals-go/tx"
)

// Accounting is a snapshot of a ledger. Change == TotalIn - TotalOut.
type Accounting struct {
	TotalIn  *uint256.Int
	TotalOut *uint256.Int
	Change   *uint256.Int
}

// ComputeChange returns totalIn - totalOut, or ErrNotEnoughTokens when the
// outputs exceed the inputs.
func ComputeChange(totalIn, totalOut *uint256.Int) (*uint256.Int, error) {
	if totalOut.Gt(totalIn) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrNotEnoughTokens, totalIn.Dec(), totalOut.Dec())
	}
	return new(uint256.Int).Sub(totalIn, totalOut), nil
}

// Ledger accumulates the token amounts flowing through one transaction.
type Ledger struct {
	tokenID string
	in      *uint256.Int
	out     *uint256.Int
}

// NewLedger returns an empty ledger for tokenID.
func NewLedger(tokenID string) *Ledger {
	return &Ledger{tokenID: tokenID, in: new(uint256.Int), out: new(uint256.Int)}
}

// TokenID returns the token the ledger tracks.
func (l *Ledger) TokenID() string { return l.tokenID }

// AddInputs validates utxos against the ledger's token and adds their amounts.
func (l *Ledger) AddInputs(utxos ...*TokenUTXO) error {
	if err := ValidateSameToken(utxos, l.tokenID); err != nil {
		return err
	}
	sum, err := SumAmounts(utxos)
	if err != nil {
		return err
	}
	return add(l.in, sum)
}

// AddOutput records amt leaving through a token output.
func (l *Ledger) AddOutput(amt *uint256.Int) error {
	return add(l.out, amt)
}

// Accounting returns the current snapshot, failing when the outputs exceed
// the inputs.
func (l *Ledger) Accounting() (*Accounting, error) {
	change, err := ComputeChange(l.in, l.out)
	if err != nil {
		return nil, err
	}
	return &Accounting{TotalIn: l.in.Clone(), TotalOut: l.out.Clone(), Change: change}, nil
}

func add(total, amt *uint256.Int) error {
	if _, overflow := total.AddOverflow(total, amt); overflow {
		return fmt.Errorf("%w: token amount overflow", tx.ErrValidation)
	}
	return nil
}
