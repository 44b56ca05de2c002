package tx

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// Settlement describes the fee and change fixed by Finalize.
type Settlement struct {
	Fee        uint64
	Change     uint64
	ChangeVout int // -1 when no change output remains
}

// Finalize computes the fee for the complete draft and settles the change
// output (the one marked Change). A change value of exactly zero removes the
// output; a negative value is ErrInsufficientFunds.
func Finalize(t *transaction.Transaction, satsPerKb uint64) (*Settlement, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: transaction", ErrNilParam)
	}

	changeIdx := -1
	var nonChange uint64
	for i, out := range t.Outputs {
		if out.Change {
			if changeIdx != -1 {
				return nil, fmt.Errorf("%w: more than one change output", ErrValidation)
			}
			changeIdx = i
			continue
		}
		nonChange += out.Satoshis
	}

	totalIn := TotalInput(t)
	fee := EstimateFee(EstimateSize(t), satsPerKb)
	if totalIn < nonChange+fee {
		return nil, &InsufficientFundsError{TotalIn: totalIn, TotalOut: nonChange, Fee: fee}
	}

	st := &Settlement{Fee: fee, ChangeVout: -1}
	if changeIdx == -1 {
		// No change output; the surplus goes to the miner.
		st.Fee = totalIn - nonChange
		return st, nil
	}

	change := totalIn - nonChange - fee
	if change == 0 {
		t.Outputs = append(t.Outputs[:changeIdx], t.Outputs[changeIdx+1:]...)
		return st, nil
	}
	t.Outputs[changeIdx].Satoshis = change
	st.Change = change
	st.ChangeVout = changeIdx
	return st, nil
}

// Sign runs every input's unlocking template and returns the txid in
// display order.
func Sign(t *transaction.Transaction) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: transaction", ErrNilParam)
	}
	for i, in := range t.Inputs {
		if in.UnlockingScriptTemplate == nil && in.UnlockingScript == nil {
			return "", fmt.Errorf("%w: input %d has no unlocking template", ErrSigning, i)
		}
	}
	if err := t.Sign(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return t.TxID().String(), nil
}

// BackfillTxID sets the txid on UTXOs produced by a transaction once it is
// known.
func BackfillTxID(txid string, utxos ...*UTXO) {
	for _, u := range utxos {
		if u != nil {
			u.TxID = txid
		}
	}
}
