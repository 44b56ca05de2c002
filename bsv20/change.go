package bsv20

import (
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/holiman/uint256"

	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/tx"
)

// SplitConfig spreads token change over several outputs.
type SplitConfig struct {
	Outputs   int          // maximum number of change outputs
	Threshold *uint256.Int // minimum tsat per change output; nil for none
}

// SplitAmounts divides change into at most cfg.Outputs parts, reducing the
// count until every part reaches cfg.Threshold. The last part absorbs the
// division remainder. A nil cfg yields a single part.
func SplitAmounts(change *uint256.Int, cfg *SplitConfig) []*uint256.Int {
	if change.IsZero() {
		return nil
	}
	n := uint64(1)
	if cfg != nil && cfg.Outputs > 1 {
		n = uint64(cfg.Outputs)
	}
	if cfg != nil && cfg.Threshold != nil && !cfg.Threshold.IsZero() {
		limit := new(uint256.Int).Div(change, cfg.Threshold)
		if limit.Lt(uint256.NewInt(n)) {
			n = max(limit.Uint64(), 1)
		}
	}

	count := uint256.NewInt(n)
	each := new(uint256.Int).Div(change, count)
	rem := new(uint256.Int).Mod(change, count)
	parts := make([]*uint256.Int, n)
	for i := range parts {
		parts[i] = each.Clone()
	}
	parts[n-1].Add(parts[n-1], rem)
	return parts
}

// RecordOutput builds a 1-satoshi OrdP2PKH output inscribed with rec.
func RecordOutput(address string, rec *Record, meta inscription.Metadata) (*transaction.TransactionOutput, error) {
	insc, err := rec.Inscription()
	if err != nil {
		return nil, err
	}
	return inscription.Output(address, insc, meta)
}

// AppendChange appends token change outputs paying change to address and
// returns their descriptors. Vout is the output's position; TxID is filled
// once the transaction is signed. Zero change appends nothing.
func AppendChange(t *transaction.Transaction, p Protocol, tokenID string, change *uint256.Int, address string, cfg *SplitConfig) ([]*TokenUTXO, error) {
	var utxos []*TokenUTXO
	for _, amt := range SplitAmounts(change, cfg) {
		out, err := RecordOutput(address, TransferRecord(p, tokenID, amt.Dec()), nil)
		if err != nil {
			return nil, err
		}
		t.AddOutput(out)
		utxos = append(utxos, &TokenUTXO{
			UTXO: tx.UTXO{
				Vout:     uint32(len(t.Outputs) - 1),
				Satoshis: out.Satoshis,
				Script:   out.LockingScript.Bytes(),
			},
			Amt: amt.Dec(),
			ID:  tokenID,
		})
	}
	return utxos, nil
}

// BackfillTxID sets txid on token UTXOs produced by a signed transaction.
func BackfillTxID(txid string, utxos []*TokenUTXO) {
	for _, u := range utxos {
		u.TxID = txid
	}
}
