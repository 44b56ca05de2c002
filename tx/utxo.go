package tx

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// UTXO represents a spendable output. TxID is hex in display order.
type UTXO struct {
	TxID       string         `json:"txid"`
	Vout       uint32         `json:"vout"`
	Satoshis   uint64         `json:"satoshis"`
	Script     []byte         `json:"script"`
	PrivateKey *ec.PrivateKey `json:"-"` // optional per-UTXO signing key
}

// Payment is a plain P2PKH payment appended after the operation's own outputs.
type Payment struct {
	Address  string `json:"to"`
	Satoshis uint64 `json:"amount"`
}

// Outpoint renders the UTXO as "txid_vout".
func (u *UTXO) Outpoint() string {
	return fmt.Sprintf("%s_%d", u.TxID, u.Vout)
}

// Input builds a transaction input spending u with the given unlocking
// template. The source output is attached so sighashes can be computed.
func (u *UTXO) Input(tmpl transaction.UnlockingScriptTemplate) (*transaction.TransactionInput, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: utxo", ErrNilParam)
	}
	hash, err := chainhash.NewHashFromHex(u.TxID)
	if err != nil {
		return nil, fmt.Errorf("%w: utxo txid %q: %w", ErrValidation, u.TxID, err)
	}
	if len(u.Script) == 0 {
		return nil, fmt.Errorf("%w: utxo %s has empty script", ErrValidation, u.Outpoint())
	}
	in := &transaction.TransactionInput{
		SourceTXID:              hash,
		SourceTxOutIndex:        u.Vout,
		SequenceNumber:          transaction.DefaultSequenceNumber,
		UnlockingScriptTemplate: tmpl,
	}
	in.SetSourceTxOutput(&transaction.TransactionOutput{
		Satoshis:      u.Satoshis,
		LockingScript: script.NewFromBytes(u.Script),
	})
	return in, nil
}

// SumSatoshis returns the total value of utxos.
func SumSatoshis(utxos []*UTXO) uint64 {
	var total uint64
	for _, u := range utxos {
		total += u.Satoshis
	}
	return total
}
