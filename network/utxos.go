package network

import (
	"context"
	"encoding/hex"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/ordinals-go/tx"
)

// PaymentUTXOs converts node UTXOs into funding candidates signed by key.
// One-satoshi outputs are skipped since they may carry an inscription.
func PaymentUTXOs(utxos []*UTXO, key *ec.PrivateKey) ([]*tx.UTXO, error) {
	out := make([]*tx.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Amount <= 1 {
			continue
		}
		script, err := hex.DecodeString(u.ScriptPubKey)
		if err != nil || len(script) == 0 {
			return nil, fmt.Errorf("%w: utxo %s:%d has invalid script", ErrInvalidResponse, u.TxID, u.Vout)
		}
		out = append(out, &tx.UTXO{
			TxID:       u.TxID,
			Vout:       u.Vout,
			Satoshis:   u.Amount,
			Script:     script,
			PrivateKey: key,
		})
	}
	return out, nil
}

// FetchPaymentUTXOs lists the unspent outputs of address and converts them
// with PaymentUTXOs. An address with nothing spendable is ErrNoFunds.
func FetchPaymentUTXOs(ctx context.Context, svc BlockchainService, address string, key *ec.PrivateKey) ([]*tx.UTXO, error) {
	nodeUTXOs, err := svc.ListUnspent(ctx, address)
	if err != nil {
		return nil, err
	}
	utxos, err := PaymentUTXOs(nodeUTXOs, key)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFunds, address)
	}
	return utxos, nil
}

// CompleteUTXOs fills Script and Satoshis for each UTXO given by outpoint
// only. UTXOs that already carry a script are not looked up. A stated
// satoshi value must match the node's.
func CompleteUTXOs(ctx context.Context, svc BlockchainService, utxos ...*tx.UTXO) error {
	for _, u := range utxos {
		if u == nil || len(u.Script) > 0 {
			continue
		}
		found, err := svc.GetUTXO(ctx, u.TxID, u.Vout)
		if err != nil {
			return fmt.Errorf("network: look up %s: %w", u.Outpoint(), err)
		}
		script, err := hex.DecodeString(found.ScriptPubKey)
		if err != nil || len(script) == 0 {
			return fmt.Errorf("%w: utxo %s has invalid script", ErrInvalidResponse, u.Outpoint())
		}
		if u.Satoshis != 0 && u.Satoshis != found.Amount {
			return fmt.Errorf("%w: %s holds %d satoshis, not %d", tx.ErrValidation, u.Outpoint(), found.Amount, u.Satoshis)
		}
		u.Script = script
		u.Satoshis = found.Amount
	}
	return nil
}

// NeedsLookup reports whether any UTXO lacks its locking script.
func NeedsLookup(utxos ...*tx.UTXO) bool {
	for _, u := range utxos {
		if u != nil && len(u.Script) == 0 {
			return true
		}
	}
	return false
}
