package network

import (
	"context"
	"fmt"
	"math"
)

var _ BlockchainService = (*RPCClient)(nil)

// satoshis converts a node amount in BSV to satoshis.
func satoshis(bsv float64) uint64 {
	return uint64(math.Round(bsv * 1e8))
}

// maxConf is the listunspent upper bound used to mean "any depth".
const maxConf = 9999999

type unspentEntry struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Amount        float64 `json:"amount"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	Address       string  `json:"address"`
	Confirmations int64   `json:"confirmations"`
}

func (e *unspentEntry) utxo() *UTXO {
	return &UTXO{
		TxID:          e.TxID,
		Vout:          e.Vout,
		Amount:        satoshis(e.Amount),
		ScriptPubKey:  e.ScriptPubKey,
		Address:       e.Address,
		Confirmations: e.Confirmations,
	}
}

// ListUnspent calls listunspent with minconf 0, so mempool outputs can fund
// a chain of builds.
func (c *RPCClient) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	var entries []unspentEntry
	if err := c.Call(ctx, "listunspent", []any{0, maxConf, []string{address}}, &entries); err != nil {
		return nil, err
	}
	out := make([]*UTXO, 0, len(entries))
	for i := range entries {
		out = append(out, entries[i].utxo())
	}
	return out, nil
}

// txOut is the gettxout result. The node answers null for a spent output,
// so it is decoded through a pointer.
type txOut struct {
	Value         float64 `json:"value"`
	Confirmations int64   `json:"confirmations"`
	ScriptPubKey  struct {
		Hex       string   `json:"hex"`
		Addresses []string `json:"addresses"`
	} `json:"scriptPubKey"`
}

// GetUTXO calls gettxout, mempool included.
func (c *RPCClient) GetUTXO(ctx context.Context, txid string, vout uint32) (*UTXO, error) {
	var out *txOut
	if err := c.Call(ctx, "gettxout", []any{txid, vout, true}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s_%d is spent or unknown", ErrTxNotFound, txid, vout)
	}
	u := &UTXO{
		TxID:          txid,
		Vout:          vout,
		Amount:        satoshis(out.Value),
		ScriptPubKey:  out.ScriptPubKey.Hex,
		Confirmations: out.Confirmations,
	}
	if len(out.ScriptPubKey.Addresses) == 1 {
		u.Address = out.ScriptPubKey.Addresses[0]
	}
	return u, nil
}

// BroadcastTx calls sendrawtransaction. Every failure, transport included,
// wraps ErrBroadcastRejected.
func (c *RPCClient) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	var txid string
	if err := c.Call(ctx, "sendrawtransaction", []any{rawTxHex}, &txid); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
	}
	return txid, nil
}

// GetTxStatus calls verbose getrawtransaction and keeps only the depth.
func (c *RPCClient) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	var res struct {
		Confirmations int64  `json:"confirmations"`
		BlockHash     string `json:"blockhash"`
	}
	if err := c.Call(ctx, "getrawtransaction", []any{txid, 1}, &res); err != nil {
		return nil, err
	}
	return &TxStatus{Confirmations: res.Confirmations, BlockHash: res.BlockHash}, nil
}
