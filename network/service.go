package network

import "context"

// BlockchainService is what ordtx asks of a node: spendable outputs to fund
// a build, lookups for inputs a request names by outpoint only, and relay of
// the signed result.
type BlockchainService interface {
	// ListUnspent lists the outputs paying address, confirmed or not.
	ListUnspent(ctx context.Context, address string) ([]*UTXO, error)

	// GetUTXO looks up one unspent output. A spent or unknown outpoint
	// wraps ErrTxNotFound.
	GetUTXO(ctx context.Context, txid string, vout uint32) (*UTXO, error)

	// BroadcastTx relays a signed transaction and returns the node's txid.
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)

	// GetTxStatus reports how deep txid is buried.
	GetTxStatus(ctx context.Context, txid string) (*TxStatus, error)
}

// UTXO is an output as the node reports it, with Amount in satoshis and
// ScriptPubKey in hex.
type UTXO struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Amount        uint64 `json:"amount"`
	ScriptPubKey  string `json:"script_pubkey"`
	Address       string `json:"address,omitempty"`
	Confirmations int64  `json:"confirmations"`
}

// TxStatus is the node's view of a relayed transaction. Confirmations is 0
// while it sits in the mempool.
type TxStatus struct {
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"block_hash,omitempty"`
}

// Confirmed reports whether the transaction is in a block.
func (s *TxStatus) Confirmed() bool {
	return s.Confirmations > 0
}
