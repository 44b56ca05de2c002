package network

import (
	"context"
	"errors"
)

// errNotStubbed is returned by MockBlockchainService for calls the test did
// not set up.
var errNotStubbed = errors.New("network: mock call not stubbed")

// MockBlockchainService answers BlockchainService calls from the funcs a
// test sets. Calls without a func fail with an error.
type MockBlockchainService struct {
	ListUnspentFn func(ctx context.Context, address string) ([]*UTXO, error)
	GetUTXOFn     func(ctx context.Context, txid string, vout uint32) (*UTXO, error)
	BroadcastTxFn func(ctx context.Context, rawTxHex string) (string, error)
	GetTxStatusFn func(ctx context.Context, txid string) (*TxStatus, error)
}

var _ BlockchainService = (*MockBlockchainService)(nil)

func (m *MockBlockchainService) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	if m.ListUnspentFn == nil {
		return nil, errNotStubbed
	}
	return m.ListUnspentFn(ctx, address)
}

func (m *MockBlockchainService) GetUTXO(ctx context.Context, txid string, vout uint32) (*UTXO, error) {
	if m.GetUTXOFn == nil {
		return nil, errNotStubbed
	}
	return m.GetUTXOFn(ctx, txid, vout)
}

func (m *MockBlockchainService) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	if m.BroadcastTxFn == nil {
		return "", errNotStubbed
	}
	return m.BroadcastTxFn(ctx, rawTxHex)
}

func (m *MockBlockchainService) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	if m.GetTxStatusFn == nil {
		return nil, errNotStubbed
	}
	return m.GetTxStatusFn(ctx, txid)
}
