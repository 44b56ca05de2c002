//go:build e2e

package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regtestClient() *RPCClient {
	cfg := NetworkPresets["regtest"]
	return NewRPCClient(cfg)
}

func skipIfUnavailable(t *testing.T, client *RPCClient) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var height uint64
	if err := client.Call(ctx, "getblockcount", nil, &height); err != nil {
		t.Skip("regtest node unavailable:", err)
	}
}

func TestE2E_ListUnspent(t *testing.T) {
	client := regtestClient()
	skipIfUnavailable(t, client)

	ctx := context.Background()

	// Generate address and fund it.
	var addr string
	require.NoError(t, client.Call(ctx, "getnewaddress", nil, &addr))

	var blockHashes []string
	require.NoError(t, client.Call(ctx, "generatetoaddress", []any{101, addr}, &blockHashes))

	// List UTXOs.
	utxos, err := client.ListUnspent(ctx, addr)
	require.NoError(t, err)
	assert.NotEmpty(t, utxos)
	assert.Greater(t, utxos[0].Amount, uint64(0))

	funding, err := FetchPaymentUTXOs(ctx, client, addr, nil)
	require.NoError(t, err)
	assert.Len(t, funding, len(utxos))
}

func TestE2E_CoinbaseStatusAndOutput(t *testing.T) {
	client := regtestClient()
	skipIfUnavailable(t, client)

	ctx := context.Background()

	var addr string
	require.NoError(t, client.Call(ctx, "getnewaddress", nil, &addr))
	var blockHashes []string
	require.NoError(t, client.Call(ctx, "generatetoaddress", []any{1, addr}, &blockHashes))

	var block struct {
		Tx []string `json:"tx"`
	}
	require.NoError(t, client.Call(ctx, "getblock", []any{blockHashes[0]}, &block))
	require.NotEmpty(t, block.Tx)
	txid := block.Tx[0]

	status, err := client.GetTxStatus(ctx, txid)
	require.NoError(t, err)
	assert.True(t, status.Confirmed())
	assert.Equal(t, blockHashes[0], status.BlockHash)

	out, err := client.GetUTXO(ctx, txid, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ScriptPubKey)
	assert.Greater(t, out.Amount, uint64(0))
}
