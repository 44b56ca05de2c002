package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcHandler func(params []any) (any, *rpcError)

// nodeServer answers JSON-RPC calls from handlers keyed by method.
func nodeServer(t *testing.T, handlers map[string]rpcHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handle, ok := handlers[req.Method]
		if !ok {
			t.Errorf("method %s not handled", req.Method)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		resp := rpcResponse{ID: req.ID}
		result, rpcErr := handle(req.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			resp.Result, _ = json.Marshal(result)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const (
	payAddr   = "mfWxJ45yp2SFn7UciZyNpvDKrzbhyfKrY8"
	ordScript = "76a9140102030405060708090a0b0c0d0e0f101112131488ac"
)

// --- ListUnspent ---

func TestListUnspent(t *testing.T) {
	srv := nodeServer(t, map[string]rpcHandler{
		"listunspent": func(params []any) (any, *rpcError) {
			require.Len(t, params, 3)
			assert.Equal(t, float64(0), params[0])
			assert.Equal(t, float64(maxConf), params[1])
			assert.Equal(t, []any{payAddr}, params[2])
			return []map[string]any{
				{"txid": "aa", "vout": 3, "amount": 0.00012345, "scriptPubKey": ordScript, "address": payAddr, "confirmations": 2},
				{"txid": "bb", "vout": 0, "amount": 0.00000001, "scriptPubKey": ordScript, "address": payAddr, "confirmations": 0},
			}, nil
		},
	})

	got, err := NewRPCClient(RPCConfig{URL: srv.URL}).ListUnspent(context.Background(), payAddr)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, &UTXO{TxID: "aa", Vout: 3, Amount: 12345, ScriptPubKey: ordScript, Address: payAddr, Confirmations: 2}, got[0])
	assert.Equal(t, uint64(1), got[1].Amount)
	assert.Zero(t, got[1].Confirmations)
}

func TestListUnspent_Empty(t *testing.T) {
	srv := nodeServer(t, map[string]rpcHandler{
		"listunspent": func([]any) (any, *rpcError) { return []any{}, nil },
	})
	got, err := NewRPCClient(RPCConfig{URL: srv.URL}).ListUnspent(context.Background(), payAddr)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSatoshis(t *testing.T) {
	tests := []struct {
		bsv  float64
		want uint64
	}{
		{0, 0},
		{0.00000001, 1},
		{0.001, 100000},
		{0.29, 29000000},
		{21, 2100000000},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, satoshis(tc.bsv), "%v BSV", tc.bsv)
	}
}

// --- GetUTXO ---

func TestGetUTXO(t *testing.T) {
	srv := nodeServer(t, map[string]rpcHandler{
		"gettxout": func(params []any) (any, *rpcError) {
			assert.Equal(t, []any{"cc", float64(1), true}, params)
			return map[string]any{
				"value":         0.00000001,
				"confirmations": 7,
				"scriptPubKey":  map[string]any{"hex": ordScript, "addresses": []string{payAddr}},
			}, nil
		},
	})

	got, err := NewRPCClient(RPCConfig{URL: srv.URL}).GetUTXO(context.Background(), "cc", 1)
	require.NoError(t, err)
	assert.Equal(t, &UTXO{TxID: "cc", Vout: 1, Amount: 1, ScriptPubKey: ordScript, Address: payAddr, Confirmations: 7}, got)
}

func TestGetUTXO_Spent(t *testing.T) {
	srv := nodeServer(t, map[string]rpcHandler{
		"gettxout": func([]any) (any, *rpcError) { return nil, nil },
	})
	got, err := NewRPCClient(RPCConfig{URL: srv.URL}).GetUTXO(context.Background(), "cc", 0)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrTxNotFound)
}

// --- BroadcastTx ---

func TestBroadcastTx(t *testing.T) {
	const txid = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	srv := nodeServer(t, map[string]rpcHandler{
		"sendrawtransaction": func(params []any) (any, *rpcError) {
			assert.Equal(t, []any{"0100beef"}, params)
			return txid, nil
		},
	})
	got, err := NewRPCClient(RPCConfig{URL: srv.URL}).BroadcastTx(context.Background(), "0100beef")
	require.NoError(t, err)
	assert.Equal(t, txid, got)
}

func TestBroadcastTx_Rejected(t *testing.T) {
	srv := nodeServer(t, map[string]rpcHandler{
		"sendrawtransaction": func([]any) (any, *rpcError) {
			return nil, &rpcError{Code: -26, Message: "66: insufficient priority"}
		},
	})
	got, err := NewRPCClient(RPCConfig{URL: srv.URL}).BroadcastTx(context.Background(), "00")
	assert.Empty(t, got)
	assert.ErrorIs(t, err, ErrBroadcastRejected)
	assert.Contains(t, err.Error(), "insufficient priority")
}

func TestBroadcastTx_Unreachable(t *testing.T) {
	_, err := NewRPCClient(RPCConfig{URL: "http://127.0.0.1:1"}).BroadcastTx(context.Background(), "00")
	assert.ErrorIs(t, err, ErrBroadcastRejected)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

// --- GetTxStatus ---

func TestGetTxStatus(t *testing.T) {
	tests := []struct {
		name      string
		result    map[string]any
		confirmed bool
		want      TxStatus
	}{
		{"mined", map[string]any{"confirmations": 3, "blockhash": "00ff"}, true, TxStatus{Confirmations: 3, BlockHash: "00ff"}},
		{"mempool", map[string]any{"hex": "0100"}, false, TxStatus{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := nodeServer(t, map[string]rpcHandler{
				"getrawtransaction": func(params []any) (any, *rpcError) {
					assert.Equal(t, []any{"dd", float64(1)}, params)
					return tc.result, nil
				},
			})
			got, err := NewRPCClient(RPCConfig{URL: srv.URL}).GetTxStatus(context.Background(), "dd")
			require.NoError(t, err)
			assert.Equal(t, &tc.want, got)
			assert.Equal(t, tc.confirmed, got.Confirmed())
		})
	}
}

func TestGetTxStatus_Unknown(t *testing.T) {
	srv := nodeServer(t, map[string]rpcHandler{
		"getrawtransaction": func([]any) (any, *rpcError) {
			return nil, &rpcError{Code: -5, Message: "No such mempool or blockchain transaction"}
		},
	})
	_, err := NewRPCClient(RPCConfig{URL: srv.URL}).GetTxStatus(context.Background(), "dd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc error -5")
}
