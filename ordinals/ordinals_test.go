package ordinals

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/script/interpreter"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/internal/metrics"
	"github.com/bitfsorg/ordinals-go/tx"
)

func newKey(t *testing.T) (*ec.PrivateKey, string) {
	t.Helper()
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := tx.AddressForKey(key, false)
	require.NoError(t, err)
	return key, addr
}

func txidFromSeed(seed byte) string {
	return hex.EncodeToString(bytes.Repeat([]byte{seed}, 32))
}

// paymentUTXO returns a P2PKH UTXO owned by addr.
func paymentUTXO(t *testing.T, addr string, satoshis uint64, seed byte) *tx.UTXO {
	t.Helper()
	s, err := tx.P2PKHScript(addr)
	require.NoError(t, err)
	return &tx.UTXO{TxID: txidFromSeed(seed), Vout: 0, Satoshis: satoshis, Script: s.Bytes()}
}

// ordinalUTXO returns a 1-sat inscribed UTXO owned by addr.
func ordinalUTXO(t *testing.T, addr string, seed byte) *tx.UTXO {
	t.Helper()
	s, err := inscription.Lock(addr, textInscription("gm"), nil)
	require.NoError(t, err)
	return &tx.UTXO{TxID: txidFromSeed(seed), Vout: 1, Satoshis: 1, Script: s.Bytes()}
}

func textInscription(s string) *inscription.Inscription {
	return &inscription.Inscription{Data: []byte(s), ContentType: "text/plain"}
}

// verifyInputs runs every input of t against the output it spends.
func verifyInputs(t *testing.T, txn *transaction.Transaction) {
	t.Helper()
	for i, in := range txn.Inputs {
		prev := in.SourceTxOutput()
		require.NotNil(t, prev, "input %d has no source output", i)
		err := interpreter.NewEngine().Execute(
			interpreter.WithTx(txn, i, prev),
			interpreter.WithAfterGenesis(),
			interpreter.WithForkID(),
		)
		assert.NoError(t, err, "input %d", i)
	}
}

func buildCount(op, status string) float64 {
	return testutil.ToFloat64(metrics.BuildsTotal.WithLabelValues(op, status))
}

type stubSigner struct {
	calls int
	err   error
}

func (s *stubSigner) CoSign(_ context.Context, t *transaction.Transaction) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	sig := &script.Script{}
	if err := sig.AppendOpcodes(script.OpFALSE, script.OpRETURN); err != nil {
		return err
	}
	if err := sig.AppendPushData([]byte("sigma")); err != nil {
		return err
	}
	t.AddOutput(&transaction.TransactionOutput{LockingScript: sig})
	return nil
}

// --- CreateOrdinals ---

func TestCreateOrdinals_SingleInscription(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	funding := paymentUTXO(t, payAddr, 10000, 1)
	okBefore := buildCount(OpCreateOrdinals, metrics.StatusOK)

	insc := textInscription("hello, ordinals!!")
	require.Len(t, insc.Data, 17)
	res, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options:      Options{PaymentUTXOs: []*tx.UTXO{funding}, PaymentKey: payKey, SatsPerKb: 10},
		Destinations: []*Destination{{Address: destAddr, Inscription: insc}},
	})
	require.NoError(t, err)

	require.Len(t, res.Tx.Inputs, 1)
	require.Len(t, res.Tx.Outputs, 2)
	assert.Equal(t, uint64(1), res.Tx.Outputs[0].Satoshis)
	assert.Positive(t, res.Fee)
	assert.Equal(t, 10000-1-res.Fee, res.Tx.Outputs[1].Satoshis)

	require.NotNil(t, res.PayChange)
	assert.Equal(t, uint32(1), res.PayChange.Vout)
	assert.Equal(t, res.TxID, res.PayChange.TxID)
	assert.Equal(t, res.Tx.Outputs[1].Satoshis, res.PayChange.Satoshis)
	assert.Equal(t, res.Tx.TxID().String(), res.TxID)
	assert.Equal(t, []string{funding.Outpoint()}, res.SpentOutpoints)

	got, err := inscription.Parse(res.Tx.Outputs[0].LockingScript)
	require.NoError(t, err)
	assert.Equal(t, insc.Data, got.Data)
	assert.Equal(t, "text/plain", got.ContentType)
	assert.NotNil(t, res.Tx.Inputs[0].UnlockingScript)

	assert.Equal(t, okBefore+1, buildCount(OpCreateOrdinals, metrics.StatusOK))
}

func TestCreateOrdinals_Metadata(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	meta := inscription.Metadata{{Key: "app", Value: "ordtx"}, {Key: "type", Value: "ord"}, {Key: "name", Value: "gm"}}

	res, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options:      Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("a")}, {Address: destAddr, Inscription: textInscription("b")}},
		Metadata:     meta,
	})
	require.NoError(t, err)
	require.Len(t, res.Tx.Outputs, 3)
	for _, out := range res.Tx.Outputs[:2] {
		got, err := inscription.ParseMetadata(out.LockingScript)
		require.NoError(t, err)
		assert.Equal(t, meta, got)
	}
}

func TestCreateOrdinals_Validation(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	opts := Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey}

	tests := []struct {
		name string
		cfg  *CreateOrdinalsConfig
		want error
	}{
		{"nil config", nil, tx.ErrNilParam},
		{"no destinations", &CreateOrdinalsConfig{Options: opts}, tx.ErrValidation},
		{"missing inscription", &CreateOrdinalsConfig{Options: opts, Destinations: []*Destination{{Address: destAddr}}}, tx.ErrValidation},
		{"metadata without type", &CreateOrdinalsConfig{
			Options:      opts,
			Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
			Metadata:     inscription.Metadata{{Key: "app", Value: "ordtx"}},
		}, inscription.ErrMetadataKeys},
		{"bad address", &CreateOrdinalsConfig{
			Options:      opts,
			Destinations: []*Destination{{Address: "not-an-address", Inscription: textInscription("x")}},
		}, tx.ErrInvalidAddress},
		{"missing payment key", &CreateOrdinalsConfig{
			Options:      Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}},
			Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
		}, tx.ErrMissingKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateOrdinals(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateOrdinals_InsufficientFunds(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	errBefore := buildCount(OpCreateOrdinals, metrics.StatusError)

	_, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options:      Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 2, 1)}, PaymentKey: payKey},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
	})
	assert.ErrorIs(t, err, tx.ErrInsufficientFunds)
	var ife *tx.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, uint64(2), ife.TotalIn)

	assert.Equal(t, errBefore+1, buildCount(OpCreateOrdinals, metrics.StatusError))
}

// --- Builder behaviour ---

func TestBuilder_ChangeAddressOverride(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	_, changeAddr := newKey(t)

	res, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options: Options{
			PaymentUTXOs:  []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)},
			PaymentKey:    payKey,
			ChangeAddress: changeAddr,
		},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
	})
	require.NoError(t, err)

	want, err := tx.P2PKHScript(changeAddr)
	require.NoError(t, err)
	require.NotNil(t, res.PayChange)
	assert.Equal(t, want.Bytes(), res.PayChange.Script)
	assert.Equal(t, want.Bytes(), res.Tx.Outputs[res.PayChange.Vout].LockingScript.Bytes())
}

func TestBuilder_AdditionalPaymentsBeforeChange(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	_, tipAddr := newKey(t)

	res, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options: Options{
			PaymentUTXOs:       []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)},
			PaymentKey:         payKey,
			AdditionalPayments: []*tx.Payment{{Address: tipAddr, Satoshis: 1234}},
		},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Tx.Outputs, 3)
	assert.Equal(t, uint64(1234), res.Tx.Outputs[1].Satoshis)
	assert.Equal(t, uint32(2), res.PayChange.Vout)
}

func TestBuilder_ZeroAdditionalPayment(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)

	_, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options: Options{
			PaymentUTXOs:       []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)},
			PaymentKey:         payKey,
			AdditionalPayments: []*tx.Payment{{Address: destAddr}},
		},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
	})
	assert.ErrorIs(t, err, tx.ErrValidation)
}

func TestBuilder_CoSignerOutputsPrecedeChange(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	signer := &stubSigner{}

	res, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options: Options{
			PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)},
			PaymentKey:   payKey,
			Signer:       signer,
		},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, signer.calls)
	require.Len(t, res.Tx.Outputs, 3)
	assert.True(t, res.Tx.Outputs[1].LockingScript.IsData())
	assert.Equal(t, uint32(2), res.PayChange.Vout)
}

func TestBuilder_CoSignerError(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	boom := errors.New("co-signer down")

	_, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options: Options{
			PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)},
			PaymentKey:   payKey,
			Signer:       &stubSigner{err: boom},
		},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
	})
	assert.ErrorIs(t, err, boom)
}

func TestBuilder_KeylessSpareCandidate(t *testing.T) {
	ownKey, ownAddr := newKey(t)
	_, spareAddr := newKey(t)
	_, destAddr := newKey(t)
	signer := &stubSigner{}

	funded := paymentUTXO(t, ownAddr, 10000, 1)
	funded.PrivateKey = ownKey
	spare := paymentUTXO(t, spareAddr, 10000, 2)

	_, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options: Options{
			PaymentUTXOs:  []*tx.UTXO{funded, spare},
			ChangeAddress: ownAddr,
			Signer:        signer,
		},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
	})
	require.ErrorIs(t, err, tx.ErrMissingKey)
	assert.Contains(t, err.Error(), spare.Outpoint())
	assert.Zero(t, signer.calls)
}

func TestBuilder_CanceledContext(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CreateOrdinals(ctx, &CreateOrdinalsConfig{
		Options:      Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuilder_TestnetChange(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)

	res, err := CreateOrdinals(context.Background(), &CreateOrdinalsConfig{
		Options:      Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey, Testnet: true},
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("x")}},
	})
	require.NoError(t, err)

	testnetAddr, err := tx.AddressForKey(payKey, true)
	require.NoError(t, err)
	want, err := tx.P2PKHScript(testnetAddr)
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), res.PayChange.Script)
}

// --- SendOrdinals ---

func TestSendOrdinals(t *testing.T) {
	payKey, payAddr := newKey(t)
	ordKey, ordAddr := newKey(t)
	_, destAddr := newKey(t)
	ordinal := ordinalUTXO(t, ordAddr, 7)
	funding := paymentUTXO(t, payAddr, 10000, 1)

	res, err := SendOrdinals(context.Background(), &SendOrdinalsConfig{
		Options:            Options{PaymentUTXOs: []*tx.UTXO{funding}, PaymentKey: payKey},
		Ordinals:           []*tx.UTXO{ordinal},
		OrdKey:             ordKey,
		Destinations:       []*Destination{{Address: destAddr}},
		EnforceUniformSend: true,
	})
	require.NoError(t, err)

	require.Len(t, res.Tx.Inputs, 2)
	assert.Equal(t, []string{ordinal.Outpoint(), funding.Outpoint()}, res.SpentOutpoints)
	require.Len(t, res.Tx.Outputs, 2)
	assert.Equal(t, uint64(1), res.Tx.Outputs[0].Satoshis)

	want, err := tx.P2PKHScript(destAddr)
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), res.Tx.Outputs[0].LockingScript.Bytes())

	chunks, err := res.Tx.Inputs[0].UnlockingScript.Chunks()
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, ordKey.PubKey().Compressed(), chunks[1].Data)
}

func TestSendOrdinals_Reinscribe(t *testing.T) {
	payKey, payAddr := newKey(t)
	ordKey, ordAddr := newKey(t)
	_, destAddr := newKey(t)

	res, err := SendOrdinals(context.Background(), &SendOrdinalsConfig{
		Options:      Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
		Ordinals:     []*tx.UTXO{ordinalUTXO(t, ordAddr, 7)},
		OrdKey:       ordKey,
		Destinations: []*Destination{{Address: destAddr, Inscription: textInscription("again")}},
	})
	require.NoError(t, err)
	got, err := inscription.Parse(res.Tx.Outputs[0].LockingScript)
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), got.Data)
}

func TestSendOrdinals_EnforceUniformSend(t *testing.T) {
	payKey, payAddr := newKey(t)
	ordKey, ordAddr := newKey(t)
	_, destAddr := newKey(t)
	cfg := &SendOrdinalsConfig{
		Options:            Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
		Ordinals:           []*tx.UTXO{ordinalUTXO(t, ordAddr, 7), ordinalUTXO(t, ordAddr, 8)},
		OrdKey:             ordKey,
		Destinations:       []*Destination{{Address: destAddr}},
		EnforceUniformSend: true,
	}

	_, err := SendOrdinals(context.Background(), cfg)
	assert.ErrorIs(t, err, tx.ErrValidation)
	assert.Contains(t, err.Error(), "must match")

	cfg.EnforceUniformSend = false
	res, err := SendOrdinals(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, res.Tx.Inputs, 3)
}

func TestSendOrdinals_MissingOrdinalKey(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, ordAddr := newKey(t)
	_, destAddr := newKey(t)

	_, err := SendOrdinals(context.Background(), &SendOrdinalsConfig{
		Options:      Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
		Ordinals:     []*tx.UTXO{ordinalUTXO(t, ordAddr, 7)},
		Destinations: []*Destination{{Address: destAddr}},
	})
	assert.ErrorIs(t, err, tx.ErrMissingKey)
	assert.Contains(t, err.Error(), string(tx.RoleOrdinal))
}

// --- SendUtxos ---

func TestSendUtxos_FundsInOrder(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, destAddr := newKey(t)
	first := paymentUTXO(t, payAddr, 500, 1)
	second := paymentUTXO(t, payAddr, 10000, 2)
	third := paymentUTXO(t, payAddr, 10000, 3)

	res, err := SendUtxos(context.Background(), &SendUtxosConfig{
		Options:  Options{PaymentUTXOs: []*tx.UTXO{first, second, third}, PaymentKey: payKey},
		Payments: []*tx.Payment{{Address: destAddr, Satoshis: 3000}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{first.Outpoint(), second.Outpoint()}, res.SpentOutpoints)
	assert.Equal(t, uint64(3000), res.Tx.Outputs[0].Satoshis)
	assert.Equal(t, 10500-3000-res.Fee, res.PayChange.Satoshis)
}

func TestSendUtxos_NoPayments(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, err := SendUtxos(context.Background(), &SendUtxosConfig{
		Options: Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
	})
	assert.ErrorIs(t, err, tx.ErrValidation)
}

func TestSendUtxos_PerUTXOKey(t *testing.T) {
	payKey, payAddr := newKey(t)
	otherKey, otherAddr := newKey(t)
	_, destAddr := newKey(t)
	owned := paymentUTXO(t, otherAddr, 10000, 1)
	owned.PrivateKey = otherKey

	res, err := SendUtxos(context.Background(), &SendUtxosConfig{
		Options:  Options{PaymentUTXOs: []*tx.UTXO{owned}, PaymentKey: payKey},
		Payments: []*tx.Payment{{Address: destAddr, Satoshis: 1000}},
	})
	require.NoError(t, err)
	chunks, err := res.Tx.Inputs[0].UnlockingScript.Chunks()
	require.NoError(t, err)
	assert.Equal(t, otherKey.PubKey().Compressed(), chunks[1].Data)

	want, err := tx.P2PKHScript(payAddr)
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), res.PayChange.Script, "change goes to the payment key")
}
