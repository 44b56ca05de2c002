package ordinals

import (
	"context"
	"errors"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/ordinals-go/ordlock"
	"github.com/bitfsorg/ordinals-go/tx"
)

// listingUTXO returns a 1-sat OrdLock UTXO cancellable by ordAddr.
func listingUTXO(t *testing.T, ordAddr, payAddr string, price uint64, seed byte) *tx.UTXO {
	t.Helper()
	s, err := ordlock.Lock(ordAddr, payAddr, price, nil)
	require.NoError(t, err)
	return &tx.UTXO{TxID: txidFromSeed(seed), Vout: 0, Satoshis: 1, Script: s.Bytes()}
}

type stubResolver struct {
	handle string
	sats   uint64
	lock   *script.Script
	err    error
}

func (r *stubResolver) ResolveOutputs(_ context.Context, handle string, sats uint64) ([]*transaction.TransactionOutput, error) {
	r.handle, r.sats = handle, sats
	if r.err != nil {
		return nil, r.err
	}
	return []*transaction.TransactionOutput{{Satoshis: sats, LockingScript: r.lock}}, nil
}

// --- CreateOrdListings ---

func TestCreateOrdListings(t *testing.T) {
	payKey, payAddr := newKey(t)
	ordKey, ordAddr := newKey(t)
	_, sellerPayAddr := newKey(t)
	ordinal := ordinalUTXO(t, ordAddr, 7)

	res, err := CreateOrdListings(context.Background(), &CreateOrdListingsConfig{
		Options:  Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
		Listings: []*NewOrdListing{{ListingUTXO: ordinal, PayAddress: sellerPayAddr, Price: 5000}},
		OrdKey:   ordKey,
	})
	require.NoError(t, err)

	out := res.Tx.Outputs[0]
	assert.Equal(t, uint64(1), out.Satoshis)
	require.True(t, ordlock.IsOrdLock(out.LockingScript))
	listing, err := ordlock.Parse(out.LockingScript)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), listing.Price)
	decoded, err := tx.DecodeAddress(ordAddr)
	require.NoError(t, err)
	assert.Equal(t, []byte(decoded.PublicKeyHash), listing.CancelPKH, "cancel authority defaults to the ordinal key")
	assert.Equal(t, ordinal.Outpoint(), res.SpentOutpoints[0])
}

func TestCreateOrdListings_Validation(t *testing.T) {
	payKey, payAddr := newKey(t)
	ordKey, ordAddr := newKey(t)
	_, sellerPayAddr := newKey(t)
	opts := Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey}

	tests := []struct {
		name     string
		listings []*NewOrdListing
		key      bool
		want     error
	}{
		{"no listings", nil, true, tx.ErrValidation},
		{"nil utxo", []*NewOrdListing{{PayAddress: sellerPayAddr, Price: 1}}, true, tx.ErrNilParam},
		{"zero price", []*NewOrdListing{{ListingUTXO: ordinalUTXO(t, ordAddr, 7), PayAddress: sellerPayAddr}}, true, tx.ErrValidation},
		{"bad pay address", []*NewOrdListing{{ListingUTXO: ordinalUTXO(t, ordAddr, 7), PayAddress: "nope", Price: 10}}, true, tx.ErrInvalidAddress},
		{"no ordinal key", []*NewOrdListing{{ListingUTXO: ordinalUTXO(t, ordAddr, 7), PayAddress: sellerPayAddr, Price: 10}}, false, tx.ErrMissingKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &CreateOrdListingsConfig{Options: opts, Listings: tt.listings}
			if tt.key {
				cfg.OrdKey = ordKey
			}
			_, err := CreateOrdListings(context.Background(), cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// --- CancelOrdListings ---

func TestCancelOrdListings_PerUTXOKeyWins(t *testing.T) {
	payKey, payAddr := newKey(t)
	ownerKey, ownerAddr := newKey(t)
	defaultKey, _ := newKey(t)
	_, sellerPayAddr := newKey(t)

	listing := listingUTXO(t, ownerAddr, sellerPayAddr, 5000, 9)
	listing.PrivateKey = ownerKey

	res, err := CancelOrdListings(context.Background(), &CancelOrdListingsConfig{
		Options:  Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
		Listings: []*tx.UTXO{listing},
		OrdKey:   defaultKey,
	})
	require.NoError(t, err)

	chunks, err := res.Tx.Inputs[0].UnlockingScript.Chunks()
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, ownerKey.PubKey().Compressed(), chunks[1].Data)
	assert.Equal(t, byte(script.OpTRUE), chunks[2].Op)

	want, err := tx.P2PKHScript(ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Tx.Outputs[0].Satoshis)
	assert.Equal(t, want.Bytes(), res.Tx.Outputs[0].LockingScript.Bytes())
}

func TestCancelOrdListings_ExplicitAddress(t *testing.T) {
	payKey, payAddr := newKey(t)
	ordKey, ordAddr := newKey(t)
	_, destAddr := newKey(t)
	_, sellerPayAddr := newKey(t)

	res, err := CancelOrdListings(context.Background(), &CancelOrdListingsConfig{
		Options:    Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
		Listings:   []*tx.UTXO{listingUTXO(t, ordAddr, sellerPayAddr, 100, 9), listingUTXO(t, ordAddr, sellerPayAddr, 200, 10)},
		OrdKey:     ordKey,
		OrdAddress: destAddr,
	})
	require.NoError(t, err)
	want, err := tx.P2PKHScript(destAddr)
	require.NoError(t, err)
	for _, out := range res.Tx.Outputs[:2] {
		assert.Equal(t, want.Bytes(), out.LockingScript.Bytes())
	}
	assert.Len(t, res.SpentOutpoints, 3)
}

func TestCancelOrdListings_NotAListing(t *testing.T) {
	payKey, payAddr := newKey(t)
	ordKey, ordAddr := newKey(t)

	_, err := CancelOrdListings(context.Background(), &CancelOrdListingsConfig{
		Options:  Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 10000, 1)}, PaymentKey: payKey},
		Listings: []*tx.UTXO{ordinalUTXO(t, ordAddr, 7)},
		OrdKey:   ordKey,
	})
	assert.ErrorIs(t, err, ordlock.ErrNotOrdLock)
	assert.ErrorIs(t, err, tx.ErrValidation)
}

// --- PurchaseOrdListing ---

func TestPurchaseOrdListing_Layout(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, buyerAddr := newKey(t)
	_, sellerAddr := newKey(t)
	_, sellerPayAddr := newKey(t)
	_, artistAddr := newKey(t)
	listing := listingUTXO(t, sellerAddr, sellerPayAddr, 5000, 9)

	scriptRoyalty, err := tx.P2PKHScript(artistAddr)
	require.NoError(t, err)
	resolver := &stubResolver{lock: scriptRoyalty}

	res, err := PurchaseOrdListing(context.Background(), &PurchaseOrdListingConfig{
		Options:    Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 100000, 1)}, PaymentKey: payKey},
		Listing:    listing,
		OrdAddress: buyerAddr,
		Royalties: []*Royalty{
			{Type: RoyaltyAddress, Destination: artistAddr, Percentage: 0.1},
			{Type: RoyaltyScript, Destination: scriptRoyalty.String(), Percentage: 0.05},
			{Type: RoyaltyPaymail, Destination: "artist@example.com", Percentage: 0.01},
			{Type: RoyaltyAddress, Destination: artistAddr, Percentage: 0.0001},
		},
		Paymail: resolver,
	})
	require.NoError(t, err)

	outs := res.Tx.Outputs
	require.Len(t, outs, 6)

	buyerScript, err := tx.P2PKHScript(buyerAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), outs[0].Satoshis)
	assert.Equal(t, buyerScript.Bytes(), outs[0].LockingScript.Bytes())

	payout, err := ordlock.EncodePayout(sellerPayAddr, 5000)
	require.NoError(t, err)
	assert.Equal(t, payout, outs[1].Bytes())

	assert.Equal(t, uint64(500), outs[2].Satoshis)
	assert.Equal(t, uint64(250), outs[3].Satoshis)
	assert.Equal(t, uint64(50), outs[4].Satoshis)
	assert.Equal(t, "artist@example.com", resolver.handle)
	assert.Equal(t, uint64(50), resolver.sats)
	assert.Equal(t, uint32(5), res.PayChange.Vout)

	assert.Equal(t, listing.Outpoint(), res.SpentOutpoints[0])
	chunks, err := res.Tx.Inputs[0].UnlockingScript.Chunks()
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Equal(t, outs[0].Bytes(), chunks[0].Data)
	assert.Equal(t, byte(script.Op0), chunks[3].Op)
}

func TestPurchaseOrdListing_ExplicitPayout(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, buyerAddr := newKey(t)
	_, sellerAddr := newKey(t)
	_, sellerPayAddr := newKey(t)
	payout, err := ordlock.EncodePayout(sellerPayAddr, 777)
	require.NoError(t, err)

	res, err := PurchaseOrdListing(context.Background(), &PurchaseOrdListingConfig{
		Options:    Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 100000, 1)}, PaymentKey: payKey},
		Listing:    listingUTXO(t, sellerAddr, sellerPayAddr, 777, 9),
		Payout:     payout,
		OrdAddress: buyerAddr,
	})
	require.NoError(t, err)
	assert.Equal(t, payout, res.Tx.Outputs[1].Bytes())
	assert.Len(t, res.Tx.Outputs, 3)
}

func TestPurchaseOrdListing_PaymailFailure(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, buyerAddr := newKey(t)
	_, sellerAddr := newKey(t)
	_, sellerPayAddr := newKey(t)
	boom := errors.New("paymail host unreachable")

	_, err := PurchaseOrdListing(context.Background(), &PurchaseOrdListingConfig{
		Options:    Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 100000, 1)}, PaymentKey: payKey},
		Listing:    listingUTXO(t, sellerAddr, sellerPayAddr, 5000, 9),
		OrdAddress: buyerAddr,
		Royalties:  []*Royalty{{Type: RoyaltyPaymail, Destination: "artist@example.com", Percentage: 0.1}},
		Paymail:    &stubResolver{err: boom},
	})
	assert.ErrorIs(t, err, boom)
}

func TestPurchaseOrdListing_NotAListing(t *testing.T) {
	payKey, payAddr := newKey(t)
	_, buyerAddr := newKey(t)
	_, ordAddr := newKey(t)

	_, err := PurchaseOrdListing(context.Background(), &PurchaseOrdListingConfig{
		Options:    Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 100000, 1)}, PaymentKey: payKey},
		Listing:    ordinalUTXO(t, ordAddr, 7),
		OrdAddress: buyerAddr,
	})
	assert.ErrorIs(t, err, ordlock.ErrNotOrdLock)
}

// --- Royalties ---

func TestRoyalty_Amount(t *testing.T) {
	tests := []struct {
		pct   float64
		price uint64
		want  uint64
	}{
		{0.1, 5000, 500},
		{0.05, 999, 49},
		{0.0001, 5000, 0},
		{1, 1234, 1234},
	}
	for _, tt := range tests {
		r := &Royalty{Percentage: tt.pct}
		assert.Equal(t, tt.want, r.Amount(tt.price), "pct=%v price=%d", tt.pct, tt.price)
	}
}

func TestValidateRoyalties(t *testing.T) {
	tests := []struct {
		name string
		r    *Royalty
	}{
		{"nil", nil},
		{"zero percentage", &Royalty{Type: RoyaltyAddress, Destination: "x", Percentage: 0}},
		{"over one", &Royalty{Type: RoyaltyAddress, Destination: "x", Percentage: 1.5}},
		{"no destination", &Royalty{Type: RoyaltyAddress, Percentage: 0.1}},
		{"unknown type", &Royalty{Type: "bitcoin", Destination: "x", Percentage: 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, validateRoyalties([]*Royalty{tt.r}), tx.ErrValidation)
		})
	}
	assert.NoError(t, validateRoyalties([]*Royalty{{Type: RoyaltyScript, Destination: "51", Percentage: 0.5}}))
}

// --- Script execution ---

func TestOrdListingSpends_Execute(t *testing.T) {
	payKey, payAddr := newKey(t)
	ordKey, ordAddr := newKey(t)
	_, sellerPayAddr := newKey(t)
	_, buyerAddr := newKey(t)
	_, artistAddr := newKey(t)
	opts := Options{PaymentUTXOs: []*tx.UTXO{paymentUTXO(t, payAddr, 100000, 1)}, PaymentKey: payKey}

	t.Run("list", func(t *testing.T) {
		res, err := CreateOrdListings(context.Background(), &CreateOrdListingsConfig{
			Options:  opts,
			Listings: []*NewOrdListing{{ListingUTXO: ordinalUTXO(t, ordAddr, 7), PayAddress: sellerPayAddr, Price: 5000}},
			OrdKey:   ordKey,
		})
		require.NoError(t, err)
		verifyInputs(t, res.Tx)
	})

	t.Run("cancel", func(t *testing.T) {
		res, err := CancelOrdListings(context.Background(), &CancelOrdListingsConfig{
			Options:  opts,
			Listings: []*tx.UTXO{listingUTXO(t, ordAddr, sellerPayAddr, 5000, 9)},
			OrdKey:   ordKey,
		})
		require.NoError(t, err)
		verifyInputs(t, res.Tx)
	})

	tests := []struct {
		name      string
		royalties []*Royalty
		outputs   int
	}{
		{"purchase with change", nil, 3},
		{"purchase with royalty and change", []*Royalty{{Type: RoyaltyAddress, Destination: artistAddr, Percentage: 0.1}}, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := PurchaseOrdListing(context.Background(), &PurchaseOrdListingConfig{
				Options:    opts,
				Listing:    listingUTXO(t, ordAddr, sellerPayAddr, 5000, 9),
				OrdAddress: buyerAddr,
				Royalties:  tc.royalties,
			})
			require.NoError(t, err)
			require.Len(t, res.Tx.Outputs, tc.outputs)
			verifyInputs(t, res.Tx)
		})
	}
}
