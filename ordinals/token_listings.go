package ordinals

import (
	"context"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/holiman/uint256"

	"github.com/bitfsorg/ordinals-go/bsv20"
	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/ordlock"
	"github.com/bitfsorg/ordinals-go/tx"
)

// NewTokenListing offers a display amount of tokens for sale.
type NewTokenListing struct {
	PayAddress string
	Price      uint64
	Tokens     string // display amount
	OrdAddress string // may cancel; defaults to the ordinal key's address
}

// CreateTokenListingsConfig lists fungible tokens.
type CreateTokenListingsConfig struct {
	Options
	Protocol           bsv20.Protocol
	TokenID            string
	Decimals           uint8
	InputTokens        []*bsv20.TokenUTXO
	Listings           []*NewTokenListing
	InputMode          TokenInputMode
	OrdKey             *ec.PrivateKey
	TokenChangeAddress string
	SplitConfig        *bsv20.SplitConfig
}

// CreateTokenListings locks each listed amount in an OrdLock output carrying
// a transfer record. The listings are returned in Result.TokenListings and
// the unlisted remainder in Result.TokenChange.
func CreateTokenListings(ctx context.Context, cfg *CreateTokenListingsConfig) (res *Result, err error) {
	defer func() { observe(OpCreateTokenListings, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if _, err := cfg.Protocol.IDField(); err != nil {
		return nil, err
	}
	if len(cfg.Listings) == 0 {
		return nil, fmt.Errorf("%w: no listings", tx.ErrValidation)
	}
	distributions := make([]*Distribution, len(cfg.Listings))
	for i, l := range cfg.Listings {
		if l == nil {
			return nil, fmt.Errorf("%w: listing %d", tx.ErrNilParam, i)
		}
		if l.Price == 0 {
			return nil, fmt.Errorf("%w: listing %d has no price", tx.ErrValidation, i)
		}
		distributions[i] = &Distribution{Address: l.OrdAddress, Tokens: l.Tokens}
	}
	amounts, need, err := scaleDistributions(distributions, cfg.Decimals)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(OpCreateTokenListings, &cfg.Options)
	if err != nil {
		return nil, err
	}

	ledger, err := b.spendTokens(cfg.InputTokens, cfg.TokenID, need, cfg.InputMode, cfg.OrdKey)
	if err != nil {
		return nil, err
	}
	var listed []*bsv20.TokenUTXO
	for i, l := range cfg.Listings {
		ordAddr, err := b.address(l.OrdAddress, cfg.OrdKey, tx.RoleOrdinal)
		if err != nil {
			return nil, err
		}
		insc, err := bsv20.TransferRecord(cfg.Protocol, cfg.TokenID, amounts[i].Dec()).Inscription()
		if err != nil {
			return nil, err
		}
		out, err := ordlock.Output(ordAddr, l.PayAddress, l.Price, insc)
		if err != nil {
			return nil, err
		}
		payout, err := ordlock.EncodePayout(l.PayAddress, l.Price)
		if err != nil {
			return nil, err
		}
		vout := b.addOutput(out)
		if err := ledger.AddOutput(amounts[i]); err != nil {
			return nil, err
		}
		listed = append(listed, &bsv20.TokenUTXO{
			UTXO:      tx.UTXO{Vout: vout, Satoshis: out.Satoshis, Script: out.LockingScript.Bytes()},
			Amt:       amounts[i].Dec(),
			ID:        cfg.TokenID,
			Payout:    payout,
			Price:     l.Price,
			IsListing: true,
		})
	}
	change, err := b.addTokenChange(ledger, cfg.Protocol, cfg.TokenChangeAddress, cfg.OrdKey, cfg.SplitConfig)
	if err != nil {
		return nil, err
	}
	if err := b.addPayments(); err != nil {
		return nil, err
	}

	res, err = b.finish(ctx)
	if err != nil {
		return nil, err
	}
	bsv20.BackfillTxID(res.TxID, listed)
	bsv20.BackfillTxID(res.TxID, change)
	res.TokenListings = listed
	res.TokenChange = change
	return res, nil
}

// CancelTokenListingsConfig withdraws token listings.
type CancelTokenListingsConfig struct {
	Options
	Protocol   bsv20.Protocol
	TokenID    string
	Listings   []*bsv20.TokenUTXO
	OrdKey     *ec.PrivateKey
	OrdAddress string // receives the tokens; defaults to the first cancelling key's address
	Metadata   inscription.Metadata
}

// CancelTokenListings spends every listing with its cancel key and returns
// the combined amount in a single transfer record output.
func CancelTokenListings(ctx context.Context, cfg *CancelTokenListingsConfig) (res *Result, err error) {
	defer func() { observe(OpCancelTokenListings, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if _, err := cfg.Protocol.IDField(); err != nil {
		return nil, err
	}
	if len(cfg.Listings) == 0 {
		return nil, fmt.Errorf("%w: no listings", tx.ErrValidation)
	}
	if err := bsv20.ValidateSameToken(cfg.Listings, cfg.TokenID); err != nil {
		return nil, err
	}
	keys, err := tx.ResolveKeys(bsv20.UTXOs(cfg.Listings), cfg.OrdKey, tx.RoleOrdinal)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(OpCancelTokenListings, &cfg.Options)
	if err != nil {
		return nil, err
	}

	ledger := bsv20.NewLedger(cfg.TokenID)
	if err := ledger.AddInputs(cfg.Listings...); err != nil {
		return nil, err
	}
	for i, l := range cfg.Listings {
		if err := b.addCancelInput(&l.UTXO, keys[i]); err != nil {
			return nil, err
		}
	}
	total, err := bsv20.SumAmounts(cfg.Listings)
	if err != nil {
		return nil, err
	}
	ordAddr, err := b.address(cfg.OrdAddress, keys[0], tx.RoleOrdinal)
	if err != nil {
		return nil, err
	}
	returned, err := b.addRecordOutput(ordAddr, bsv20.TransferRecord(cfg.Protocol, cfg.TokenID, total.Dec()), cfg.Metadata)
	if err != nil {
		return nil, err
	}
	if err := ledger.AddOutput(total); err != nil {
		return nil, err
	}
	if _, err := ledger.Accounting(); err != nil {
		return nil, err
	}
	if err := b.addPayments(); err != nil {
		return nil, err
	}

	res, err = b.finish(ctx)
	if err != nil {
		return nil, err
	}
	returned.TxID = res.TxID
	res.TokenChange = []*bsv20.TokenUTXO{returned}
	return res, nil
}

// PurchaseTokenListingConfig buys a token listing.
type PurchaseTokenListingConfig struct {
	Options
	Protocol   bsv20.Protocol
	TokenID    string
	Listing    *bsv20.TokenUTXO
	OrdAddress string // receives the tokens
	Royalties  []*Royalty
	Paymail    PaymailResolver
	Metadata   inscription.Metadata
}

// PurchaseTokenListing buys a listing through the purchase path. Output 0
// carries a transfer record for the full listed amount; the purchased
// tokens are returned in Result.TokenChange.
func PurchaseTokenListing(ctx context.Context, cfg *PurchaseTokenListingConfig) (res *Result, err error) {
	defer func() { observe(OpPurchaseTokenListing, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if _, err := cfg.Protocol.IDField(); err != nil {
		return nil, err
	}
	if cfg.Listing == nil {
		return nil, fmt.Errorf("%w: listing utxo", tx.ErrNilParam)
	}
	if err := bsv20.ValidateSameToken([]*bsv20.TokenUTXO{cfg.Listing}, cfg.TokenID); err != nil {
		return nil, err
	}
	if err := validateRoyalties(cfg.Royalties); err != nil {
		return nil, err
	}
	b, err := newBuilder(OpPurchaseTokenListing, &cfg.Options)
	if err != nil {
		return nil, err
	}

	rec := bsv20.TransferRecord(cfg.Protocol, cfg.TokenID, cfg.Listing.Amt)
	item, err := bsv20.RecordOutput(cfg.OrdAddress, rec, cfg.Metadata)
	if err != nil {
		return nil, err
	}
	if err := b.addPurchase(ctx, &cfg.Listing.UTXO, cfg.Listing.Payout, cfg.Royalties, cfg.Paymail, item); err != nil {
		return nil, err
	}

	res, err = b.finish(ctx)
	if err != nil {
		return nil, err
	}
	res.TokenChange = []*bsv20.TokenUTXO{{
		UTXO: tx.UTXO{TxID: res.TxID, Vout: 0, Satoshis: item.Satoshis, Script: item.LockingScript.Bytes()},
		Amt:  cfg.Listing.Amt,
		ID:   cfg.TokenID,
	}}
	return res, nil
}

// scaleDistributions scales every distribution amount and returns the
// scaled amounts with their total.
func scaleDistributions(ds []*Distribution, decimals uint8) ([]*uint256.Int, *uint256.Int, error) {
	amounts := make([]*uint256.Int, len(ds))
	total := new(uint256.Int)
	for i, d := range ds {
		if d == nil {
			return nil, nil, fmt.Errorf("%w: distribution %d", tx.ErrNilParam, i)
		}
		amt, err := scaleNonZero(d.Tokens, decimals)
		if err != nil {
			return nil, nil, fmt.Errorf("amount %d: %w", i, err)
		}
		if _, overflow := total.AddOverflow(total, amt); overflow {
			return nil, nil, fmt.Errorf("%w: token amount overflow", tx.ErrValidation)
		}
		amounts[i] = amt
	}
	return amounts, total, nil
}
