package ordinals

import (
	"context"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/ordlock"
	"github.com/bitfsorg/ordinals-go/tx"
)

// NewOrdListing offers one inscription for sale.
type NewOrdListing struct {
	ListingUTXO *tx.UTXO // the ordinal being listed
	PayAddress  string   // receives Price on purchase
	Price       uint64
	OrdAddress  string // may cancel; defaults to the signing key's address
}

// CreateOrdListingsConfig lists inscriptions.
type CreateOrdListingsConfig struct {
	Options
	Listings []*NewOrdListing
	OrdKey   *ec.PrivateKey
}

// CreateOrdListings moves each ordinal into a 1-satoshi OrdLock output.
func CreateOrdListings(ctx context.Context, cfg *CreateOrdListingsConfig) (res *Result, err error) {
	defer func() { observe(OpCreateOrdListings, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if len(cfg.Listings) == 0 {
		return nil, fmt.Errorf("%w: no listings", tx.ErrValidation)
	}
	utxos := make([]*tx.UTXO, len(cfg.Listings))
	for i, l := range cfg.Listings {
		if l == nil || l.ListingUTXO == nil {
			return nil, fmt.Errorf("%w: listing %d utxo", tx.ErrNilParam, i)
		}
		if l.Price == 0 {
			return nil, fmt.Errorf("%w: listing %d has no price", tx.ErrValidation, i)
		}
		utxos[i] = l.ListingUTXO
	}
	keys, err := tx.ResolveKeys(utxos, cfg.OrdKey, tx.RoleOrdinal)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(OpCreateOrdListings, &cfg.Options)
	if err != nil {
		return nil, err
	}

	for i, l := range cfg.Listings {
		if err := b.addOrdinalInput(l.ListingUTXO, keys[i]); err != nil {
			return nil, err
		}
		ordAddr, err := b.address(l.OrdAddress, keys[i], tx.RoleOrdinal)
		if err != nil {
			return nil, err
		}
		out, err := ordlock.Output(ordAddr, l.PayAddress, l.Price, nil)
		if err != nil {
			return nil, err
		}
		b.addOutput(out)
	}
	if err := b.addPayments(); err != nil {
		return nil, err
	}
	return b.finish(ctx)
}

// CancelOrdListingsConfig withdraws inscription listings.
type CancelOrdListingsConfig struct {
	Options
	Listings   []*tx.UTXO
	OrdKey     *ec.PrivateKey // cancel authority for listings without their own key
	OrdAddress string         // receives the ordinals; defaults to the cancelling key's address
}

// CancelOrdListings spends each listing with its cancel key and returns the
// ordinal in a 1-satoshi P2PKH output.
func CancelOrdListings(ctx context.Context, cfg *CancelOrdListingsConfig) (res *Result, err error) {
	defer func() { observe(OpCancelOrdListings, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if len(cfg.Listings) == 0 {
		return nil, fmt.Errorf("%w: no listings", tx.ErrValidation)
	}
	keys, err := tx.ResolveKeys(cfg.Listings, cfg.OrdKey, tx.RoleOrdinal)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(OpCancelOrdListings, &cfg.Options)
	if err != nil {
		return nil, err
	}

	for i, l := range cfg.Listings {
		if err := b.addCancelInput(l, keys[i]); err != nil {
			return nil, err
		}
		ordAddr, err := b.address(cfg.OrdAddress, keys[i], tx.RoleOrdinal)
		if err != nil {
			return nil, err
		}
		out, err := tx.P2PKHOutput(ordAddr, 1)
		if err != nil {
			return nil, err
		}
		b.addOutput(out)
	}
	if err := b.addPayments(); err != nil {
		return nil, err
	}
	return b.finish(ctx)
}

func (b *builder) addCancelInput(u *tx.UTXO, key *ec.PrivateKey) error {
	if !ordlock.IsOrdLock(script.NewFromBytes(u.Script)) {
		return fmt.Errorf("%w: %w: %s", tx.ErrValidation, ordlock.ErrNotOrdLock, u.Outpoint())
	}
	tmpl, err := ordlock.CancelListing(key)
	if err != nil {
		return err
	}
	return b.addInput(u, tmpl)
}

// PurchaseOrdListingConfig buys an inscription listing.
type PurchaseOrdListingConfig struct {
	Options
	Listing    *tx.UTXO // the OrdLock output
	Payout     []byte   // serialized payout; read from the listing script when empty
	OrdAddress string   // receives the ordinal
	Royalties  []*Royalty
	Paymail    PaymailResolver // resolves paymail royalties; nil = paymail.Client
	Metadata   inscription.Metadata
}

// PurchaseOrdListing spends a listing through the purchase path. Output 0
// delivers the ordinal, output 1 replicates the payout, then royalties,
// additional payments and change follow.
func PurchaseOrdListing(ctx context.Context, cfg *PurchaseOrdListingConfig) (res *Result, err error) {
	defer func() { observe(OpPurchaseOrdListing, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if cfg.Listing == nil {
		return nil, fmt.Errorf("%w: listing utxo", tx.ErrNilParam)
	}
	if err := validateRoyalties(cfg.Royalties); err != nil {
		return nil, err
	}
	b, err := newBuilder(OpPurchaseOrdListing, &cfg.Options)
	if err != nil {
		return nil, err
	}

	item, err := inscription.Output(cfg.OrdAddress, nil, cfg.Metadata)
	if err != nil {
		return nil, err
	}
	if err := b.addPurchase(ctx, cfg.Listing, cfg.Payout, cfg.Royalties, cfg.Paymail, item); err != nil {
		return nil, err
	}
	return b.finish(ctx)
}

// addPurchase spends listing through the purchase path and lays out item,
// the payout replica, royalties and the additional payments. It must run on
// an empty draft so the item lands at output 0.
func (b *builder) addPurchase(ctx context.Context, listing *tx.UTXO, payout []byte, royalties []*Royalty, resolver PaymailResolver, item *transaction.TransactionOutput) error {
	if len(b.tx.Outputs) != 0 {
		return fmt.Errorf("%w: purchase outputs must come first", tx.ErrValidation)
	}
	lockScript := script.NewFromBytes(listing.Script)
	if len(payout) == 0 {
		l, err := ordlock.Parse(lockScript)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", tx.ErrValidation, listing.Outpoint(), err)
		}
		payout = l.Payout
	}
	payoutOut, err := ordlock.DecodePayout(payout)
	if err != nil {
		return err
	}
	tmpl, err := ordlock.PurchaseListing(listing.Satoshis, lockScript)
	if err != nil {
		return err
	}
	if err := b.addInput(listing, tmpl); err != nil {
		return err
	}

	b.addOutput(item)
	b.addOutput(payoutOut)
	if err := b.addRoyalties(ctx, royalties, payoutOut.Satoshis, resolver); err != nil {
		return err
	}
	return b.addPayments()
}
