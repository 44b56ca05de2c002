package ordinals

import (
	"context"
	"fmt"
	"math"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"go.uber.org/zap"

	"github.com/bitfsorg/ordinals-go/paymail"
	"github.com/bitfsorg/ordinals-go/tx"
)

// RoyaltyType selects how a royalty destination is interpreted.
type RoyaltyType string

const (
	RoyaltyAddress RoyaltyType = "address" // base58 P2PKH address
	RoyaltyScript  RoyaltyType = "script"  // hex locking script
	RoyaltyPaymail RoyaltyType = "paymail" // alias@domain handle
)

// Royalty pays a share of a listing's payout to a creator.
type Royalty struct {
	Type        RoyaltyType `json:"type"`
	Destination string      `json:"destination"`
	Percentage  float64     `json:"percentage"` // fraction of the payout, 0 < p <= 1
}

// Amount returns floor(Percentage * price).
func (r *Royalty) Amount(price uint64) uint64 {
	return uint64(math.Floor(float64(price) * r.Percentage))
}

func validateRoyalties(royalties []*Royalty) error {
	for i, r := range royalties {
		if r == nil {
			return fmt.Errorf("%w: royalty %d", tx.ErrNilParam, i)
		}
		if !(r.Percentage > 0 && r.Percentage <= 1) {
			return fmt.Errorf("%w: royalty %d percentage %v outside (0, 1]", tx.ErrValidation, i, r.Percentage)
		}
		if r.Destination == "" {
			return fmt.Errorf("%w: royalty %d has no destination", tx.ErrValidation, i)
		}
		switch r.Type {
		case RoyaltyAddress, RoyaltyScript, RoyaltyPaymail:
		default:
			return fmt.Errorf("%w: royalty %d has unknown type %q", tx.ErrValidation, i, r.Type)
		}
	}
	return nil
}

// addRoyalties appends one output set per royalty, computed against the
// payout price. Royalties that round to zero are skipped.
func (b *builder) addRoyalties(ctx context.Context, royalties []*Royalty, price uint64, resolver PaymailResolver) error {
	for i, r := range royalties {
		sats := r.Amount(price)
		if sats == 0 {
			b.log.Debug("royalty rounds to zero", zap.Int("royalty", i), zap.String("destination", r.Destination))
			continue
		}

		var outs []*transaction.TransactionOutput
		switch r.Type {
		case RoyaltyAddress:
			out, err := tx.P2PKHOutput(r.Destination, sats)
			if err != nil {
				return err
			}
			outs = append(outs, out)
		case RoyaltyScript:
			s, err := script.NewFromHex(r.Destination)
			if err != nil || len(*s) == 0 {
				return fmt.Errorf("%w: royalty %d script %q", tx.ErrValidation, i, r.Destination)
			}
			outs = append(outs, &transaction.TransactionOutput{Satoshis: sats, LockingScript: s})
		case RoyaltyPaymail:
			if resolver == nil {
				resolver = &paymail.Client{Logger: b.log}
			}
			resolved, err := resolver.ResolveOutputs(ctx, r.Destination, sats)
			if err != nil {
				return fmt.Errorf("royalty %d: %w", i, err)
			}
			outs = resolved
		}

		for _, out := range outs {
			b.addOutput(out)
		}
		b.log.Debug("royalty added",
			zap.String("type", string(r.Type)),
			zap.String("destination", r.Destination),
			zap.Uint64("satoshis", sats))
	}
	return nil
}
