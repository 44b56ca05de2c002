// Package ordlock implements the OrdLock listing covenant: an output that
// either the seller cancels with a signature or anyone purchases by paying
// the committed payout.
package ordlock

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/tx"
)

// PubKeyHashLen is the length of the cancel authority's key hash.
const PubKeyHashLen = 20

// ErrNotOrdLock indicates a script does not contain the covenant.
var ErrNotOrdLock = errors.New("ordlock: not an OrdLock script")

// Listing is the data committed by an OrdLock script.
type Listing struct {
	CancelPKH []byte         // 20-byte hash of the cancel authority
	Price     uint64         // payout satoshis
	PayScript *script.Script // payout locking script
	Payout    []byte         // serialized payout output
}

// EncodePayout serializes the payout output: LE64(price) varint(len) script.
func EncodePayout(payAddress string, price uint64) ([]byte, error) {
	out, err := tx.P2PKHOutput(payAddress, price)
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecodePayout parses a serialized payout output.
func DecodePayout(payout []byte) (*transaction.TransactionOutput, error) {
	if len(payout) < 9 {
		return nil, fmt.Errorf("%w: payout too short (%d bytes)", tx.ErrValidation, len(payout))
	}
	out := &transaction.TransactionOutput{}
	n, err := out.ReadFrom(bytes.NewReader(payout))
	if err != nil {
		return nil, fmt.Errorf("%w: payout: %w", tx.ErrValidation, err)
	}
	if int(n) != len(payout) {
		return nil, fmt.Errorf("%w: payout has %d trailing bytes", tx.ErrValidation, len(payout)-int(n))
	}
	return out, nil
}

// Lock builds an OrdLock script:
//
//	[inscription envelope] <prefix> <pkh(ordAddress)> <payout> <suffix>
//
// ordAddress may cancel; a purchase must pay price to payAddress. The
// envelope is present when insc is non-nil (token listings).
func Lock(ordAddress, payAddress string, price uint64, insc *inscription.Inscription) (*script.Script, error) {
	ordAddr, err := tx.DecodeAddress(ordAddress)
	if err != nil {
		return nil, err
	}
	payout, err := EncodePayout(payAddress, price)
	if err != nil {
		return nil, err
	}

	s := &script.Script{}
	if insc != nil {
		if err := inscription.AppendEnvelope(s, insc); err != nil {
			return nil, err
		}
	}
	*s = append(*s, prefix...)
	if err := s.AppendPushData(ordAddr.PublicKeyHash); err != nil {
		return nil, fmt.Errorf("%w: cancel key hash: %w", tx.ErrScript, err)
	}
	if err := s.AppendPushData(payout); err != nil {
		return nil, fmt.Errorf("%w: payout: %w", tx.ErrScript, err)
	}
	*s = append(*s, suffix...)
	return s, nil
}

// Output builds the 1-satoshi listing output.
func Output(ordAddress, payAddress string, price uint64, insc *inscription.Inscription) (*transaction.TransactionOutput, error) {
	s, err := Lock(ordAddress, payAddress, price, insc)
	if err != nil {
		return nil, err
	}
	return &transaction.TransactionOutput{Satoshis: 1, LockingScript: s}, nil
}

// IsOrdLock reports whether s contains the covenant prefix and suffix.
func IsOrdLock(s *script.Script) bool {
	return s != nil && bytes.Contains(*s, prefix) && bytes.Contains(*s, suffix)
}

// Parse recovers the committed listing data from an OrdLock script.
func Parse(s *script.Script) (*Listing, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: script", tx.ErrNilParam)
	}
	start := bytes.Index(*s, prefix)
	if start == -1 {
		return nil, ErrNotOrdLock
	}
	pos := start + len(prefix)
	body := script.NewFromBytes((*s)[pos:])

	cur := 0
	pkh, err := body.ReadOp(&cur)
	if err != nil || len(pkh.Data) != PubKeyHashLen {
		return nil, fmt.Errorf("%w: missing cancel key hash", ErrNotOrdLock)
	}
	payoutOp, err := body.ReadOp(&cur)
	if err != nil {
		return nil, fmt.Errorf("%w: missing payout", ErrNotOrdLock)
	}
	if !bytes.HasPrefix((*body)[cur:], suffix) {
		return nil, fmt.Errorf("%w: missing suffix", ErrNotOrdLock)
	}
	out, err := DecodePayout(payoutOp.Data)
	if err != nil {
		return nil, err
	}
	return &Listing{
		CancelPKH: append([]byte(nil), pkh.Data...),
		Price:     out.Satoshis,
		PayScript: out.LockingScript,
		Payout:    append([]byte(nil), payoutOp.Data...),
	}, nil
}
