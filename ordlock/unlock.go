package ordlock

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sighash "github.com/bsv-blockchain/go-sdk/transaction/sighash"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/bsv-blockchain/go-sdk/util"

	"github.com/bitfsorg/ordinals-go/tx"
)

const (
	// CancelUnlockLength is the estimated cancel unlock size:
	// signature push (<=74) + pubkey push (34) + branch selector.
	CancelUnlockLength = 108

	// PurchaseSigHash is the preimage recipe committed by a purchase.
	PurchaseSigHash = sighash.AllForkID | sighash.AnyOneCanPay

	// preimageFixedLen covers every BIP143 preimage field except the
	// script code: version, prevouts hash, sequence hash, outpoint, value,
	// sequence, outputs hash, locktime and sighash type.
	preimageFixedLen = 4 + 32 + 32 + 36 + 8 + 4 + 32 + 4 + 4
)

// Cancel unlocks a listing with the cancel authority's signature.
type Cancel struct {
	sig *p2pkh.P2PKH
}

var _ transaction.UnlockingScriptTemplate = (*Cancel)(nil)

// CancelListing returns the template that spends a listing back to its
// owner: <sig> <pubkey> OP_1.
func CancelListing(key *ec.PrivateKey) (*Cancel, error) {
	u, err := p2pkh.Unlock(key, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: cancel unlocker: %w", tx.ErrSigning, err)
	}
	return &Cancel{sig: u}, nil
}

// Sign implements transaction.UnlockingScriptTemplate.
func (c *Cancel) Sign(t *transaction.Transaction, inputIndex uint32) (*script.Script, error) {
	s, err := c.sig.Sign(t, inputIndex)
	if err != nil {
		return nil, err
	}
	if err := s.AppendOpcodes(script.OpTRUE); err != nil {
		return nil, err
	}
	return s, nil
}

// EstimateLength implements transaction.UnlockingScriptTemplate.
func (c *Cancel) EstimateLength(_ *transaction.Transaction, _ uint32) uint32 {
	return CancelUnlockLength
}

// Purchase unlocks a listing without any key by committing to the
// transaction's outputs. The layout contract is:
//
//	output 0: the purchased item
//	output 1: the payout committed by the listing
//	output 2..: anything else (royalties, payments, change)
type Purchase struct {
	sourceSatoshis uint64
	sourceScript   *script.Script
}

var _ transaction.UnlockingScriptTemplate = (*Purchase)(nil)

// PurchaseListing returns the template for buying a listing whose output
// holds sourceSatoshis locked by sourceScript.
func PurchaseListing(sourceSatoshis uint64, sourceScript *script.Script) (*Purchase, error) {
	if sourceScript == nil || len(*sourceScript) == 0 {
		return nil, fmt.Errorf("%w: listing script", tx.ErrNilParam)
	}
	return &Purchase{sourceSatoshis: sourceSatoshis, sourceScript: sourceScript}, nil
}

// Sign implements transaction.UnlockingScriptTemplate:
//
//	<output0> <outputs[2:] | OP_0> <preimage> OP_0
func (p *Purchase) Sign(t *transaction.Transaction, inputIndex uint32) (*script.Script, error) {
	if int(inputIndex) >= len(t.Inputs) {
		return nil, fmt.Errorf("%w: input %d out of range", tx.ErrScript, inputIndex)
	}
	if len(t.Outputs) < 2 {
		return nil, fmt.Errorf("%w: purchase needs item and payout outputs, have %d", tx.ErrScript, len(t.Outputs))
	}
	in := t.Inputs[inputIndex]
	if in.SourceTxOutput() == nil {
		in.SetSourceTxOutput(&transaction.TransactionOutput{
			Satoshis:      p.sourceSatoshis,
			LockingScript: p.sourceScript,
		})
	}

	s := &script.Script{}
	if err := s.AppendPushData(t.Outputs[0].Bytes()); err != nil {
		return nil, err
	}
	if extras := extraOutputs(t); len(extras) > 0 {
		if err := s.AppendPushData(extras); err != nil {
			return nil, err
		}
	} else if err := s.AppendOpcodes(script.Op0); err != nil {
		return nil, err
	}

	preimage, err := t.CalcInputPreimage(inputIndex, PurchaseSigHash)
	if err != nil {
		return nil, fmt.Errorf("%w: purchase preimage: %w", tx.ErrScript, err)
	}
	if err := s.AppendPushData(preimage); err != nil {
		return nil, err
	}
	if err := s.AppendOpcodes(script.Op0); err != nil {
		return nil, err
	}
	return s, nil
}

// EstimateLength implements transaction.UnlockingScriptTemplate. The size
// depends only on output script lengths, so it is exact for the current
// output set.
func (p *Purchase) EstimateLength(t *transaction.Transaction, _ uint32) uint32 {
	n := 0
	if t != nil && len(t.Outputs) > 0 {
		n += pushLen(len(t.Outputs[0].Bytes()))
	}
	if extras := extraOutputs(t); len(extras) > 0 {
		n += pushLen(len(extras))
	} else {
		n++
	}
	scriptLen := len(*p.sourceScript)
	n += pushLen(preimageFixedLen + util.VarInt(uint64(scriptLen)).Length() + scriptLen)
	return uint32(n + 1)
}

// extraOutputs concatenates every output after the payout.
func extraOutputs(t *transaction.Transaction) []byte {
	if t == nil || len(t.Outputs) <= 2 {
		return nil
	}
	var b []byte
	for _, out := range t.Outputs[2:] {
		b = append(b, out.Bytes()...)
	}
	return b
}

// pushLen is the size of a data push of n bytes.
func pushLen(n int) int {
	switch {
	case n <= 75:
		return 1 + n
	case n <= 0xff:
		return 2 + n
	case n <= 0xffff:
		return 3 + n
	default:
		return 5 + n
	}
}
