package tx

import (
	"github.com/bsv-blockchain/go-sdk/transaction"
	sighash "github.com/bsv-blockchain/go-sdk/transaction/sighash"
	"github.com/bsv-blockchain/go-sdk/util"
)

const (
	// DefaultSatsPerKb is the fee rate used when a builder is given zero.
	DefaultSatsPerKb = uint64(10)

	// LargeBatchThreshold is the output count above which builders warn.
	LargeBatchThreshold = 100

	// PaymentSigHash is the sighash recipe for funding inputs.
	PaymentSigHash = sighash.AllForkID | sighash.AnyOneCanPay
)

// EstimateFee returns ceil(size * satsPerKb / 1000).
func EstimateFee(txSizeBytes int, satsPerKb uint64) uint64 {
	if satsPerKb == 0 {
		satsPerKb = DefaultSatsPerKb
	}
	fee := uint64(txSizeBytes) * satsPerKb
	// Ceiling division by 1000
	return (fee + 999) / 1000
}

// EstimateSize returns the serialized size of t. Inputs that are not yet
// signed contribute their template's EstimateLength.
//
// Layout:
//
//	version(4) varint(nIn) [txid(32) vout(4) varint(l) unlock(l) seq(4)]...
//	varint(nOut) [value(8) varint(l) lock(l)]... locktime(4)
func EstimateSize(t *transaction.Transaction) int {
	size := 4 + util.VarInt(uint64(len(t.Inputs))).Length()
	for i, in := range t.Inputs {
		l := 0
		switch {
		case in.UnlockingScript != nil:
			l = len(*in.UnlockingScript)
		case in.UnlockingScriptTemplate != nil:
			l = int(in.UnlockingScriptTemplate.EstimateLength(t, uint32(i)))
		}
		size += 32 + 4 + util.VarInt(uint64(l)).Length() + l + 4
	}
	size += util.VarInt(uint64(len(t.Outputs))).Length()
	for _, out := range t.Outputs {
		l := 0
		if out.LockingScript != nil {
			l = len(*out.LockingScript)
		}
		size += 8 + util.VarInt(uint64(l)).Length() + l
	}
	return size + 4
}

// TotalOutput sums every output value, including the change placeholder.
func TotalOutput(t *transaction.Transaction) uint64 {
	var total uint64
	for _, out := range t.Outputs {
		total += out.Satoshis
	}
	return total
}

// TotalInput sums the attached source output values of every input.
func TotalInput(t *transaction.Transaction) uint64 {
	var total uint64
	for _, in := range t.Inputs {
		if sats := in.SourceTxSatoshis(); sats != nil {
			total += *sats
		}
	}
	return total
}
