package tx

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"go.uber.org/zap"
)

// FundParams holds the inputs to the funding loop.
type FundParams struct {
	Candidates []*UTXO        // consumed in the given order, never sorted
	SatsPerKb  uint64         // fee rate (0 = DefaultSatsPerKb)
	PaymentKey *ec.PrivateKey // role default for candidates without a key
	PreFunded  uint64         // value of non-funding inputs already in the draft
	Logger     *zap.Logger    // optional
}

// FundResult reports what the funding loop appended.
type FundResult struct {
	Inputs   []*UTXO // candidates appended, in order
	TotalIn  uint64  // PreFunded plus appended candidates
	TotalOut uint64
	Fee      uint64
}

// Fund appends candidates to t as P2PKH payment inputs until their value
// covers every output plus the fee for the draft as it stands. The draft must
// already carry all other inputs and outputs, including a zero-valued change
// placeholder.
//
// The loop stops at the first candidate that satisfies
// totalIn >= totalOut + fee; candidates after it are left untouched. On
// exhaustion it returns an *InsufficientFundsError with the final numbers.
func Fund(t *transaction.Transaction, params *FundParams) (*FundResult, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: transaction", ErrNilParam)
	}
	if params == nil {
		return nil, fmt.Errorf("%w: params", ErrNilParam)
	}
	log := params.Logger
	if log == nil {
		log = zap.NewNop()
	}

	res := &FundResult{TotalIn: params.PreFunded, TotalOut: TotalOutput(t)}
	res.Fee = EstimateFee(EstimateSize(t), params.SatsPerKb)
	if res.TotalIn > 0 && res.TotalIn >= res.TotalOut+res.Fee {
		return res, nil
	}
	for i, utxo := range params.Candidates {
		if utxo == nil {
			return nil, fmt.Errorf("%w: candidate[%d]", ErrNilParam, i)
		}
		key, err := ResolveKey(utxo, params.PaymentKey, RolePayment)
		if err != nil {
			return nil, err
		}
		unlocker, err := PaymentUnlocker(key)
		if err != nil {
			return nil, err
		}
		in, err := utxo.Input(unlocker)
		if err != nil {
			return nil, err
		}
		t.AddInput(in)
		res.Inputs = append(res.Inputs, utxo)
		res.TotalIn += utxo.Satoshis
		res.TotalOut = TotalOutput(t)
		res.Fee = EstimateFee(EstimateSize(t), params.SatsPerKb)

		log.Debug("funding input added",
			zap.String("outpoint", utxo.Outpoint()),
			zap.Uint64("total_in", res.TotalIn),
			zap.Uint64("total_out", res.TotalOut),
			zap.Uint64("fee", res.Fee))

		if res.TotalIn >= res.TotalOut+res.Fee {
			return res, nil
		}
	}

	return nil, &InsufficientFundsError{TotalIn: res.TotalIn, TotalOut: res.TotalOut, Fee: res.Fee}
}
