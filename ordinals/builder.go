package ordinals

import (
	"context"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"go.uber.org/zap"

	"github.com/bitfsorg/ordinals-go/bsv20"
	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/internal/metrics"
	"github.com/bitfsorg/ordinals-go/tx"
)

// builder assembles one draft. Operation inputs and outputs are appended
// first; finish adds co-signer outputs, the change placeholder and funding
// inputs, then signs.
type builder struct {
	op    string
	opts  *Options
	log   *zap.Logger
	tx    *transaction.Transaction
	spent []string
}

// newBuilder resolves a key for every payment candidate, including ones the
// funding step may leave unspent, so a missing key fails the build before
// any script is constructed or the co-signer is called.
func newBuilder(op string, opts *Options) (*builder, error) {
	if opts == nil {
		opts = &Options{}
	}
	if _, err := tx.ResolveKeys(opts.PaymentUTXOs, opts.PaymentKey, tx.RolePayment); err != nil {
		return nil, err
	}
	for i, p := range opts.AdditionalPayments {
		if p == nil || p.Satoshis == 0 {
			return nil, fmt.Errorf("%w: additional payment %d has no amount", tx.ErrValidation, i)
		}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &builder{
		op:   op,
		opts: opts,
		log:  log.With(zap.String("op", op)),
		tx:   transaction.NewTransaction(),
	}, nil
}

// address returns addr, or the address of key when addr is empty.
func (b *builder) address(addr string, key *ec.PrivateKey, role tx.Role) (string, error) {
	if addr != "" {
		return addr, nil
	}
	if key == nil {
		return "", fmt.Errorf("%w: %s key or address", tx.ErrMissingKey, role)
	}
	return tx.AddressForKey(key, b.opts.Testnet)
}

func (b *builder) addInput(u *tx.UTXO, tmpl transaction.UnlockingScriptTemplate) error {
	in, err := u.Input(tmpl)
	if err != nil {
		return err
	}
	b.tx.AddInput(in)
	b.spent = append(b.spent, u.Outpoint())
	return nil
}

// addOrdinalInput spends an OrdP2PKH output with key.
func (b *builder) addOrdinalInput(u *tx.UTXO, key *ec.PrivateKey) error {
	tmpl, err := inscription.Unlock(key)
	if err != nil {
		return err
	}
	return b.addInput(u, tmpl)
}

// addTokenInputs spends token UTXOs, resolving each key against ordKey.
func (b *builder) addTokenInputs(utxos []*bsv20.TokenUTXO, ordKey *ec.PrivateKey) error {
	keys, err := tx.ResolveKeys(bsv20.UTXOs(utxos), ordKey, tx.RoleOrdinal)
	if err != nil {
		return err
	}
	for i, u := range utxos {
		if err := b.addOrdinalInput(&u.UTXO, keys[i]); err != nil {
			return err
		}
	}
	return nil
}

// addOutput appends out and returns its vout.
func (b *builder) addOutput(out *transaction.TransactionOutput) uint32 {
	b.tx.AddOutput(out)
	return uint32(len(b.tx.Outputs) - 1)
}

// addRecordOutput appends a 1-satoshi token record output and returns the
// token UTXO it creates.
func (b *builder) addRecordOutput(address string, rec *bsv20.Record, meta inscription.Metadata) (*bsv20.TokenUTXO, error) {
	out, err := bsv20.RecordOutput(address, rec, meta)
	if err != nil {
		return nil, err
	}
	vout := b.addOutput(out)
	return &bsv20.TokenUTXO{
		UTXO: tx.UTXO{Vout: vout, Satoshis: out.Satoshis, Script: out.LockingScript.Bytes()},
		Amt:  rec.Amt,
		ID:   rec.ID,
	}, nil
}

func (b *builder) addPayments() error {
	for _, p := range b.opts.AdditionalPayments {
		out, err := tx.P2PKHOutput(p.Address, p.Satoshis)
		if err != nil {
			return err
		}
		b.addOutput(out)
	}
	return nil
}

// finish runs the co-signer, funds the draft, settles change and signs.
func (b *builder) finish(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := len(b.tx.Outputs); n > tx.LargeBatchThreshold {
		b.log.Warn("large batch", zap.Int("outputs", n))
	}
	if b.opts.Signer != nil {
		if err := b.opts.Signer.CoSign(ctx, b.tx); err != nil {
			return nil, err
		}
	}

	changeAddr, err := b.address(b.opts.ChangeAddress, b.opts.PaymentKey, tx.RolePayment)
	if err != nil {
		return nil, err
	}
	changeScript, err := tx.P2PKHScript(changeAddr)
	if err != nil {
		return nil, err
	}
	b.tx.AddOutput(&transaction.TransactionOutput{LockingScript: changeScript, Change: true})

	funded, err := tx.Fund(b.tx, &tx.FundParams{
		Candidates: b.opts.PaymentUTXOs,
		SatsPerKb:  b.opts.SatsPerKb,
		PaymentKey: b.opts.PaymentKey,
		PreFunded:  tx.TotalInput(b.tx),
		Logger:     b.log,
	})
	if err != nil {
		return nil, err
	}
	for _, u := range funded.Inputs {
		b.spent = append(b.spent, u.Outpoint())
	}

	st, err := tx.Finalize(b.tx, b.opts.SatsPerKb)
	if err != nil {
		return nil, err
	}
	txid, err := tx.Sign(b.tx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Tx:             b.tx,
		TxID:           txid,
		SpentOutpoints: b.spent,
		Fee:            st.Fee,
		fundingInputs:  len(funded.Inputs),
	}
	if st.ChangeVout >= 0 {
		res.PayChange = &tx.UTXO{
			TxID:       txid,
			Vout:       uint32(st.ChangeVout),
			Satoshis:   st.Change,
			Script:     changeScript.Bytes(),
			PrivateKey: b.opts.PaymentKey,
		}
	}

	b.log.Debug("transaction built",
		zap.String("txid", txid),
		zap.Int("inputs", len(b.tx.Inputs)),
		zap.Int("outputs", len(b.tx.Outputs)),
		zap.Uint64("fee", st.Fee),
		zap.Uint64("change", st.Change))
	return res, nil
}

// observe records a builder outcome.
func observe(op string, res *Result, err error) {
	var (
		inputs int
		fee    uint64
	)
	if res != nil {
		inputs, fee = res.fundingInputs, res.Fee
	}
	metrics.ObserveBuild(op, err, inputs, fee)
}
