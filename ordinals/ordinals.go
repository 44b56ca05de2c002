package ordinals

import (
	"context"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/tx"
)

// CreateOrdinalsConfig inscribes new ordinals.
type CreateOrdinalsConfig struct {
	Options
	Destinations []*Destination
	Metadata     inscription.Metadata // MAP data attached to every inscription
}

// CreateOrdinals creates one 1-satoshi inscription output per destination.
func CreateOrdinals(ctx context.Context, cfg *CreateOrdinalsConfig) (res *Result, err error) {
	defer func() { observe(OpCreateOrdinals, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if len(cfg.Destinations) == 0 {
		return nil, fmt.Errorf("%w: no destinations", tx.ErrValidation)
	}
	b, err := newBuilder(OpCreateOrdinals, &cfg.Options)
	if err != nil {
		return nil, err
	}

	for i, d := range cfg.Destinations {
		if d == nil || d.Inscription == nil {
			return nil, fmt.Errorf("%w: destination %d has no inscription", tx.ErrValidation, i)
		}
		out, err := inscription.Output(d.Address, d.Inscription, cfg.Metadata)
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

// SendOrdinalsConfig moves existing ordinals.
type SendOrdinalsConfig struct {
	Options
	Ordinals     []*tx.UTXO
	OrdKey       *ec.PrivateKey // signs ordinals without their own key
	Destinations []*Destination // an Inscription here re-inscribes the ordinal
	Metadata     inscription.Metadata

	// EnforceUniformSend requires one destination per ordinal.
	EnforceUniformSend bool
}

// SendOrdinals spends cfg.Ordinals and creates one 1-satoshi OrdP2PKH output
// per destination.
func SendOrdinals(ctx context.Context, cfg *SendOrdinalsConfig) (res *Result, err error) {
	defer func() { observe(OpSendOrdinals, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if len(cfg.Ordinals) == 0 {
		return nil, fmt.Errorf("%w: no ordinals to send", tx.ErrValidation)
	}
	if len(cfg.Destinations) == 0 {
		return nil, fmt.Errorf("%w: no destinations", tx.ErrValidation)
	}
	if cfg.EnforceUniformSend && len(cfg.Destinations) != len(cfg.Ordinals) {
		return nil, fmt.Errorf("%w: number of destinations (%d) must match number of ordinals (%d)",
			tx.ErrValidation, len(cfg.Destinations), len(cfg.Ordinals))
	}
	keys, err := tx.ResolveKeys(cfg.Ordinals, cfg.OrdKey, tx.RoleOrdinal)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(OpSendOrdinals, &cfg.Options)
	if err != nil {
		return nil, err
	}

	for i, u := range cfg.Ordinals {
		if err := b.addOrdinalInput(u, keys[i]); err != nil {
			return nil, err
		}
	}
	for i, d := range cfg.Destinations {
		if d == nil {
			return nil, fmt.Errorf("%w: destination %d", tx.ErrNilParam, i)
		}
		out, err := inscription.Output(d.Address, d.Inscription, cfg.Metadata)
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

// SendUtxosConfig pays satoshis without touching ordinals.
type SendUtxosConfig struct {
	Options
	Payments []*tx.Payment
}

// SendUtxos pays each of cfg.Payments from the payment UTXOs. The options'
// AdditionalPayments follow them.
func SendUtxos(ctx context.Context, cfg *SendUtxosConfig) (res *Result, err error) {
	defer func() { observe(OpSendUtxos, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if len(cfg.Payments) == 0 && len(cfg.AdditionalPayments) == 0 {
		return nil, fmt.Errorf("%w: no payments", tx.ErrValidation)
	}
	b, err := newBuilder(OpSendUtxos, &cfg.Options)
	if err != nil {
		return nil, err
	}

	for i, p := range cfg.Payments {
		if p == nil || p.Satoshis == 0 {
			return nil, fmt.Errorf("%w: payment %d has no amount", tx.ErrValidation, i)
		}
		out, err := tx.P2PKHOutput(p.Address, p.Satoshis)
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
