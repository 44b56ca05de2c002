package ordinals

import (
	"context"
	"fmt"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/bitfsorg/ordinals-go/bsv20"
	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/tx"
)

// TokenInputMode decides how many token UTXOs a transfer consumes.
type TokenInputMode string

const (
	// TokenInputNeeded consumes token UTXOs in order until the outputs are
	// covered.
	TokenInputNeeded TokenInputMode = "needed"
	// TokenInputAll consumes every token UTXO given.
	TokenInputAll TokenInputMode = "all"
)

// Distribution sends a display amount of tokens to an address.
type Distribution struct {
	Address      string
	Tokens       string // display amount, scaled by the token's decimals
	OmitMetadata bool   // skip the MAP metadata on this output
}

// TransferTokensConfig moves fungible tokens.
type TransferTokensConfig struct {
	Options
	Protocol           bsv20.Protocol
	TokenID            string // tick or origin outpoint
	Decimals           uint8
	InputTokens        []*bsv20.TokenUTXO
	Distributions      []*Distribution
	InputMode          TokenInputMode // "" = TokenInputNeeded
	OrdKey             *ec.PrivateKey
	TokenChangeAddress string // defaults to the ordinal key's address
	SplitConfig        *bsv20.SplitConfig
	Metadata           inscription.Metadata
}

// TransferTokens sends tokens to each distribution and returns the
// remainder as token change. Inputs always cover outputs exactly:
// sum(inputs) == sum(distributions) + sum(change).
func TransferTokens(ctx context.Context, cfg *TransferTokensConfig) (res *Result, err error) {
	defer func() { observe(OpTransferTokens, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if _, err := cfg.Protocol.IDField(); err != nil {
		return nil, err
	}
	if len(cfg.Distributions) == 0 {
		return nil, fmt.Errorf("%w: no distributions", tx.ErrValidation)
	}
	amounts, need, err := scaleDistributions(cfg.Distributions, cfg.Decimals)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(OpTransferTokens, &cfg.Options)
	if err != nil {
		return nil, err
	}

	ledger, err := b.spendTokens(cfg.InputTokens, cfg.TokenID, need, cfg.InputMode, cfg.OrdKey)
	if err != nil {
		return nil, err
	}
	for i, d := range cfg.Distributions {
		meta := cfg.Metadata
		if d.OmitMetadata {
			meta = nil
		}
		rec := bsv20.TransferRecord(cfg.Protocol, cfg.TokenID, amounts[i].Dec())
		if _, err := b.addRecordOutput(d.Address, rec, meta); err != nil {
			return nil, err
		}
		if err := ledger.AddOutput(amounts[i]); err != nil {
			return nil, err
		}
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
	bsv20.BackfillTxID(res.TxID, change)
	res.TokenChange = change
	return res, nil
}

// BurnTokensConfig destroys fungible tokens.
type BurnTokensConfig struct {
	Options
	Protocol           bsv20.Protocol
	TokenID            string
	Decimals           uint8
	InputTokens        []*bsv20.TokenUTXO
	Amount             string // display amount to burn
	InputMode          TokenInputMode
	OrdKey             *ec.PrivateKey
	OrdAddress         string // holds the burn record; defaults to the ordinal key's address
	TokenChangeAddress string
	SplitConfig        *bsv20.SplitConfig
	Metadata           inscription.Metadata
}

// BurnTokens writes a burn record for Amount and returns the remainder as
// token change.
func BurnTokens(ctx context.Context, cfg *BurnTokensConfig) (res *Result, err error) {
	defer func() { observe(OpBurnTokens, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	if _, err := cfg.Protocol.IDField(); err != nil {
		return nil, err
	}
	amt, err := scaleNonZero(cfg.Amount, cfg.Decimals)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(OpBurnTokens, &cfg.Options)
	if err != nil {
		return nil, err
	}

	ledger, err := b.spendTokens(cfg.InputTokens, cfg.TokenID, amt, cfg.InputMode, cfg.OrdKey)
	if err != nil {
		return nil, err
	}
	ordAddr, err := b.address(cfg.OrdAddress, cfg.OrdKey, tx.RoleOrdinal)
	if err != nil {
		return nil, err
	}
	rec := &bsv20.Record{Protocol: cfg.Protocol, Op: bsv20.OpBurn, ID: cfg.TokenID, Amt: amt.Dec()}
	if _, err := b.addRecordOutput(ordAddr, rec, cfg.Metadata); err != nil {
		return nil, err
	}
	if err := ledger.AddOutput(amt); err != nil {
		return nil, err
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
	bsv20.BackfillTxID(res.TxID, change)
	res.TokenChange = change
	return res, nil
}

// DeployBsv21TokenConfig deploys and mints a BSV-21 token.
type DeployBsv21TokenConfig struct {
	Options
	Symbol   string
	Decimals uint8
	Amount   string // display amount minted

	// Icon references an existing inscription as "<txid>_<vout>".
	// IconInscription instead inscribes an image at output 0 and references
	// it as "_0"; it takes precedence over Icon.
	Icon            string
	IconInscription *inscription.Inscription

	Destination string // receives the icon and the minted supply
}

// DeployBsv21Token creates the deploy+mint inscription. The token id is the
// outpoint of that inscription and is set on the result after signing.
func DeployBsv21Token(ctx context.Context, cfg *DeployBsv21TokenConfig) (res *Result, err error) {
	defer func() { observe(OpDeployBsv21Token, res, err) }()

	if cfg == nil {
		return nil, fmt.Errorf("%w: config", tx.ErrNilParam)
	}
	icon := cfg.Icon
	if cfg.IconInscription != nil {
		if err := cfg.IconInscription.Validate(); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(cfg.IconInscription.ContentType, "image/") {
			return nil, fmt.Errorf("%w: icon content type %q is not an image", tx.ErrValidation, cfg.IconInscription.ContentType)
		}
		icon = "_0"
	}
	rec, err := bsv20.DeployMint(cfg.Symbol, icon, cfg.Amount, cfg.Decimals)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(OpDeployBsv21Token, &cfg.Options)
	if err != nil {
		return nil, err
	}

	if cfg.IconInscription != nil {
		out, err := inscription.Output(cfg.Destination, cfg.IconInscription, nil)
		if err != nil {
			return nil, err
		}
		b.addOutput(out)
	}
	minted, err := b.addRecordOutput(cfg.Destination, rec, nil)
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
	res.TokenID = bsv20.TokenID(res.TxID, minted.Vout)
	minted.TxID = res.TxID
	minted.ID = res.TokenID
	res.TokenChange = []*bsv20.TokenUTXO{minted}
	return res, nil
}

// spendTokens adds the token inputs covering need to the draft and returns
// a ledger seeded with them. Conservation is checked before any token
// output exists.
func (b *builder) spendTokens(utxos []*bsv20.TokenUTXO, tokenID string, need *uint256.Int, mode TokenInputMode, ordKey *ec.PrivateKey) (*bsv20.Ledger, error) {
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: no token inputs", tx.ErrValidation)
	}
	if err := bsv20.ValidateSameToken(utxos, tokenID); err != nil {
		return nil, err
	}

	var (
		selected []*bsv20.TokenUTXO
		total    *uint256.Int
	)
	switch mode {
	case "", TokenInputNeeded:
		sel, err := bsv20.SelectTokenUTXOs(utxos, need.Dec(), 0, nil)
		if err != nil {
			return nil, err
		}
		selected, total = sel.Selected, sel.TotalTsat
	case TokenInputAll:
		sum, err := bsv20.SumAmounts(utxos)
		if err != nil {
			return nil, err
		}
		selected, total = utxos, sum
	default:
		return nil, fmt.Errorf("%w: unknown token input mode %q", tx.ErrValidation, mode)
	}
	if _, err := bsv20.ComputeChange(total, need); err != nil {
		return nil, err
	}

	ledger := bsv20.NewLedger(tokenID)
	if err := ledger.AddInputs(selected...); err != nil {
		return nil, err
	}
	if err := b.addTokenInputs(selected, ordKey); err != nil {
		return nil, err
	}
	b.log.Debug("token inputs selected",
		zap.String("token", tokenID),
		zap.Int("inputs", len(selected)),
		zap.String("total", total.Dec()),
		zap.String("need", need.Dec()))
	return ledger, nil
}

// addTokenChange settles the ledger and appends the change outputs. The
// change address is only resolved when there is change to pay.
func (b *builder) addTokenChange(l *bsv20.Ledger, p bsv20.Protocol, address string, ordKey *ec.PrivateKey, split *bsv20.SplitConfig) ([]*bsv20.TokenUTXO, error) {
	acct, err := l.Accounting()
	if err != nil {
		return nil, err
	}
	if acct.Change.IsZero() {
		return nil, nil
	}
	addr, err := b.address(address, ordKey, tx.RoleOrdinal)
	if err != nil {
		return nil, err
	}
	return bsv20.AppendChange(b.tx, p, l.TokenID(), acct.Change, addr, split)
}

func scaleNonZero(display string, decimals uint8) (*uint256.Int, error) {
	amt, err := bsv20.ScaleDisplayAmount(display, decimals)
	if err != nil {
		return nil, err
	}
	if amt.IsZero() {
		return nil, fmt.Errorf("%w: token amount must be greater than zero", tx.ErrValidation)
	}
	return amt, nil
}
