package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/ordinals-go/bsv20"
	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/ordinals"
	"github.com/bitfsorg/ordinals-go/tx"
)

// utxoJSON is a UTXO as it appears in a request file. Script is base64 and
// PK an optional WIF signing key.
type utxoJSON struct {
	tx.UTXO
	PK string `json:"pk,omitempty"`
}

type tokenUTXOJSON struct {
	bsv20.TokenUTXO
	PK string `json:"pk,omitempty"`
}

// amount accepts a display amount written either as a JSON number or as a
// string, keeping the exact decimal text.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = amount(n.String())
	return nil
}

type destinationJSON struct {
	Address     string                   `json:"address"`
	Inscription *inscription.Inscription `json:"inscription,omitempty"`
}

type distributionJSON struct {
	Address      string `json:"address"`
	Tokens       amount `json:"tokens"`
	OmitMetadata bool   `json:"omitMetadata,omitempty"`
}

type ordListingJSON struct {
	ListingUTXO utxoJSON `json:"listingUtxo"`
	PayAddress  string   `json:"payAddress"`
	Price       uint64   `json:"price"`
	OrdAddress  string   `json:"ordAddress"`
}

type tokenListingJSON struct {
	PayAddress string `json:"payAddress"`
	Price      uint64 `json:"price"`
	Tokens     amount `json:"tokens"`
	OrdAddress string `json:"ordAddress"`
}

type splitConfigJSON struct {
	Outputs   int    `json:"outputs"`
	Threshold amount `json:"threshold,omitempty"` // display amount
}

// Request is the JSON document read by `ordtx build`. Only the fields the
// chosen operation uses need to be present.
type Request struct {
	PaymentPK          string               `json:"paymentPk"`
	OrdPK              string               `json:"ordPk,omitempty"`
	Utxos              []utxoJSON           `json:"utxos,omitempty"`
	ChangeAddress      string               `json:"changeAddress,omitempty"`
	SatsPerKb          uint64               `json:"satsPerKb,omitempty"`
	AdditionalPayments []*tx.Payment        `json:"additionalPayments,omitempty"`
	MetaData           inscription.Metadata `json:"metaData,omitempty"`

	// Ordinals.
	Destinations       []destinationJSON `json:"destinations,omitempty"`
	Ordinals           []utxoJSON        `json:"ordinals,omitempty"`
	EnforceUniformSend *bool             `json:"enforceUniformSend,omitempty"`
	Payments           []*tx.Payment     `json:"payments,omitempty"`

	// Listings.
	Listings     json.RawMessage     `json:"listings,omitempty"`
	ListingUtxos json.RawMessage     `json:"listingUtxos,omitempty"`
	ListingUtxo  json.RawMessage     `json:"listingUtxo,omitempty"`
	Payout       []byte              `json:"payout,omitempty"`
	OrdAddress   string              `json:"ordAddress,omitempty"`
	Royalties    []*ordinals.Royalty `json:"royalties,omitempty"`

	// Tokens.
	Protocol           string             `json:"protocol,omitempty"`
	TokenID            string             `json:"tokenID,omitempty"`
	Decimals           uint8              `json:"decimals,omitempty"`
	InputTokens        []tokenUTXOJSON    `json:"inputTokens,omitempty"`
	Distributions      []distributionJSON `json:"distributions,omitempty"`
	InputMode          string             `json:"inputMode,omitempty"`
	TokenChangeAddress string             `json:"tokenChangeAddress,omitempty"`
	SplitConfig        *splitConfigJSON   `json:"splitConfig,omitempty"`
	Amount             amount             `json:"amount,omitempty"`

	// Deploy.
	Symbol             string                   `json:"symbol,omitempty"`
	Icon               string                   `json:"icon,omitempty"`
	IconInscription    *inscription.Inscription `json:"iconInscription,omitempty"`
	DestinationAddress string                   `json:"destinationAddress,omitempty"`
}

// ReadRequest decodes a request from path, or from stdin when path is "-".
// Unknown fields are rejected.
func ReadRequest(path string, stdin io.Reader) (*Request, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ordtx: open request: %w", err)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("ordtx: decode request: %w", err)
	}
	return &req, nil
}

// parseKey decodes an optional WIF key.
func parseKey(field, wif string) (*ec.PrivateKey, error) {
	if wif == "" {
		return nil, nil
	}
	key, err := ec.PrivateKeyFromWif(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", tx.ErrValidation, field, err)
	}
	return key, nil
}

func (u *utxoJSON) toUTXO(field string) (*tx.UTXO, error) {
	key, err := parseKey(field+".pk", u.PK)
	if err != nil {
		return nil, err
	}
	out := u.UTXO
	out.PrivateKey = key
	return &out, nil
}

func toUTXOs(field string, in []utxoJSON) ([]*tx.UTXO, error) {
	out := make([]*tx.UTXO, len(in))
	for i := range in {
		u, err := in[i].toUTXO(fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

func (u *tokenUTXOJSON) toTokenUTXO(field string) (*bsv20.TokenUTXO, error) {
	key, err := parseKey(field+".pk", u.PK)
	if err != nil {
		return nil, err
	}
	out := u.TokenUTXO
	out.PrivateKey = key
	return &out, nil
}

func toTokenUTXOs(field string, in []tokenUTXOJSON) ([]*bsv20.TokenUTXO, error) {
	out := make([]*bsv20.TokenUTXO, len(in))
	for i := range in {
		u, err := in[i].toTokenUTXO(fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

// options builds the shared builder options. The payment key is required
// unless every UTXO carries its own.
func (r *Request) options() (ordinals.Options, error) {
	key, err := parseKey("paymentPk", r.PaymentPK)
	if err != nil {
		return ordinals.Options{}, err
	}
	utxos, err := toUTXOs("utxos", r.Utxos)
	if err != nil {
		return ordinals.Options{}, err
	}
	return ordinals.Options{
		PaymentUTXOs:       utxos,
		PaymentKey:         key,
		SatsPerKb:          r.SatsPerKb,
		ChangeAddress:      r.ChangeAddress,
		AdditionalPayments: r.AdditionalPayments,
	}, nil
}

// metadata returns the metaData pairs in document order.
func (r *Request) metadata() (inscription.Metadata, error) {
	if len(r.MetaData) == 0 {
		return nil, nil
	}
	if err := r.MetaData.Validate(); err != nil {
		return nil, err
	}
	return r.MetaData, nil
}

func (r *Request) protocol() (bsv20.Protocol, error) {
	if r.Protocol == "" {
		return 0, fmt.Errorf("%w: protocol is required", tx.ErrValidation)
	}
	return bsv20.ParseProtocol(r.Protocol)
}

func (r *Request) inputMode() (ordinals.TokenInputMode, error) {
	switch mode := ordinals.TokenInputMode(strings.ToLower(r.InputMode)); mode {
	case "", ordinals.TokenInputNeeded, ordinals.TokenInputAll:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: input mode %q", tx.ErrValidation, r.InputMode)
	}
}

func (r *Request) splitConfig() (*bsv20.SplitConfig, error) {
	if r.SplitConfig == nil {
		return nil, nil
	}
	cfg := &bsv20.SplitConfig{Outputs: r.SplitConfig.Outputs}
	if r.SplitConfig.Threshold != "" {
		threshold, err := bsv20.ScaleDisplayAmount(string(r.SplitConfig.Threshold), r.Decimals)
		if err != nil {
			return nil, fmt.Errorf("split threshold: %w", err)
		}
		cfg.Threshold = threshold
	}
	return cfg, nil
}

// decodeRaw unmarshals one of the operation-dependent raw fields.
func decodeRaw(field string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: %s is required", tx.ErrValidation, field)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %w", tx.ErrValidation, field, err)
	}
	return nil
}

func destinations(in []destinationJSON) []*ordinals.Destination {
	out := make([]*ordinals.Destination, len(in))
	for i, d := range in {
		out[i] = &ordinals.Destination{Address: d.Address, Inscription: d.Inscription}
	}
	return out
}

func distributions(in []distributionJSON) []*ordinals.Distribution {
	out := make([]*ordinals.Distribution, len(in))
	for i, d := range in {
		out[i] = &ordinals.Distribution{Address: d.Address, Tokens: string(d.Tokens), OmitMetadata: d.OmitMetadata}
	}
	return out
}
