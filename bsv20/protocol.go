// Package bsv20 implements the BSV-20 and BSV-21 fungible token ledger:
// inscription JSON records, amount scaling, conservation accounting, token
// change outputs and token UTXO selection.
package bsv20

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/tx"
)

// ContentType is the media type of every token record inscription.
const ContentType = "application/bsv-20"

// ProtocolName is the value of the "p" field.
const ProtocolName = "bsv-20"

// Token operations.
const (
	OpTransfer   = "transfer"
	OpBurn       = "burn"
	OpDeployMint = "deploy+mint"
)

// Protocol selects the token variant. Both variants share one record layout
// and differ only in the JSON field naming the token.
type Protocol int

const (
	// BSV20 tokens are keyed by ticker.
	BSV20 Protocol = iota + 1
	// BSV21 tokens are keyed by their origin outpoint ("txid_vout").
	BSV21
)

// ParseProtocol maps a user-facing protocol name to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "bsv20":
		return BSV20, nil
	case "bsv21":
		return BSV21, nil
	}
	return 0, fmt.Errorf("%w: %q", tx.ErrProtocol, s)
}

// IDField returns the JSON field carrying the token identifier.
func (p Protocol) IDField() (string, error) {
	switch p {
	case BSV20:
		return "tick", nil
	case BSV21:
		return "id", nil
	}
	return "", fmt.Errorf("%w: %d", tx.ErrProtocol, int(p))
}

func (p Protocol) String() string {
	switch p {
	case BSV20:
		return "bsv-20"
	case BSV21:
		return "bsv-21"
	}
	return "unknown(" + strconv.Itoa(int(p)) + ")"
}

// Record is a token inscription body.
type Record struct {
	Protocol Protocol
	Op       string
	ID       string // tick or origin outpoint; empty on deploy+mint
	Amt      string // tsat decimal string
	Sym      string // deploy+mint only
	Icon     string // deploy+mint only
	Dec      uint8  // deploy+mint only, emitted when > 0
}

// TransferRecord is the record moving amt of token id.
func TransferRecord(p Protocol, id, amt string) *Record {
	return &Record{Protocol: p, Op: OpTransfer, ID: id, Amt: amt}
}

// MarshalJSON emits the record with fields in a fixed order. Deploy+mint
// records are p, op, sym, icon, amt, dec; every other op is p, op, amt,
// then the id field.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key, value string) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		v, _ := json.Marshal(value)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}

	write("p", ProtocolName)
	write("op", r.Op)
	if r.Op == OpDeployMint {
		write("sym", r.Sym)
		if r.Icon != "" {
			write("icon", r.Icon)
		}
		write("amt", r.Amt)
		if r.Dec > 0 {
			write("dec", strconv.Itoa(int(r.Dec)))
		}
	} else {
		field, err := r.Protocol.IDField()
		if err != nil {
			return nil, err
		}
		write("amt", r.Amt)
		write(field, r.ID)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Inscription wraps the record JSON in an inscription.
func (r *Record) Inscription() (*inscription.Inscription, error) {
	if r.Amt == "" {
		return nil, fmt.Errorf("%w: token record amount is empty", tx.ErrValidation)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return &inscription.Inscription{Data: data, ContentType: ContentType}, nil
}

type wireRecord struct {
	P    string `json:"p"`
	Op   string `json:"op"`
	Tick string `json:"tick,omitempty"`
	ID   string `json:"id,omitempty"`
	Amt  string `json:"amt"`
	Sym  string `json:"sym,omitempty"`
	Icon string `json:"icon,omitempty"`
	Dec  string `json:"dec,omitempty"`
}

// ParseRecord decodes a token inscription body. A "tick" field selects BSV20;
// an "id" field or a deploy+mint op selects BSV21.
func ParseRecord(data []byte) (*Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: token record: %w", tx.ErrValidation, err)
	}
	if w.P != ProtocolName {
		return nil, fmt.Errorf("%w: p=%q", tx.ErrProtocol, w.P)
	}
	r := &Record{Op: w.Op, Amt: w.Amt, Sym: w.Sym, Icon: w.Icon}
	switch {
	case w.Tick != "":
		r.Protocol, r.ID = BSV20, w.Tick
	case w.ID != "" || w.Op == OpDeployMint:
		r.Protocol, r.ID = BSV21, w.ID
	default:
		return nil, fmt.Errorf("%w: record names no token", tx.ErrProtocol)
	}
	if w.Dec != "" {
		dec, err := strconv.ParseUint(w.Dec, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: dec %q", tx.ErrValidation, w.Dec)
		}
		r.Dec = uint8(dec)
	}
	return r, nil
}
