// Package inscription builds and parses 1Sat Ordinals inscription scripts:
// an "ord" envelope followed by a P2PKH lock and optional MAP metadata.
package inscription

import (
	"encoding/base64"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/ordinals-go/tx"
)

// ProtocolTag is the envelope marker pushed after OP_0 OP_IF.
const ProtocolTag = "ord"

// Inscription is arbitrary data bound to a 1-satoshi output.
type Inscription struct {
	Data        []byte `json:"data"`
	ContentType string `json:"contentType"`
}

// FromBase64 decodes the base64 transport form of an inscription payload.
func FromBase64(dataB64, contentType string) (*Inscription, error) {
	data, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		return nil, fmt.Errorf("%w: inscription data is not base64: %w", tx.ErrValidation, err)
	}
	insc := &Inscription{Data: data, ContentType: contentType}
	if err := insc.Validate(); err != nil {
		return nil, err
	}
	return insc, nil
}

// Validate reports ErrScript when either field is empty.
func (i *Inscription) Validate() error {
	if i == nil {
		return fmt.Errorf("%w: inscription", tx.ErrNilParam)
	}
	if len(i.Data) == 0 {
		return fmt.Errorf("%w: inscription data is empty", tx.ErrScript)
	}
	if i.ContentType == "" {
		return fmt.Errorf("%w: inscription content type is empty", tx.ErrScript)
	}
	return nil
}

// AppendEnvelope writes OP_0 OP_IF "ord" OP_1 <type> OP_0 <data> OP_ENDIF to s.
func AppendEnvelope(s *script.Script, insc *Inscription) error {
	if err := insc.Validate(); err != nil {
		return err
	}
	if err := s.AppendOpcodes(script.Op0, script.OpIF); err != nil {
		return fmt.Errorf("%w: envelope: %w", tx.ErrScript, err)
	}
	if err := s.AppendPushData([]byte(ProtocolTag)); err != nil {
		return fmt.Errorf("%w: envelope tag: %w", tx.ErrScript, err)
	}
	// Field 1: content type.
	if err := s.AppendOpcodes(script.Op1); err != nil {
		return fmt.Errorf("%w: envelope: %w", tx.ErrScript, err)
	}
	if err := s.AppendPushData([]byte(insc.ContentType)); err != nil {
		return fmt.Errorf("%w: envelope content type: %w", tx.ErrScript, err)
	}
	// Field 0: body, always last.
	if err := s.AppendOpcodes(script.Op0); err != nil {
		return fmt.Errorf("%w: envelope: %w", tx.ErrScript, err)
	}
	if err := s.AppendPushData(insc.Data); err != nil {
		return fmt.Errorf("%w: envelope data: %w", tx.ErrScript, err)
	}
	if err := s.AppendOpcodes(script.OpENDIF); err != nil {
		return fmt.Errorf("%w: envelope: %w", tx.ErrScript, err)
	}
	return nil
}
