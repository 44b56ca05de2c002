package inscription

import (
	"errors"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"

	"github.com/bitfsorg/ordinals-go/tx"
)

// ErrNoInscription indicates the script carries no "ord" envelope.
var ErrNoInscription = errors.New("inscription: no ord envelope")

// Lock builds an OrdP2PKH locking script:
//
//	[OP_0 OP_IF "ord" OP_1 <type> OP_0 <data> OP_ENDIF]
//	OP_DUP OP_HASH160 <pkh> OP_EQUALVERIFY OP_CHECKSIG
//	[OP_RETURN <MAP> "SET" <k> <v> ...]
//
// Both the envelope and the metadata are optional. The result is a pure
// function of the arguments.
func Lock(address string, insc *Inscription, meta Metadata) (*script.Script, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	s := &script.Script{}
	if insc != nil {
		if err := AppendEnvelope(s, insc); err != nil {
			return nil, err
		}
	}
	lock, err := tx.P2PKHScript(address)
	if err != nil {
		return nil, err
	}
	*s = append(*s, *lock...)
	if err := AppendMetadata(s, meta); err != nil {
		return nil, err
	}
	return s, nil
}

// Output builds a 1-satoshi OrdP2PKH output.
func Output(address string, insc *Inscription, meta Metadata) (*transaction.TransactionOutput, error) {
	s, err := Lock(address, insc, meta)
	if err != nil {
		return nil, err
	}
	return &transaction.TransactionOutput{Satoshis: 1, LockingScript: s}, nil
}

// Unlock returns the unlocking template for an OrdP2PKH output. The lock
// prefix and suffix do not affect spending, so this is the plain P2PKH
// signature unlock.
func Unlock(key *ec.PrivateKey) (transaction.UnlockingScriptTemplate, error) {
	u, err := p2pkh.Unlock(key, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: ordinal unlocker: %w", tx.ErrSigning, err)
	}
	return u, nil
}

// Parse extracts the first "ord" envelope from s.
func Parse(s *script.Script) (*Inscription, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: script", tx.ErrNilParam)
	}
	for pos := 0; pos < len(*s); {
		start := pos
		op, err := s.ReadOp(&pos)
		if err != nil {
			break
		}
		if op.Op != script.OpDATA3 || string(op.Data) != ProtocolTag {
			continue
		}
		if start < 2 || (*s)[start-2] != script.Op0 || (*s)[start-1] != script.OpIF {
			continue
		}
		return readEnvelope(s, pos)
	}
	return nil, ErrNoInscription
}

// readEnvelope reads <field> <value> pairs until OP_ENDIF. Field 0 is the
// body and terminates the field list.
func readEnvelope(s *script.Script, pos int) (*Inscription, error) {
	insc := &Inscription{}
	for {
		field, err := s.ReadOp(&pos)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated envelope: %w", tx.ErrScript, err)
		}
		if field.Op == script.OpENDIF {
			return insc, nil
		}
		value, err := s.ReadOp(&pos)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated envelope: %w", tx.ErrScript, err)
		}

		var n int
		switch {
		case field.Op == script.Op0:
			n = 0
		case field.Op >= script.Op1 && field.Op <= script.Op16:
			n = int(field.Op-script.Op1) + 1
		case len(field.Data) == 1:
			n = int(field.Data[0])
		default:
			continue
		}

		switch n {
		case 0:
			insc.Data = value.Data
			end, err := s.ReadOp(&pos)
			if err != nil || end.Op != script.OpENDIF {
				return nil, fmt.Errorf("%w: envelope body not followed by OP_ENDIF", tx.ErrScript)
			}
			return insc, nil
		case 1:
			insc.ContentType = string(value.Data)
		}
	}
}
