package tx

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
)

// Role names the signing authority an input requires.
type Role string

const (
	// RolePayment signs funding inputs.
	RolePayment Role = "payment"
	// RoleOrdinal signs inscription, token and listing-cancel inputs.
	RoleOrdinal Role = "ordinal-control"
)

// ResolveKey returns the UTXO's own key when present, else the role default.
func ResolveKey(utxo *UTXO, roleDefault *ec.PrivateKey, role Role) (*ec.PrivateKey, error) {
	if utxo != nil && utxo.PrivateKey != nil {
		return utxo.PrivateKey, nil
	}
	if roleDefault != nil {
		return roleDefault, nil
	}
	if utxo == nil {
		return nil, fmt.Errorf("%w: %s key", ErrMissingKey, role)
	}
	return nil, fmt.Errorf("%w: %s key for %s", ErrMissingKey, role, utxo.Outpoint())
}

// ResolveKeys resolves a key for every utxo, failing on the first miss.
func ResolveKeys(utxos []*UTXO, roleDefault *ec.PrivateKey, role Role) ([]*ec.PrivateKey, error) {
	keys := make([]*ec.PrivateKey, len(utxos))
	for i, u := range utxos {
		k, err := ResolveKey(u, roleDefault, role)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}

// AddressForKey derives the P2PKH address string for key.
func AddressForKey(key *ec.PrivateKey, testnet bool) (string, error) {
	if key == nil {
		return "", fmt.Errorf("%w: private key", ErrNilParam)
	}
	addr, err := script.NewAddressFromPublicKey(key.PubKey(), !testnet)
	if err != nil {
		return "", fmt.Errorf("%w: address from pubkey: %w", ErrScript, err)
	}
	return addr.AddressString, nil
}

// DecodeAddress parses a base58 P2PKH address.
func DecodeAddress(address string) (*script.Address, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	addr, err := script.NewAddressFromString(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
	}
	return addr, nil
}

// P2PKHScript builds the standard locking script for address.
func P2PKHScript(address string) (*script.Script, error) {
	addr, err := DecodeAddress(address)
	if err != nil {
		return nil, err
	}
	s, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock: %w", ErrScript, err)
	}
	return s, nil
}

// P2PKHOutput creates a P2PKH output paying satoshis to address.
func P2PKHOutput(address string, satoshis uint64) (*transaction.TransactionOutput, error) {
	s, err := P2PKHScript(address)
	if err != nil {
		return nil, err
	}
	return &transaction.TransactionOutput{Satoshis: satoshis, LockingScript: s}, nil
}

// PaymentUnlocker returns the P2PKH template used for funding inputs.
// Payment inputs commit only to themselves so other parties may add inputs.
func PaymentUnlocker(key *ec.PrivateKey) (transaction.UnlockingScriptTemplate, error) {
	flag := PaymentSigHash
	u, err := p2pkh.Unlock(key, &flag)
	if err != nil {
		return nil, fmt.Errorf("%w: payment unlocker: %w", ErrSigning, err)
	}
	return u, nil
}
