// Package ordinals builds 1Sat Ordinals transactions: inscriptions, ordinal
// and token transfers, OrdLock listings and their cancel and purchase
// spends, BSV-21 deploys and token burns.
//
// Every builder assembles a draft, hands it to the funding loop, settles the
// change output and signs. The resulting transaction is ready to broadcast.
package ordinals

import (
	"context"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"go.uber.org/zap"

	"github.com/bitfsorg/ordinals-go/bsv20"
	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/tx"
)

// Operation names, used as the op label on build metrics.
const (
	OpCreateOrdinals       = "create_ordinals"
	OpSendOrdinals         = "send_ordinals"
	OpSendUtxos            = "send_utxos"
	OpCreateOrdListings    = "create_ord_listings"
	OpCreateTokenListings  = "create_token_listings"
	OpCancelOrdListings    = "cancel_ord_listings"
	OpCancelTokenListings  = "cancel_token_listings"
	OpPurchaseOrdListing   = "purchase_ord_listing"
	OpPurchaseTokenListing = "purchase_token_listing"
	OpTransferTokens       = "transfer_tokens"
	OpDeployBsv21Token     = "deploy_bsv21_token"
	OpBurnTokens           = "burn_tokens"
)

// Options holds the settings shared by every builder.
type Options struct {
	// PaymentUTXOs fund the transaction, consumed in order.
	PaymentUTXOs []*tx.UTXO
	// PaymentKey signs payment UTXOs that carry no key of their own. It also
	// receives change when ChangeAddress is empty.
	PaymentKey *ec.PrivateKey

	SatsPerKb          uint64 // 0 = tx.DefaultSatsPerKb
	ChangeAddress      string
	AdditionalPayments []*tx.Payment
	Signer             tx.Signer // optional co-signer, runs before funding
	Logger             *zap.Logger
	Testnet            bool // derive testnet addresses from keys
}

// Destination receives one ordinal. Inscription is required when inscribing
// and optional when sending.
type Destination struct {
	Address     string
	Inscription *inscription.Inscription
}

// Result is a signed transaction and the outputs it leaves for the caller.
type Result struct {
	Tx             *transaction.Transaction
	TxID           string
	SpentOutpoints []string           // "txid_vout" of every input, in input order
	PayChange      *tx.UTXO           // nil when the change output was dropped
	TokenChange    []*bsv20.TokenUTXO // token outputs returned to the caller
	TokenListings  []*bsv20.TokenUTXO // token listings created
	TokenID        string             // deploy only
	Fee            uint64

	fundingInputs int
}

// PaymailResolver turns a paymail handle into outputs paying satoshis.
// *paymail.Client implements it.
type PaymailResolver interface {
	ResolveOutputs(ctx context.Context, handle string, satoshis uint64) ([]*transaction.TransactionOutput, error)
}
