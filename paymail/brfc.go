package paymail

import (
	"encoding/hex"
	"slices"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// ComputeBRFCID derives a BRFC (Bitcoin Request for Comments) capability ID:
// the first 6 bytes of SHA256d(title + author + version) in reversed byte
// order, hex encoded.
//
//	ID = hex(reverse(SHA256d(title + author + version)))[:12]
func ComputeBRFCID(title, author, version string) string {
	h := chainhash.DoubleHashB([]byte(title + author + version))
	slices.Reverse(h)
	return hex.EncodeToString(h[:6])
}

// Capability IDs consulted when resolving royalty destinations.
const (
	BRFCPaymentDestination    = "paymentDestination"
	BRFCBasicAddressing       = "759684b1a19a"
	BRFCP2PPaymentDestination = "2a40af698840"
)
