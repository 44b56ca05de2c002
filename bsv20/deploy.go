package bsv20

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bitfsorg/ordinals-go/tx"
)

// ValidIconFormat reports whether icon is "<64-hex txid>_<vout>" or
// "_<vout>", the latter naming an output of the deploying transaction.
func ValidIconFormat(icon string) bool {
	txid, vout, ok := strings.Cut(icon, "_")
	if !ok || vout == "" {
		return false
	}
	if _, err := strconv.ParseUint(vout, 10, 32); err != nil {
		return false
	}
	if txid == "" {
		return true
	}
	if len(txid) != 64 {
		return false
	}
	_, err := hex.DecodeString(txid)
	return err == nil
}

// DeployMint builds a BSV-21 deploy+mint record. amount is a display amount
// scaled by 10^decimals; icon is optional.
func DeployMint(symbol, icon, amount string, decimals uint8) (*Record, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: token symbol is empty", tx.ErrValidation)
	}
	if icon != "" && !ValidIconFormat(icon) {
		return nil, fmt.Errorf("%w: icon %q is not <txid>_<vout> or _<vout>", tx.ErrValidation, icon)
	}
	tsat, err := ScaleDisplayAmount(amount, decimals)
	if err != nil {
		return nil, err
	}
	if tsat.IsZero() {
		return nil, fmt.Errorf("%w: mint amount is zero", tx.ErrValidation)
	}
	return &Record{
		Protocol: BSV21,
		Op:       OpDeployMint,
		Amt:      tsat.Dec(),
		Sym:      symbol,
		Icon:     icon,
		Dec:      decimals,
	}, nil
}

// TokenID renders the BSV-21 id of the token minted at vout of txid.
func TokenID(txid string, vout uint32) string {
	return fmt.Sprintf("%s_%d", txid, vout)
}
