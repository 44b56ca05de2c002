package bsv20

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/ordinals-go/tx"
)

// MaxDecimals is the largest decimal count a token may declare.
const MaxDecimals = 18

// ParseAmount parses a tsat decimal string.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: token amount %q: %w", tx.ErrValidation, s, err)
	}
	return v, nil
}

// ScaleDisplayAmount converts a human-facing amount ("12.5") to tsat by
// scaling with 10^decimals. The conversion is exact: an amount with more
// fractional digits than decimals is rejected.
func ScaleDisplayAmount(display string, decimals uint8) (*uint256.Int, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d exceeds %d", tx.ErrValidation, decimals, MaxDecimals)
	}
	s := strings.TrimSpace(display)
	whole, frac, hasPoint := strings.Cut(s, ".")
	if hasPoint && frac == "" {
		return nil, fmt.Errorf("%w: amount %q has an empty fraction", tx.ErrValidation, display)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: amount %q has more than %d decimal places", tx.ErrValidation, display, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %w", tx.ErrValidation, display, err)
	}
	return v, nil
}

// FormatDisplayAmount renders tsat as a display amount, trimming trailing
// fractional zeros.
func FormatDisplayAmount(tsat *uint256.Int, decimals uint8) string {
	s := tsat.Dec()
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
