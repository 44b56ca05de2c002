package bsv20

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/ordinals-go/tx"
)

// Strategy orders token UTXOs during selection.
type Strategy string

const (
	RetainOrder   Strategy = "retain"
	SmallestFirst Strategy = "smallest"
	LargestFirst  Strategy = "largest"
	Random        Strategy = "random"
)

// SelectOptions configures SelectTokenUTXOs. Zero values mean RetainOrder.
type SelectOptions struct {
	Input  Strategy // order in which candidates are walked
	Output Strategy // order of the returned selection
}

// Selection is the result of SelectTokenUTXOs.
type Selection struct {
	Selected      []*TokenUTXO
	TotalSelected string       // display amount
	TotalTsat     *uint256.Int // scaled amount
	IsEnough      bool
}

// SelectTokenUTXOs walks utxos in input-strategy order until the scaled
// required amount is covered. A shortfall is not an error: every candidate
// is returned with IsEnough false. A required amount of zero selects every
// candidate.
func SelectTokenUTXOs(utxos []*TokenUTXO, required string, decimals uint8, opts *SelectOptions) (*Selection, error) {
	if opts == nil {
		opts = &SelectOptions{}
	}
	need, err := ScaleDisplayAmount(required, decimals)
	if err != nil {
		return nil, err
	}
	ordered, err := orderUTXOs(utxos, opts.Input)
	if err != nil {
		return nil, err
	}

	total := new(uint256.Int)
	var selected []*TokenUTXO
	for _, u := range ordered {
		if !need.IsZero() && !total.Lt(need) {
			break
		}
		amt, err := u.Amount()
		if err != nil {
			return nil, err
		}
		if err := add(total, amt); err != nil {
			return nil, err
		}
		selected = append(selected, u)
	}

	selected, err = orderUTXOs(selected, opts.Output)
	if err != nil {
		return nil, err
	}
	return &Selection{
		Selected:      selected,
		TotalSelected: FormatDisplayAmount(total, decimals),
		TotalTsat:     total,
		IsEnough:      !total.Lt(need),
	}, nil
}

// orderUTXOs returns a copy of utxos ordered by s.
func orderUTXOs(utxos []*TokenUTXO, s Strategy) ([]*TokenUTXO, error) {
	out := slices.Clone(utxos)
	switch s {
	case "", RetainOrder:
	case SmallestFirst, LargestFirst:
		amounts := make(map[*TokenUTXO]*uint256.Int, len(out))
		for _, u := range out {
			amt, err := u.Amount()
			if err != nil {
				return nil, err
			}
			amounts[u] = amt
		}
		slices.SortStableFunc(out, func(a, b *TokenUTXO) int {
			c := amounts[a].Cmp(amounts[b])
			if s == LargestFirst {
				return -c
			}
			return c
		})
	case Random:
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	default:
		return nil, fmt.Errorf("%w: unknown selection strategy %q", tx.ErrValidation, s)
	}
	return out, nil
}
