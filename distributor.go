package settler

import (
	"fmt"
	"math"
)

// RatioScale is the fixed-point scale for decay ratios: a ratio of 618
// means 0.618.
const RatioScale = 1000

// Distribute computes the layer allocations for one rebalance pass.
//
// Layer 0 receives total * (1 - ratio). Each deeper layer i receives
// remaining * ratio / 2^(i-1), where remaining is what is left after all
// previous layers. All math is integer with floor semantics; the fractional
// residue is not redistributed and stays with the fee sink.
//
// The result has exactly depth entries and sums to at most total. The
// function is pure and deterministic.
func Distribute(total uint64, ratioPerMille uint64, depth int) ([]uint64, error) {
	if ratioPerMille == 0 || ratioPerMille >= RatioScale {
		return nil, NewVaultError(ErrCodeInvalidRatio,
			fmt.Sprintf("decay ratio must be in (0,%d) per-mille, got %d", RatioScale, ratioPerMille), nil)
	}
	if depth <= 0 {
		return nil, NewVaultError(ErrCodeInvalidDepth,
			fmt.Sprintf("depth must be positive, got %d", depth), nil)
	}
	if total > math.MaxUint64/RatioScale {
		return nil, NewVaultError(ErrCodeOverflow,
			"total exceeds distributable range", map[string]interface{}{"total": total})
	}

	allocations := make([]uint64, 0, depth)
	remaining := total

	for i := 0; i < depth; i++ {
		var share uint64
		switch {
		case i == 0:
			share = total * (RatioScale - ratioPerMille) / RatioScale
		case i-1 < 54:
			// denominator RatioScale << (i-1) stays within uint64 range
			share = remaining * ratioPerMille / (RatioScale << uint(i-1))
		default:
			// deeper layers receive a share below one unit
			share = 0
		}
		allocations = append(allocations, share)
		remaining -= share
	}

	return allocations, nil
}
