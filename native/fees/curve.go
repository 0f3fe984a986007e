// Package fees implements the decaying early-exit fee curve applied when a
// business is sold. The curve is a pure, total step function of whole days
// held; values beyond the last breakpoint clamp to the floor.
package fees

import "bizchain/core/types"

// breakpoints map days-held buckets to the fee percent charged on the sale
// amount. The fee within a bucket does not depend on the exact seconds held.
var breakpoints = []struct {
	fromDay uint32
	percent uint8
}{
	{0, 25},
	{7, 15},
	{14, 10},
	{21, 5},
	{30, 2},
}

// FloorPercent is the terminal fee charged past the last breakpoint.
const FloorPercent uint8 = 2

// ComputeFee returns the sale fee percent for a holding duration, reduced by
// the slot's discount and clamped at zero. Monotonically non-increasing in
// daysHeld.
func ComputeFee(daysHeld uint32, slotDiscount uint8) uint8 {
	percent := FloorPercent
	for _, bp := range breakpoints {
		if daysHeld < bp.fromDay {
			break
		}
		percent = bp.percent
	}
	if slotDiscount >= percent {
		return 0
	}
	return percent - slotDiscount
}

// TierDiscount maps a slot tier to the fee percent it shaves off a sale.
func TierDiscount(tier types.SlotTier) uint8 {
	switch tier {
	case types.TierPremium:
		return 1
	case types.TierVIP:
		return 2
	case types.TierLegendary:
		return 5
	default:
		return 0
	}
}

// SaleFee computes the fee amount for a sale, flooring the division.
func SaleFee(amount uint64, percent uint8) uint64 {
	return amount * uint64(percent) / 100
}
