// Package earnings computes and settles passive income. Accrual is a linear
// proration of each active business's daily percentage; time is an explicit
// argument, so the package is pure and the engine stays clock-free.
package earnings

import (
	"encoding/binary"
	"errors"
	"math"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"bizchain/core/types"
)

var (
	// ErrTooEarlyToUpdate gates settlement to one mutation per cooldown
	// window. Recoverable: the caller retries after the window elapses.
	ErrTooEarlyToUpdate = errors.New("earnings: too early to update")
	// ErrNoEarningsToClaim rejects claims on a zero pending balance.
	ErrNoEarningsToClaim = errors.New("earnings: nothing to claim")
	// ErrClaimBoundReached rejects claims once the current epoch's allowance
	// is exhausted. Recoverable: the caller retries in the next epoch.
	ErrClaimBoundReached = errors.New("earnings: claim bound reached for current epoch")
)

var secondsPerDayBps = big.NewInt(types.SecondsPerDay * types.BasisPointDivisor)

// PendingDelta returns the earnings accrued by all active businesses since
// the player's last settlement:
//
//	Σ floor(invested * dailyRateBps * elapsed / (86400 * 10000))
//
// The per-slot product is computed in arbitrary precision so no combination
// of capped inputs can wrap; the result saturates at MaxUint64.
func PendingDelta(p *types.Player, now uint32) uint64 {
	if p == nil || now <= p.LastSettledAt {
		return 0
	}
	elapsed := uint64(now - p.LastSettledAt)
	var total uint64
	for i := range p.Slots {
		b := p.Slots[i].ActiveBusiness()
		if b == nil || b.CumulativeInvested == 0 || b.DailyRateBps == 0 {
			continue
		}
		product := new(big.Int).SetUint64(b.CumulativeInvested)
		product.Mul(product, new(big.Int).SetUint64(uint64(b.DailyRateBps)))
		product.Mul(product, new(big.Int).SetUint64(elapsed))
		product.Quo(product, secondsPerDayBps)
		var delta uint64
		if product.IsUint64() {
			delta = product.Uint64()
		} else {
			delta = math.MaxUint64
		}
		if total > math.MaxUint64-delta {
			return math.MaxUint64
		}
		total += delta
	}
	return total
}

// Settle adds the accrued delta to the pending balance and advances the
// settlement timestamp. It fails ErrTooEarlyToUpdate inside the cooldown
// window without mutating anything, which makes a full re-run of a partially
// failed external batch safe: already-settled players reject cleanly instead
// of double-crediting.
func Settle(p *types.Player, now uint32, cooldown uint32) (uint64, error) {
	if p == nil {
		return 0, ErrTooEarlyToUpdate
	}
	if uint64(now) < uint64(p.LastSettledAt)+uint64(cooldown) {
		return 0, ErrTooEarlyToUpdate
	}
	delta := PendingDelta(p, now)
	if p.PendingEarnings > math.MaxUint64-delta {
		p.PendingEarnings = math.MaxUint64
	} else {
		p.PendingEarnings += delta
	}
	p.LastSettledAt = now
	return delta, nil
}

// ForceSettle folds accrued earnings in without the cooldown gate. Used when
// a sale retires a business so the seller is not shorted the tail of the
// current window.
func ForceSettle(p *types.Player, now uint32) uint64 {
	if p == nil || now <= p.LastSettledAt {
		return 0
	}
	delta, _ := Settle(p, now, 0)
	return delta
}

// ClaimBound is the anti-drain limit: the maximum fraction of the player's
// active investment claimable in one epoch, in basis points. A zero active
// investment disables the bound, otherwise residual earnings of a player who
// sold everything would be stranded forever. A non-zero investment always
// yields a bound of at least one unit so small positions can make progress.
func ClaimBound(totalInvested uint64, maxClaimBps uint16) uint64 {
	if totalInvested == 0 {
		return math.MaxUint64
	}
	bound := totalInvested * uint64(maxClaimBps) / types.BasisPointDivisor
	if bound == 0 {
		bound = 1
	}
	return bound
}

// RollClaimEpoch advances the player's claim epoch when epochLen seconds
// have elapsed since the epoch anchor (or on the first claim ever), clearing
// the claimed accumulator. Returns true when a fresh epoch began.
func RollClaimEpoch(p *types.Player, now uint32, epochLen uint32) bool {
	if p == nil {
		return false
	}
	if p.LastClaimedAt != 0 && uint64(now) < uint64(p.LastClaimedAt)+uint64(epochLen) {
		return false
	}
	p.LastClaimedAt = now
	p.EpochClaimed = 0
	return true
}

// ClampClaim resolves a claim against the allowance remaining in the current
// epoch: bound minus what the epoch has already paid out. The policy is
// clamp, not fail, but the bound is per epoch, so repeating the claim inside
// one epoch cannot pay more than the bound in total; an exhausted allowance
// fails ErrClaimBoundReached. Callers roll the epoch first and add the paid
// amount to EpochClaimed after the payout succeeds.
func ClampClaim(p *types.Player, maxClaimBps uint16) (paid uint64, clamped bool, err error) {
	if p == nil || p.PendingEarnings == 0 {
		return 0, false, ErrNoEarningsToClaim
	}
	bound := ClaimBound(p.TotalInvested, maxClaimBps)
	if p.EpochClaimed >= bound {
		return 0, false, ErrClaimBoundReached
	}
	allowance := bound - p.EpochClaimed
	if p.PendingEarnings > allowance {
		return allowance, true, nil
	}
	return p.PendingEarnings, false, nil
}

// Offset derives the deterministic per-player settlement offset used by
// external batch sweeps to spread a population evenly across a window. The
// window is measured in seconds and must fit the record's 16-bit field.
func Offset(owner [20]byte, window uint16) uint16 {
	if window == 0 {
		return 0
	}
	digest := ethcrypto.Keccak256(owner[:])
	return uint16(binary.BigEndian.Uint64(digest[:8]) % uint64(window))
}
