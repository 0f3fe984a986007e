package earnings

import (
	"errors"
	"math"
	"testing"

	"bizchain/core/types"
)

const baseTime uint32 = 1_700_000_000

func playerWithBusiness(invested uint64, rateBps uint16) *types.Player {
	var owner [20]byte
	owner[19] = 1
	p := types.NewPlayer(owner, baseTime, 0, 3)
	p.Slots[0].Business = &types.Business{
		Type:               types.BusinessCoffeeShop,
		DailyRateBps:       rateBps,
		BaseInvested:       invested,
		CumulativeInvested: invested,
		CreatedAt:          baseTime,
		Active:             true,
		TokenSerial:        1,
	}
	p.TotalInvested = invested
	return p
}

func TestPendingDeltaOneDay(t *testing.T) {
	// 100 invested at 200 bps/day accrues exactly floor(100*200/10000) = 2
	// after one full day.
	p := playerWithBusiness(100, 200)
	if got := PendingDelta(p, baseTime+types.SecondsPerDay); got != 2 {
		t.Fatalf("one-day delta: got %d want 2", got)
	}
}

func TestPendingDeltaProration(t *testing.T) {
	p := playerWithBusiness(100, 200)
	// Half a day accrues floor(2/2) = 1.
	if got := PendingDelta(p, baseTime+types.SecondsPerDay/2); got != 1 {
		t.Fatalf("half-day delta: got %d want 1", got)
	}
	// Sub-unit accruals floor to zero.
	if got := PendingDelta(p, baseTime+60); got != 0 {
		t.Fatalf("one-minute delta: got %d want 0", got)
	}
	// Time running backwards accrues nothing.
	if got := PendingDelta(p, baseTime-10); got != 0 {
		t.Fatalf("backwards delta: got %d want 0", got)
	}
}

func TestPendingDeltaSumsActiveSlotsOnly(t *testing.T) {
	p := playerWithBusiness(100, 200)
	p.Slots[1].Business = &types.Business{
		Type:               types.BusinessCarWash,
		DailyRateBps:       400,
		CumulativeInvested: 50,
		CreatedAt:          baseTime,
		Active:             true,
	}
	p.Slots[2].Business = &types.Business{
		Type:               types.BusinessArcade,
		DailyRateBps:       999,
		CumulativeInvested: 10_000,
		CreatedAt:          baseTime,
		Active:             false, // retired, must not accrue
	}
	// 100*200/10000 + 50*400/10000 = 2 + 2
	if got := PendingDelta(p, baseTime+types.SecondsPerDay); got != 4 {
		t.Fatalf("multi-slot delta: got %d want 4", got)
	}
}

func TestPendingDeltaOverflowSafety(t *testing.T) {
	p := playerWithBusiness(math.MaxUint32, math.MaxUint16)
	// Decades of elapsed time on maxed inputs must saturate, not wrap.
	got := PendingDelta(p, math.MaxUint32)
	if got == 0 {
		t.Fatalf("saturating delta collapsed to zero")
	}
}

func TestSettleCooldownIdempotence(t *testing.T) {
	p := playerWithBusiness(100, 200)
	delta, err := Settle(p, baseTime+types.SecondsPerDay, 3600)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if delta != 2 || p.PendingEarnings != 2 {
		t.Fatalf("settle delta %d pending %d", delta, p.PendingEarnings)
	}
	if p.LastSettledAt != baseTime+types.SecondsPerDay {
		t.Fatalf("settlement timestamp not advanced")
	}

	// Second call inside the cooldown window must fail cleanly with no
	// mutation: re-running a partially failed batch cannot double-credit.
	_, err = Settle(p, baseTime+types.SecondsPerDay+60, 3600)
	if !errors.Is(err, ErrTooEarlyToUpdate) {
		t.Fatalf("expected ErrTooEarlyToUpdate, got %v", err)
	}
	if p.PendingEarnings != 2 || p.LastSettledAt != baseTime+types.SecondsPerDay {
		t.Fatalf("failed settle mutated state")
	}

	// After the window the next settle succeeds.
	if _, err := Settle(p, baseTime+types.SecondsPerDay+3600, 3600); err != nil {
		t.Fatalf("post-cooldown settle: %v", err)
	}
}

func TestForceSettleIgnoresCooldown(t *testing.T) {
	p := playerWithBusiness(100, 200)
	if _, err := Settle(p, baseTime+types.SecondsPerDay, 3600); err != nil {
		t.Fatalf("settle: %v", err)
	}
	delta := ForceSettle(p, baseTime+2*types.SecondsPerDay)
	if delta != 2 {
		t.Fatalf("force settle delta: got %d want 2", delta)
	}
	if p.PendingEarnings != 4 {
		t.Fatalf("pending after force settle: got %d want 4", p.PendingEarnings)
	}
}

func claimant(pending, invested uint64) *types.Player {
	return &types.Player{PendingEarnings: pending, TotalInvested: invested}
}

func TestClampClaim(t *testing.T) {
	// Bound = 1000 * 5000 / 10000 = 500.
	paid, clamped, err := ClampClaim(claimant(700, 1000), 5000)
	if err != nil || paid != 500 || !clamped {
		t.Fatalf("clamped claim: paid %d clamped %v err %v", paid, clamped, err)
	}
	paid, clamped, err = ClampClaim(claimant(300, 1000), 5000)
	if err != nil || paid != 300 || clamped {
		t.Fatalf("unclamped claim: paid %d clamped %v err %v", paid, clamped, err)
	}
	// No active investment disables the bound.
	paid, clamped, err = ClampClaim(claimant(700, 0), 5000)
	if err != nil || paid != 700 || clamped {
		t.Fatalf("sold-out claim: paid %d clamped %v err %v", paid, clamped, err)
	}
	// Tiny positions still make progress.
	paid, clamped, err = ClampClaim(claimant(10, 1), 5000)
	if err != nil || paid != 1 || !clamped {
		t.Fatalf("tiny position claim: paid %d clamped %v err %v", paid, clamped, err)
	}
	// Zero pending rejects.
	if _, _, err := ClampClaim(claimant(0, 1000), 5000); !errors.Is(err, ErrNoEarningsToClaim) {
		t.Fatalf("expected ErrNoEarningsToClaim, got %v", err)
	}
}

func TestClampClaimSpendsEpochAllowance(t *testing.T) {
	p := claimant(700, 1000)
	// Half the 500 bound already paid this epoch leaves an allowance of 250.
	p.EpochClaimed = 250
	paid, clamped, err := ClampClaim(p, 5000)
	if err != nil || paid != 250 || !clamped {
		t.Fatalf("partial allowance: paid %d clamped %v err %v", paid, clamped, err)
	}
	p.EpochClaimed = 500
	if _, _, err := ClampClaim(p, 5000); !errors.Is(err, ErrClaimBoundReached) {
		t.Fatalf("exhausted allowance: expected ErrClaimBoundReached, got %v", err)
	}
}

func TestRollClaimEpoch(t *testing.T) {
	const epoch = 86_400
	p := claimant(100, 1000)
	p.EpochClaimed = 500

	// First claim ever anchors the epoch and clears the accumulator.
	if !RollClaimEpoch(p, baseTime, epoch) {
		t.Fatalf("first roll must start an epoch")
	}
	if p.LastClaimedAt != baseTime || p.EpochClaimed != 0 {
		t.Fatalf("epoch anchor: at %d claimed %d", p.LastClaimedAt, p.EpochClaimed)
	}

	// Inside the epoch nothing moves.
	p.EpochClaimed = 400
	if RollClaimEpoch(p, baseTime+epoch-1, epoch) {
		t.Fatalf("rolled inside the epoch")
	}
	if p.LastClaimedAt != baseTime || p.EpochClaimed != 400 {
		t.Fatalf("in-epoch roll mutated state")
	}

	// Once the epoch elapses the allowance resets.
	if !RollClaimEpoch(p, baseTime+epoch, epoch) {
		t.Fatalf("epoch boundary must roll")
	}
	if p.LastClaimedAt != baseTime+epoch || p.EpochClaimed != 0 {
		t.Fatalf("post-roll state: at %d claimed %d", p.LastClaimedAt, p.EpochClaimed)
	}
}

func TestClaimBoundHoldsAcrossRepeatedClaims(t *testing.T) {
	const epoch = 86_400
	p := claimant(150, 100)
	// Bound = 100 * 5000 / 10000 = 50 per epoch.
	var total uint64
	claim := func(now uint32) (uint64, error) {
		RollClaimEpoch(p, now, epoch)
		paid, _, err := ClampClaim(p, 5000)
		if err != nil {
			return 0, err
		}
		p.PendingEarnings -= paid
		p.EpochClaimed += paid
		total += paid
		return paid, nil
	}

	paid, err := claim(baseTime)
	if err != nil || paid != 50 {
		t.Fatalf("first claim: paid %d err %v", paid, err)
	}
	// Repeating in the same instant must not pay again.
	if _, err := claim(baseTime); !errors.Is(err, ErrClaimBoundReached) {
		t.Fatalf("same-epoch re-claim: expected ErrClaimBoundReached, got %v", err)
	}
	if total != 50 {
		t.Fatalf("epoch paid out %d, bound is 50", total)
	}
	// The next epoch releases the next tranche.
	if paid, err := claim(baseTime + epoch); err != nil || paid != 50 {
		t.Fatalf("next-epoch claim: paid %d err %v", paid, err)
	}
}

func TestOffsetDeterministicWithinWindow(t *testing.T) {
	var a, b [20]byte
	a[0], b[0] = 1, 2
	const window = 3600
	offA := Offset(a, window)
	if offA != Offset(a, window) {
		t.Fatalf("offset not deterministic")
	}
	if offA >= window {
		t.Fatalf("offset %d outside window %d", offA, window)
	}
	if Offset(a, window) == Offset(b, window) {
		t.Fatalf("distinct owners landed on identical offsets (keccak collision?)")
	}
	if Offset(a, 0) != 0 {
		t.Fatalf("zero window must yield zero offset")
	}
}
