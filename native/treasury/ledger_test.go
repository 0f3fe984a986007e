package treasury

import (
	"errors"
	"math/rand"
	"testing"

	"bizchain/core/types"
)

func TestDepositSplits(t *testing.T) {
	agg := &types.Treasury{}
	if err := Deposit(agg, 100, 2000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if agg.ProtocolFees != 20 || agg.Reserve != 80 {
		t.Fatalf("split: fees %d reserve %d", agg.ProtocolFees, agg.Reserve)
	}
	if agg.TotalInvested != 100 || agg.TotalFeesCollected != 20 {
		t.Fatalf("counters: invested %d fees %d", agg.TotalInvested, agg.TotalFeesCollected)
	}
	if agg.Version != 1 {
		t.Fatalf("version: got %d want 1", agg.Version)
	}
	if err := CheckConservation(agg); err != nil {
		t.Fatalf("conservation after deposit: %v", err)
	}
}

func TestDepositFloorsFeeLeg(t *testing.T) {
	agg := &types.Treasury{}
	// 33 * 2000 / 10000 = 6.6 -> fee 6, reserve 27; nothing is lost.
	if err := Deposit(agg, 33, 2000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if agg.ProtocolFees != 6 || agg.Reserve != 27 {
		t.Fatalf("floored split: fees %d reserve %d", agg.ProtocolFees, agg.Reserve)
	}
	if err := CheckConservation(agg); err != nil {
		t.Fatalf("conservation with rounding: %v", err)
	}
}

func TestDepositValidation(t *testing.T) {
	agg := &types.Treasury{}
	if err := Deposit(agg, 0, 2000); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := Deposit(agg, 10, types.BasisPointDivisor+1); !errors.Is(err, ErrFeeBpsRange) {
		t.Fatalf("expected ErrFeeBpsRange, got %v", err)
	}
	if agg.Version != 0 {
		t.Fatalf("failed deposits must not mutate, version %d", agg.Version)
	}
}

func TestWithdrawShortfall(t *testing.T) {
	agg := &types.Treasury{}
	if err := Deposit(agg, 100, 2000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := Withdraw(agg, 81, "claim"); !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("expected ErrInsufficientReserve, got %v", err)
	}
	if agg.Reserve != 80 || agg.TotalWithdrawn != 0 {
		t.Fatalf("failed withdraw mutated state: reserve %d withdrawn %d", agg.Reserve, agg.TotalWithdrawn)
	}
	if err := Withdraw(agg, 80, "claim"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := CheckConservation(agg); err != nil {
		t.Fatalf("conservation after withdraw: %v", err)
	}
}

func TestCollectFeeMovesReserve(t *testing.T) {
	agg := &types.Treasury{}
	if err := Deposit(agg, 1000, 2000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := CollectFee(agg, 250); err != nil {
		t.Fatalf("collect fee: %v", err)
	}
	if agg.Reserve != 550 || agg.ProtocolFees != 450 {
		t.Fatalf("fee move: reserve %d fees %d", agg.Reserve, agg.ProtocolFees)
	}
	if err := CheckConservation(agg); err != nil {
		t.Fatalf("conservation after fee move: %v", err)
	}
}

func TestSetPausedBumpsVersionOnce(t *testing.T) {
	agg := &types.Treasury{}
	SetPaused(agg, true)
	SetPaused(agg, true)
	if !agg.Paused || agg.Version != 1 {
		t.Fatalf("pause toggle: paused %v version %d", agg.Paused, agg.Version)
	}
}

func TestConservationAcrossRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	agg := &types.Treasury{}
	for i := 0; i < 5_000; i++ {
		switch rng.Intn(3) {
		case 0:
			_ = Deposit(agg, uint64(rng.Intn(10_000)+1), uint16(rng.Intn(3001)))
		case 1:
			_ = Withdraw(agg, uint64(rng.Intn(5_000)+1), "claim")
		case 2:
			_ = CollectFee(agg, uint64(rng.Intn(1_000)))
		}
		if err := CheckConservation(agg); err != nil {
			t.Fatalf("conservation broken after %d ops: %v", i+1, err)
		}
	}
}
