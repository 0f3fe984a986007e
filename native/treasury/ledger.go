// Package treasury implements the ledger over the global aggregate. All
// functions mutate the in-memory aggregate only; persisting the mutated
// value together with the player record in one step is the state machine's
// responsibility, which is what makes a half-applied deposit or withdrawal
// structurally impossible.
package treasury

import (
	"errors"
	"fmt"

	"bizchain/core/types"
)

var (
	// ErrInsufficientReserve is a fatal invariant violation: the pooled
	// payout reserve cannot cover a debit. Callers must abort and alert,
	// never retry silently.
	ErrInsufficientReserve = errors.New("treasury: insufficient reserve")
	ErrInvalidAmount       = errors.New("treasury: amount must be positive")
	ErrFeeBpsRange         = errors.New("treasury: fee basis points exceed 100%")
	// ErrConservation reports that the aggregate counters no longer balance.
	ErrConservation = errors.New("treasury: conservation identity violated")
)

// Deposit splits an incoming investment between the protocol-fee destination
// and the pooled payout reserve. The fee leg floors; the reserve leg takes
// the remainder, so the conservation identity stays exact. Both legs are
// assignments on the same aggregate value: they post together or not at all.
func Deposit(t *types.Treasury, amount uint64, feeBps uint16) error {
	if t == nil || amount == 0 {
		return ErrInvalidAmount
	}
	if feeBps > types.BasisPointDivisor {
		return fmt.Errorf("%w: %d", ErrFeeBpsRange, feeBps)
	}
	fee := amount * uint64(feeBps) / types.BasisPointDivisor
	t.ProtocolFees += fee
	t.TotalFeesCollected += fee
	t.Reserve += amount - fee
	t.TotalInvested += amount
	t.Version++
	return nil
}

// Withdraw debits the pooled reserve for a claim or sale payout. The reason
// travels with the error so a shortfall alert names the failing flow.
func Withdraw(t *types.Treasury, amount uint64, reason string) error {
	if t == nil || amount == 0 {
		return ErrInvalidAmount
	}
	if t.Reserve < amount {
		return fmt.Errorf("%w: %s needs %d, reserve holds %d", ErrInsufficientReserve, reason, amount, t.Reserve)
	}
	t.Reserve -= amount
	t.TotalWithdrawn += amount
	t.Version++
	return nil
}

// CollectFee moves an early-exit sale fee out of the reserve into the
// protocol-fee counters. The fee was deposited into the reserve when the
// business was created, so the move keeps the identity balanced.
func CollectFee(t *types.Treasury, amount uint64) error {
	if t == nil {
		return ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	if t.Reserve < amount {
		return fmt.Errorf("%w: fee collection needs %d, reserve holds %d", ErrInsufficientReserve, amount, t.Reserve)
	}
	t.Reserve -= amount
	t.ProtocolFees += amount
	t.TotalFeesCollected += amount
	t.Version++
	return nil
}

// SetPaused toggles the administrative pause flag.
func SetPaused(t *types.Treasury, paused bool) {
	if t == nil || t.Paused == paused {
		return
	}
	t.Paused = paused
	t.Version++
}

// CheckConservation verifies the checked-not-stored identity
//
//	TotalInvested == Reserve + TotalWithdrawn + TotalFeesCollected
//
// which holds exactly for every operation sequence because deposits floor
// the fee leg and credit the remainder to the reserve.
func CheckConservation(t *types.Treasury) error {
	if t == nil {
		return ErrConservation
	}
	if t.TotalInvested != t.Reserve+t.TotalWithdrawn+t.TotalFeesCollected {
		return fmt.Errorf("%w: invested %d != reserve %d + withdrawn %d + fees %d",
			ErrConservation, t.TotalInvested, t.Reserve, t.TotalWithdrawn, t.TotalFeesCollected)
	}
	return nil
}
