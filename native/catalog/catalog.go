// Package catalog is the static per-type economics lookup. It carries no
// mutable state: prices and rates are compile-time tables, and every query
// is a pure function.
package catalog

import (
	"errors"
	"fmt"

	"bizchain/core/codec"
	"bizchain/core/types"
)

var (
	ErrInvalidBusinessType = errors.New("catalog: invalid business type")
	ErrInvalidUpgradeLevel = errors.New("catalog: invalid upgrade level")
)

// Entry is one catalog row: what a level of a business type costs and what
// it pays per day.
type Entry struct {
	Price        uint64
	DailyRateBps uint16
}

// levels[type][level] -> entry. Prices are the incremental cost of reaching
// the level; rates replace the previous level's rate.
var levels = [types.BusinessTypeCount][types.MaxUpgradeLevel + 1]Entry{
	types.BusinessCoffeeShop: {
		{Price: 100, DailyRateBps: 150},
		{Price: 150, DailyRateBps: 175},
		{Price: 250, DailyRateBps: 200},
		{Price: 400, DailyRateBps: 225},
		{Price: 650, DailyRateBps: 250},
	},
	types.BusinessCarWash: {
		{Price: 250, DailyRateBps: 170},
		{Price: 375, DailyRateBps: 195},
		{Price: 600, DailyRateBps: 220},
		{Price: 950, DailyRateBps: 245},
		{Price: 1_500, DailyRateBps: 270},
	},
	types.BusinessArcade: {
		{Price: 600, DailyRateBps: 190},
		{Price: 900, DailyRateBps: 220},
		{Price: 1_400, DailyRateBps: 250},
		{Price: 2_200, DailyRateBps: 280},
		{Price: 3_500, DailyRateBps: 310},
	},
	types.BusinessRestaurant: {
		{Price: 1_500, DailyRateBps: 210},
		{Price: 2_200, DailyRateBps: 245},
		{Price: 3_400, DailyRateBps: 280},
		{Price: 5_200, DailyRateBps: 315},
		{Price: 8_000, DailyRateBps: 350},
	},
	types.BusinessNightclub: {
		{Price: 4_000, DailyRateBps: 240},
		{Price: 6_000, DailyRateBps: 280},
		{Price: 9_000, DailyRateBps: 320},
		{Price: 13_500, DailyRateBps: 360},
		{Price: 20_000, DailyRateBps: 400},
	},
	types.BusinessTechStartup: {
		{Price: 10_000, DailyRateBps: 280},
		{Price: 15_000, DailyRateBps: 330},
		{Price: 22_500, DailyRateBps: 380},
		{Price: 34_000, DailyRateBps: 430},
		{Price: 50_000, DailyRateBps: 480},
	},
}

// Get returns the price and daily rate of a business type at a level.
func Get(typ types.BusinessType, level uint8) (Entry, error) {
	if !typ.Valid() {
		return Entry{}, fmt.Errorf("%w: %d", ErrInvalidBusinessType, typ)
	}
	if level > types.MaxUpgradeLevel {
		return Entry{}, fmt.Errorf("%w: %d", ErrInvalidUpgradeLevel, level)
	}
	return levels[typ][level], nil
}

// CumulativePrice sums the level prices from 0 through level, the amount a
// player pays to create a business directly at that level.
func CumulativePrice(typ types.BusinessType, level uint8) (uint64, error) {
	if !typ.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBusinessType, typ)
	}
	if level > types.MaxUpgradeLevel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidUpgradeLevel, level)
	}
	var total uint64
	for l := uint8(0); l <= level; l++ {
		total += levels[typ][l].Price
	}
	return total, nil
}

// slotThresholds[i] is the lifetime investment required to have slot i
// unlocked. The first three slots are free.
var slotThresholds = [types.SlotCount]uint64{
	0, 0, 0,
	1_000,
	5_000,
	20_000,
	75_000,
	250_000,
	1_000_000,
}

// UnlockedSlots returns how many slots a lifetime investment unlocks,
// monotone in the invested amount and never below the three starter slots.
func UnlockedSlots(lifetimeInvested uint64) uint8 {
	unlocked := uint8(0)
	for _, threshold := range slotThresholds {
		if lifetimeInvested < threshold {
			break
		}
		unlocked++
	}
	if unlocked < 3 {
		unlocked = 3
	}
	return unlocked
}

// Records renders the full catalog in its wire form for off-chain consumers.
func Records() []codec.CatalogEntryRecord {
	out := make([]codec.CatalogEntryRecord, 0, int(types.BusinessTypeCount)*(types.MaxUpgradeLevel+1))
	for typ := types.BusinessType(0); typ < types.BusinessTypeCount; typ++ {
		for level := uint8(0); level <= types.MaxUpgradeLevel; level++ {
			out = append(out, codec.CatalogEntryRecord{
				Type:         typ,
				Level:        level,
				Price:        levels[typ][level].Price,
				DailyRateBps: levels[typ][level].DailyRateBps,
			})
		}
	}
	return out
}
