package catalog

import (
	"errors"
	"testing"

	"bizchain/core/types"
)

func TestGetBounds(t *testing.T) {
	entry, err := Get(types.BusinessCoffeeShop, 0)
	if err != nil {
		t.Fatalf("get coffee shop level 0: %v", err)
	}
	if entry.Price != 100 || entry.DailyRateBps != 150 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	if _, err := Get(types.BusinessType(types.BusinessTypeCount), 0); !errors.Is(err, ErrInvalidBusinessType) {
		t.Fatalf("expected ErrInvalidBusinessType, got %v", err)
	}
	if _, err := Get(types.BusinessArcade, types.MaxUpgradeLevel+1); !errors.Is(err, ErrInvalidUpgradeLevel) {
		t.Fatalf("expected ErrInvalidUpgradeLevel, got %v", err)
	}
}

func TestCumulativePrice(t *testing.T) {
	price, err := CumulativePrice(types.BusinessCoffeeShop, 2)
	if err != nil {
		t.Fatalf("cumulative price: %v", err)
	}
	if want := uint64(100 + 150 + 250); price != want {
		t.Fatalf("cumulative price: got %d want %d", price, want)
	}
	if _, err := CumulativePrice(types.BusinessCoffeeShop, 5); !errors.Is(err, ErrInvalidUpgradeLevel) {
		t.Fatalf("expected ErrInvalidUpgradeLevel, got %v", err)
	}
}

func TestRatesIncreaseWithLevel(t *testing.T) {
	for typ := types.BusinessType(0); typ < types.BusinessTypeCount; typ++ {
		for level := uint8(1); level <= types.MaxUpgradeLevel; level++ {
			prev, _ := Get(typ, level-1)
			cur, _ := Get(typ, level)
			if cur.DailyRateBps <= prev.DailyRateBps {
				t.Fatalf("%s level %d rate %d not above level %d rate %d",
					typ, level, cur.DailyRateBps, level-1, prev.DailyRateBps)
			}
			if cur.Price <= prev.Price {
				t.Fatalf("%s level %d price %d not above level %d price %d",
					typ, level, cur.Price, level-1, prev.Price)
			}
		}
	}
}

func TestUnlockedSlotsMonotone(t *testing.T) {
	if got := UnlockedSlots(0); got != 3 {
		t.Fatalf("fresh player slots: got %d want 3", got)
	}
	if got := UnlockedSlots(1_000); got != 4 {
		t.Fatalf("slots at 1000 invested: got %d want 4", got)
	}
	if got := UnlockedSlots(1_000_000); got != types.SlotCount {
		t.Fatalf("max slots: got %d want %d", got, types.SlotCount)
	}
	prev := uint8(0)
	for _, invested := range []uint64{0, 999, 1_000, 4_999, 5_000, 20_000, 75_000, 250_000, 999_999, 1_000_000} {
		got := UnlockedSlots(invested)
		if got < prev {
			t.Fatalf("UnlockedSlots not monotone at %d: %d < %d", invested, got, prev)
		}
		prev = got
	}
}

func TestRecordsCoverFullTable(t *testing.T) {
	records := Records()
	if want := int(types.BusinessTypeCount) * (types.MaxUpgradeLevel + 1); len(records) != want {
		t.Fatalf("record count: got %d want %d", len(records), want)
	}
}
