package types

// Fixed dimensions of the ledger. These are part of the record layout
// contract and cannot change without a state migration.
const (
	// SlotCount is the fixed number of business slots in a player record.
	SlotCount = 9
	// MaxUpgradeLevel bounds business upgrade levels (levels run 0..4).
	MaxUpgradeLevel = 4
	// BusinessTypeCount is the size of the static business catalog.
	BusinessTypeCount = 6

	SecondsPerDay     = 86_400
	BasisPointDivisor = 10_000
)

// BusinessType enumerates the static business catalog.
type BusinessType uint8

const (
	BusinessCoffeeShop BusinessType = iota
	BusinessCarWash
	BusinessArcade
	BusinessRestaurant
	BusinessNightclub
	BusinessTechStartup
)

// Valid reports whether the type is a member of the catalog.
func (t BusinessType) Valid() bool {
	return t < BusinessTypeCount
}

func (t BusinessType) String() string {
	switch t {
	case BusinessCoffeeShop:
		return "coffeeShop"
	case BusinessCarWash:
		return "carWash"
	case BusinessArcade:
		return "arcade"
	case BusinessRestaurant:
		return "restaurant"
	case BusinessNightclub:
		return "nightclub"
	case BusinessTechStartup:
		return "techStartup"
	default:
		return "unknown"
	}
}

// SlotTier grades a slot. Higher tiers reduce the early-exit sale fee.
type SlotTier uint8

const (
	TierBasic SlotTier = iota
	TierPremium
	TierVIP
	TierLegendary
)

func (t SlotTier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierPremium:
		return "premium"
	case TierVIP:
		return "vip"
	case TierLegendary:
		return "legendary"
	default:
		return "unknown"
	}
}

// TierForSlot returns the fixed tier of a slot index: slots 0-3 are basic,
// 4-6 premium, 7 vip and 8 legendary.
func TierForSlot(index int) SlotTier {
	switch {
	case index < 4:
		return TierBasic
	case index < 7:
		return TierPremium
	case index == 7:
		return TierVIP
	default:
		return TierLegendary
	}
}

// Business is a purchased economic unit occupying a slot. Amounts are capped
// at 32 bits by the codec; in-memory math uses uint64 so intermediate sums
// cannot wrap.
type Business struct {
	Type               BusinessType
	Level              uint8
	DailyRateBps       uint16
	BaseInvested       uint64
	CumulativeInvested uint64
	CreatedAt          uint32
	Active             bool
	TokenSerial        uint64
}

// DailyEarnings returns the amount the business accrues per full day.
func (b *Business) DailyEarnings() uint64 {
	if b == nil {
		return 0
	}
	return b.CumulativeInvested * uint64(b.DailyRateBps) / BasisPointDivisor
}

// DaysHeld returns the whole days elapsed since creation.
func (b *Business) DaysHeld(now uint32) uint32 {
	if b == nil || now <= b.CreatedAt {
		return 0
	}
	return (now - b.CreatedAt) / SecondsPerDay
}

// Slot is a fixed-capacity container holding at most one business. A sold
// business stays in place with Active == false until the slot is reused.
type Slot struct {
	Tier     SlotTier
	Business *Business
}

// Occupied reports whether the slot holds a business, active or retired.
func (s *Slot) Occupied() bool {
	return s != nil && s.Business != nil
}

// ActiveBusiness returns the business when it is still accruing, nil
// otherwise.
func (s *Slot) ActiveBusiness() *Business {
	if s == nil || s.Business == nil || !s.Business.Active {
		return nil
	}
	return s.Business
}

// Player is the per-owner ledger record. LastClaimedAt anchors the claim
// epoch and EpochClaimed accumulates payouts inside it, so the anti-drain
// bound limits what an epoch pays out in total, not what a single call pays.
type Player struct {
	Owner            [20]byte
	TotalInvested    uint64
	PendingEarnings  uint64
	ClaimedTotal     uint64
	LastSettledAt    uint32
	SettlementOffset uint16
	UnlockedSlots    uint8
	LastClaimedAt    uint32
	EpochClaimed     uint64
	Slots            [SlotCount]Slot
}

// NewPlayer initialises a player record with the fixed slot tiers.
func NewPlayer(owner [20]byte, now uint32, offset uint16, unlocked uint8) *Player {
	p := &Player{
		Owner:            owner,
		LastSettledAt:    now,
		SettlementOffset: offset,
		UnlockedSlots:    unlocked,
	}
	for i := range p.Slots {
		p.Slots[i].Tier = TierForSlot(i)
	}
	return p
}

// ActiveInvested sums the cumulative investment of all active businesses.
// The player invariant is TotalInvested == ActiveInvested().
func (p *Player) ActiveInvested() uint64 {
	var total uint64
	for i := range p.Slots {
		if b := p.Slots[i].ActiveBusiness(); b != nil {
			total += b.CumulativeInvested
		}
	}
	return total
}

// OwnershipToken mirrors the externally held non-fungible credential that
// proves exclusive ownership of a business.
type OwnershipToken struct {
	Owner              [20]byte
	BusinessType       BusinessType
	Level              uint8
	RateBps            uint16
	CumulativeInvested uint64
	MintedAt           uint32
	Serial             uint64
	Burned             bool
}

// Treasury is the global mutable aggregate shared by every operation. It is
// passed explicitly into operations and persisted with the player record in
// the same atomic step; Version increments on every mutation.
type Treasury struct {
	Paused  bool
	Version uint32

	TotalPlayers    uint64
	TotalBusinesses uint64

	TotalInvested      uint64
	TotalWithdrawn     uint64
	TotalFeesCollected uint64

	Reserve      uint64
	ProtocolFees uint64

	TokensMinted uint64
	TokensBurned uint64

	NextTokenSerial uint64
}
