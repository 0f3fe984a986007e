package events

import (
	"strconv"

	"bizchain/core/types"
	"bizchain/crypto"
)

const (
	// TypeBusinessCreated is emitted when a business is purchased into a slot.
	TypeBusinessCreated = "business.created"
	// TypeBusinessUpgraded is emitted when a business level increases.
	TypeBusinessUpgraded = "business.upgraded"
	// TypeBusinessSold is emitted when a business is sold and its slot retired.
	TypeBusinessSold = "business.sold"
	// TypeEarningsUpdated is emitted when pending earnings are settled forward.
	TypeEarningsUpdated = "earnings.updated"
	// TypeEarningsClaimed is emitted when pending earnings are paid out.
	TypeEarningsClaimed = "earnings.claimed"
	// TypeOwnershipTokenMinted is emitted when an ownership token is created.
	TypeOwnershipTokenMinted = "ownership.minted"
	// TypeOwnershipTokenBurned is emitted when an ownership token is burned.
	TypeOwnershipTokenBurned = "ownership.burned"
)

func playerAddr(owner [20]byte) string {
	return crypto.MustNewAddress(crypto.BizPrefix, owner[:]).String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// BusinessCreated captures a purchase into an empty or retired slot.
type BusinessCreated struct {
	Owner        [20]byte
	Slot         uint8
	BusinessType types.BusinessType
	Level        uint8
	Amount       uint64
	DailyRateBps uint16
	TokenSerial  uint64
}

// EventType satisfies the Event interface.
func (BusinessCreated) EventType() string { return TypeBusinessCreated }

// Event converts the structured payload into a broadcastable event.
func (e BusinessCreated) Event() *types.Event {
	return &types.Event{Type: TypeBusinessCreated, Attributes: map[string]string{
		"owner":        playerAddr(e.Owner),
		"slot":         formatUint(uint64(e.Slot)),
		"businessType": e.BusinessType.String(),
		"level":        formatUint(uint64(e.Level)),
		"amount":       formatUint(e.Amount),
		"dailyRateBps": formatUint(uint64(e.DailyRateBps)),
		"tokenSerial":  formatUint(e.TokenSerial),
	}}
}

// BusinessUpgraded captures an in-place level increase.
type BusinessUpgraded struct {
	Owner              [20]byte
	Slot               uint8
	Level              uint8
	Cost               uint64
	DailyRateBps       uint16
	CumulativeInvested uint64
	TokenSerial        uint64
}

// EventType satisfies the Event interface.
func (BusinessUpgraded) EventType() string { return TypeBusinessUpgraded }

// Event converts the structured payload into a broadcastable event.
func (e BusinessUpgraded) Event() *types.Event {
	return &types.Event{Type: TypeBusinessUpgraded, Attributes: map[string]string{
		"owner":              playerAddr(e.Owner),
		"slot":               formatUint(uint64(e.Slot)),
		"level":              formatUint(uint64(e.Level)),
		"cost":               formatUint(e.Cost),
		"dailyRateBps":       formatUint(uint64(e.DailyRateBps)),
		"cumulativeInvested": formatUint(e.CumulativeInvested),
		"tokenSerial":        formatUint(e.TokenSerial),
	}}
}

// BusinessSold captures a sale payout and the retired slot.
type BusinessSold struct {
	Owner       [20]byte
	Slot        uint8
	Payout      uint64
	FeeAmount   uint64
	FeePercent  uint8
	DaysHeld    uint32
	TokenSerial uint64
}

// EventType satisfies the Event interface.
func (BusinessSold) EventType() string { return TypeBusinessSold }

// Event converts the structured payload into a broadcastable event.
func (e BusinessSold) Event() *types.Event {
	return &types.Event{Type: TypeBusinessSold, Attributes: map[string]string{
		"owner":       playerAddr(e.Owner),
		"slot":        formatUint(uint64(e.Slot)),
		"payout":      formatUint(e.Payout),
		"feeAmount":   formatUint(e.FeeAmount),
		"feePercent":  formatUint(uint64(e.FeePercent)),
		"daysHeld":    formatUint(uint64(e.DaysHeld)),
		"tokenSerial": formatUint(e.TokenSerial),
	}}
}

// EarningsUpdated captures a settlement window advancing.
type EarningsUpdated struct {
	Owner     [20]byte
	Delta     uint64
	Pending   uint64
	SettledAt uint32
}

// EventType satisfies the Event interface.
func (EarningsUpdated) EventType() string { return TypeEarningsUpdated }

// Event converts the structured payload into a broadcastable event.
func (e EarningsUpdated) Event() *types.Event {
	return &types.Event{Type: TypeEarningsUpdated, Attributes: map[string]string{
		"owner":     playerAddr(e.Owner),
		"delta":     formatUint(e.Delta),
		"pending":   formatUint(e.Pending),
		"settledAt": formatUint(uint64(e.SettledAt)),
	}}
}

// EarningsClaimed captures a payout of pending earnings. Clamped is set when
// the anti-drain bound limited the paid amount.
type EarningsClaimed struct {
	Owner     [20]byte
	Paid      uint64
	Remaining uint64
	Clamped   bool
}

// EventType satisfies the Event interface.
func (EarningsClaimed) EventType() string { return TypeEarningsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e EarningsClaimed) Event() *types.Event {
	return &types.Event{Type: TypeEarningsClaimed, Attributes: map[string]string{
		"owner":     playerAddr(e.Owner),
		"paid":      formatUint(e.Paid),
		"remaining": formatUint(e.Remaining),
		"clamped":   strconv.FormatBool(e.Clamped),
	}}
}

// OwnershipTokenMinted captures a new ownership credential.
type OwnershipTokenMinted struct {
	Owner        [20]byte
	Serial       uint64
	BusinessType types.BusinessType
	Level        uint8
}

// EventType satisfies the Event interface.
func (OwnershipTokenMinted) EventType() string { return TypeOwnershipTokenMinted }

// Event converts the structured payload into a broadcastable event.
func (e OwnershipTokenMinted) Event() *types.Event {
	return &types.Event{Type: TypeOwnershipTokenMinted, Attributes: map[string]string{
		"owner":        playerAddr(e.Owner),
		"serial":       formatUint(e.Serial),
		"businessType": e.BusinessType.String(),
		"level":        formatUint(uint64(e.Level)),
	}}
}

// OwnershipTokenBurned captures an irreversible token burn.
type OwnershipTokenBurned struct {
	Owner  [20]byte
	Serial uint64
}

// EventType satisfies the Event interface.
func (OwnershipTokenBurned) EventType() string { return TypeOwnershipTokenBurned }

// Event converts the structured payload into a broadcastable event.
func (e OwnershipTokenBurned) Event() *types.Event {
	return &types.Event{Type: TypeOwnershipTokenBurned, Attributes: map[string]string{
		"owner":  playerAddr(e.Owner),
		"serial": formatUint(e.Serial),
	}}
}
