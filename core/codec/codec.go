// Package codec owns the fixed-width, bit-packed record layout of the
// ledger. Byte offsets and flag bit positions are private to this package;
// every other component consumes the decoded structs from core/types. The
// record sizes and field order are an external contract consumed by
// off-chain indexers and must not change without a state migration.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"bizchain/core/types"
)

// Record sizes in bytes. Exported because callers allocate and ship whole
// records; the internal offsets are not.
const (
	SlotRecordSize     = 28
	playerHeaderSize   = 64
	PlayerRecordSize   = playerHeaderSize + types.SlotCount*SlotRecordSize
	TokenRecordSize    = 48
	TreasuryRecordSize = 88
	CatalogRecordSize  = 12
)

var (
	// ErrCorruptRecord flags reserved-bit violations, out-of-range enums or
	// malformed record lengths. It is an invariant violation: the caller
	// must abort, not retry.
	ErrCorruptRecord = errors.New("codec: corrupt record")
	// ErrValueOverflow flags a value that does not fit its narrowed wire
	// width. Narrowing is validated here, never silently truncated.
	ErrValueOverflow = errors.New("codec: value exceeds field width")
)

// Slot flag bits. Bits 4-7 are reserved and must be zero.
const (
	slotFlagOccupied = 1 << 0
	slotFlagActive   = 1 << 1
	slotTierShift    = 2
	slotTierMask     = 0b11 << slotTierShift
	slotReservedMask = 0xF0
)

// Token flag bits. Bits 1-7 are reserved.
const (
	tokenFlagBurned   = 1 << 0
	tokenReservedMask = 0xFE
)

// Treasury flag bits. Bits 1-7 are reserved.
const (
	treasuryFlagPaused   = 1 << 0
	treasuryReservedMask = 0xFE
)

func checkU32(field string, v uint64) error {
	if v > math.MaxUint32 {
		return fmt.Errorf("%w: %s", ErrValueOverflow, field)
	}
	return nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// encodeSlot packs a slot into buf, which must be SlotRecordSize long.
func encodeSlot(buf []byte, s *types.Slot) error {
	if s.Tier > types.TierLegendary {
		return fmt.Errorf("%w: slot tier %d", ErrCorruptRecord, s.Tier)
	}
	flags := byte(s.Tier) << slotTierShift
	b := s.Business
	if b == nil {
		buf[0] = flags
		return nil
	}
	if !b.Type.Valid() {
		return fmt.Errorf("%w: business type %d", ErrCorruptRecord, b.Type)
	}
	if b.Level > types.MaxUpgradeLevel {
		return fmt.Errorf("%w: upgrade level %d", ErrCorruptRecord, b.Level)
	}
	if b.TokenSerial == 0 {
		return fmt.Errorf("%w: occupied slot without token serial", ErrCorruptRecord)
	}
	if err := checkU32("baseInvested", b.BaseInvested); err != nil {
		return err
	}
	if err := checkU32("cumulativeInvested", b.CumulativeInvested); err != nil {
		return err
	}
	flags |= slotFlagOccupied
	if b.Active {
		flags |= slotFlagActive
	}
	buf[0] = flags
	buf[1] = byte(b.Type)
	buf[2] = b.Level
	binary.BigEndian.PutUint16(buf[4:6], b.DailyRateBps)
	binary.BigEndian.PutUint32(buf[6:10], uint32(b.BaseInvested))
	binary.BigEndian.PutUint32(buf[10:14], uint32(b.CumulativeInvested))
	binary.BigEndian.PutUint32(buf[14:18], b.CreatedAt)
	binary.BigEndian.PutUint64(buf[18:26], b.TokenSerial)
	return nil
}

func decodeSlot(buf []byte) (types.Slot, error) {
	flags := buf[0]
	if flags&slotReservedMask != 0 || buf[3] != 0 || !allZero(buf[26:28]) {
		return types.Slot{}, fmt.Errorf("%w: slot reserved bits set", ErrCorruptRecord)
	}
	slot := types.Slot{Tier: types.SlotTier(flags & slotTierMask >> slotTierShift)}
	if flags&slotFlagOccupied == 0 {
		if flags&slotFlagActive != 0 {
			return types.Slot{}, fmt.Errorf("%w: active bit on empty slot", ErrCorruptRecord)
		}
		if !allZero(buf[1:26]) {
			return types.Slot{}, fmt.Errorf("%w: business fields on empty slot", ErrCorruptRecord)
		}
		return slot, nil
	}
	typ := types.BusinessType(buf[1])
	if !typ.Valid() {
		return types.Slot{}, fmt.Errorf("%w: business type %d", ErrCorruptRecord, typ)
	}
	if buf[2] > types.MaxUpgradeLevel {
		return types.Slot{}, fmt.Errorf("%w: upgrade level %d", ErrCorruptRecord, buf[2])
	}
	// Serials are assigned from 1; an occupied slot referencing serial 0
	// points at a token that cannot exist.
	if binary.BigEndian.Uint64(buf[18:26]) == 0 {
		return types.Slot{}, fmt.Errorf("%w: occupied slot without token serial", ErrCorruptRecord)
	}
	slot.Business = &types.Business{
		Type:               typ,
		Level:              buf[2],
		DailyRateBps:       binary.BigEndian.Uint16(buf[4:6]),
		BaseInvested:       uint64(binary.BigEndian.Uint32(buf[6:10])),
		CumulativeInvested: uint64(binary.BigEndian.Uint32(buf[10:14])),
		CreatedAt:          binary.BigEndian.Uint32(buf[14:18]),
		Active:             flags&slotFlagActive != 0,
		TokenSerial:        binary.BigEndian.Uint64(buf[18:26]),
	}
	return slot, nil
}

// EncodePlayer serialises a player record into its fixed PlayerRecordSize
// layout.
func EncodePlayer(p *types.Player) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil player", ErrCorruptRecord)
	}
	if p.UnlockedSlots > types.SlotCount {
		return nil, fmt.Errorf("%w: unlocked slots %d", ErrCorruptRecord, p.UnlockedSlots)
	}
	buf := make([]byte, PlayerRecordSize)
	copy(buf[0:20], p.Owner[:])
	binary.BigEndian.PutUint64(buf[20:28], p.TotalInvested)
	binary.BigEndian.PutUint64(buf[28:36], p.PendingEarnings)
	binary.BigEndian.PutUint64(buf[36:44], p.ClaimedTotal)
	binary.BigEndian.PutUint32(buf[44:48], p.LastSettledAt)
	binary.BigEndian.PutUint16(buf[48:50], p.SettlementOffset)
	buf[50] = p.UnlockedSlots
	binary.BigEndian.PutUint32(buf[52:56], p.LastClaimedAt)
	binary.BigEndian.PutUint64(buf[56:64], p.EpochClaimed)
	for i := range p.Slots {
		off := playerHeaderSize + i*SlotRecordSize
		if err := encodeSlot(buf[off:off+SlotRecordSize], &p.Slots[i]); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return buf, nil
}

// DecodePlayer parses a fixed-width player record.
func DecodePlayer(buf []byte) (*types.Player, error) {
	if len(buf) != PlayerRecordSize {
		return nil, fmt.Errorf("%w: player record length %d", ErrCorruptRecord, len(buf))
	}
	if buf[51] != 0 {
		return nil, fmt.Errorf("%w: player reserved byte set", ErrCorruptRecord)
	}
	if buf[50] > types.SlotCount {
		return nil, fmt.Errorf("%w: unlocked slots %d", ErrCorruptRecord, buf[50])
	}
	p := &types.Player{
		TotalInvested:    binary.BigEndian.Uint64(buf[20:28]),
		PendingEarnings:  binary.BigEndian.Uint64(buf[28:36]),
		ClaimedTotal:     binary.BigEndian.Uint64(buf[36:44]),
		LastSettledAt:    binary.BigEndian.Uint32(buf[44:48]),
		SettlementOffset: binary.BigEndian.Uint16(buf[48:50]),
		UnlockedSlots:    buf[50],
		LastClaimedAt:    binary.BigEndian.Uint32(buf[52:56]),
		EpochClaimed:     binary.BigEndian.Uint64(buf[56:64]),
	}
	copy(p.Owner[:], buf[0:20])
	for i := range p.Slots {
		off := playerHeaderSize + i*SlotRecordSize
		slot, err := decodeSlot(buf[off : off+SlotRecordSize])
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		p.Slots[i] = slot
	}
	return p, nil
}

// EncodeToken serialises an ownership token record.
func EncodeToken(t *types.OwnershipToken) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil token", ErrCorruptRecord)
	}
	if !t.BusinessType.Valid() {
		return nil, fmt.Errorf("%w: business type %d", ErrCorruptRecord, t.BusinessType)
	}
	if t.Level > types.MaxUpgradeLevel {
		return nil, fmt.Errorf("%w: upgrade level %d", ErrCorruptRecord, t.Level)
	}
	if err := checkU32("cumulativeInvested", t.CumulativeInvested); err != nil {
		return nil, err
	}
	buf := make([]byte, TokenRecordSize)
	copy(buf[0:20], t.Owner[:])
	if t.Burned {
		buf[20] = tokenFlagBurned
	}
	buf[21] = byte(t.BusinessType)
	buf[22] = t.Level
	binary.BigEndian.PutUint16(buf[24:26], t.RateBps)
	binary.BigEndian.PutUint32(buf[28:32], uint32(t.CumulativeInvested))
	binary.BigEndian.PutUint32(buf[32:36], t.MintedAt)
	binary.BigEndian.PutUint64(buf[36:44], t.Serial)
	return buf, nil
}

// DecodeToken parses an ownership token record.
func DecodeToken(buf []byte) (*types.OwnershipToken, error) {
	if len(buf) != TokenRecordSize {
		return nil, fmt.Errorf("%w: token record length %d", ErrCorruptRecord, len(buf))
	}
	if buf[20]&tokenReservedMask != 0 || buf[23] != 0 || !allZero(buf[26:28]) || !allZero(buf[44:48]) {
		return nil, fmt.Errorf("%w: token reserved bits set", ErrCorruptRecord)
	}
	typ := types.BusinessType(buf[21])
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: business type %d", ErrCorruptRecord, typ)
	}
	if buf[22] > types.MaxUpgradeLevel {
		return nil, fmt.Errorf("%w: upgrade level %d", ErrCorruptRecord, buf[22])
	}
	t := &types.OwnershipToken{
		Burned:             buf[20]&tokenFlagBurned != 0,
		BusinessType:       typ,
		Level:              buf[22],
		RateBps:            binary.BigEndian.Uint16(buf[24:26]),
		CumulativeInvested: uint64(binary.BigEndian.Uint32(buf[28:32])),
		MintedAt:           binary.BigEndian.Uint32(buf[32:36]),
		Serial:             binary.BigEndian.Uint64(buf[36:44]),
	}
	copy(t.Owner[:], buf[0:20])
	return t, nil
}

// EncodeTreasury serialises the global aggregate record.
func EncodeTreasury(t *types.Treasury) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil treasury", ErrCorruptRecord)
	}
	buf := make([]byte, TreasuryRecordSize)
	if t.Paused {
		buf[0] = treasuryFlagPaused
	}
	binary.BigEndian.PutUint32(buf[4:8], t.Version)
	binary.BigEndian.PutUint64(buf[8:16], t.TotalPlayers)
	binary.BigEndian.PutUint64(buf[16:24], t.TotalBusinesses)
	binary.BigEndian.PutUint64(buf[24:32], t.TotalInvested)
	binary.BigEndian.PutUint64(buf[32:40], t.TotalWithdrawn)
	binary.BigEndian.PutUint64(buf[40:48], t.TotalFeesCollected)
	binary.BigEndian.PutUint64(buf[48:56], t.Reserve)
	binary.BigEndian.PutUint64(buf[56:64], t.ProtocolFees)
	binary.BigEndian.PutUint64(buf[64:72], t.TokensMinted)
	binary.BigEndian.PutUint64(buf[72:80], t.TokensBurned)
	binary.BigEndian.PutUint64(buf[80:88], t.NextTokenSerial)
	return buf, nil
}

// DecodeTreasury parses the global aggregate record.
func DecodeTreasury(buf []byte) (*types.Treasury, error) {
	if len(buf) != TreasuryRecordSize {
		return nil, fmt.Errorf("%w: treasury record length %d", ErrCorruptRecord, len(buf))
	}
	if buf[0]&treasuryReservedMask != 0 || !allZero(buf[1:4]) {
		return nil, fmt.Errorf("%w: treasury reserved bits set", ErrCorruptRecord)
	}
	return &types.Treasury{
		Paused:             buf[0]&treasuryFlagPaused != 0,
		Version:            binary.BigEndian.Uint32(buf[4:8]),
		TotalPlayers:       binary.BigEndian.Uint64(buf[8:16]),
		TotalBusinesses:    binary.BigEndian.Uint64(buf[16:24]),
		TotalInvested:      binary.BigEndian.Uint64(buf[24:32]),
		TotalWithdrawn:     binary.BigEndian.Uint64(buf[32:40]),
		TotalFeesCollected: binary.BigEndian.Uint64(buf[40:48]),
		Reserve:            binary.BigEndian.Uint64(buf[48:56]),
		ProtocolFees:       binary.BigEndian.Uint64(buf[56:64]),
		TokensMinted:       binary.BigEndian.Uint64(buf[64:72]),
		TokensBurned:       binary.BigEndian.Uint64(buf[72:80]),
		NextTokenSerial:    binary.BigEndian.Uint64(buf[80:88]),
	}, nil
}

// CatalogEntryRecord is the wire form of a catalog row, published for
// off-chain consumers.
type CatalogEntryRecord struct {
	Type         types.BusinessType
	Level        uint8
	Price        uint64
	DailyRateBps uint16
}

// EncodeCatalogEntry serialises a catalog row.
func EncodeCatalogEntry(e *CatalogEntryRecord) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil catalog entry", ErrCorruptRecord)
	}
	if !e.Type.Valid() {
		return nil, fmt.Errorf("%w: business type %d", ErrCorruptRecord, e.Type)
	}
	if e.Level > types.MaxUpgradeLevel {
		return nil, fmt.Errorf("%w: upgrade level %d", ErrCorruptRecord, e.Level)
	}
	if err := checkU32("price", e.Price); err != nil {
		return nil, err
	}
	buf := make([]byte, CatalogRecordSize)
	buf[0] = byte(e.Type)
	buf[1] = e.Level
	binary.BigEndian.PutUint32(buf[4:8], uint32(e.Price))
	binary.BigEndian.PutUint16(buf[8:10], e.DailyRateBps)
	return buf, nil
}

// DecodeCatalogEntry parses a catalog row.
func DecodeCatalogEntry(buf []byte) (*CatalogEntryRecord, error) {
	if len(buf) != CatalogRecordSize {
		return nil, fmt.Errorf("%w: catalog record length %d", ErrCorruptRecord, len(buf))
	}
	if !allZero(buf[2:4]) || !allZero(buf[10:12]) {
		return nil, fmt.Errorf("%w: catalog reserved bytes set", ErrCorruptRecord)
	}
	typ := types.BusinessType(buf[0])
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: business type %d", ErrCorruptRecord, typ)
	}
	if buf[1] > types.MaxUpgradeLevel {
		return nil, fmt.Errorf("%w: upgrade level %d", ErrCorruptRecord, buf[1])
	}
	return &CatalogEntryRecord{
		Type:         typ,
		Level:        buf[1],
		Price:        uint64(binary.BigEndian.Uint32(buf[4:8])),
		DailyRateBps: binary.BigEndian.Uint16(buf[8:10]),
	}, nil
}
