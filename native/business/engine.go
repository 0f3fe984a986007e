// Package business is the player/slot state machine. It orchestrates the
// catalog, fee curve, accrual engine, ownership registry and treasury ledger
// as atomic transitions: every operation runs against a staged state view and
// commits all of its writes in one database batch, so a partially applied
// transition cannot be observed even across token, player and treasury
// records.
package business

import (
	"errors"
	"fmt"

	"bizchain/core/events"
	"bizchain/core/state"
	"bizchain/core/types"
	"bizchain/native/catalog"
	nativecommon "bizchain/native/common"
	"bizchain/native/earnings"
	"bizchain/native/fees"
	"bizchain/native/ownership"
	"bizchain/native/treasury"
)

const moduleName = "business"

var (
	errNilState       = errors.New("business engine: state not configured")
	ErrPlayerNotFound = errors.New("business engine: player not found")
	ErrPlayerExists   = errors.New("business engine: player already exists")
	ErrInvalidSlot    = errors.New("business engine: slot index out of range")
	ErrSlotLocked     = errors.New("business engine: slot not unlocked")
	ErrSlotOccupied   = errors.New("business engine: slot holds an active business")
	ErrNoBusiness     = errors.New("business engine: no active business in slot")
	ErrWrongAmount    = errors.New("business engine: amount does not match catalog price")
	ErrUnauthorized   = errors.New("business engine: caller is not the pause authority")
	// ErrInsufficientTreasury is fatal: pending earnings exceeded the pooled
	// reserve, which indicates an upstream accounting bug, not a transient
	// condition.
	ErrInsufficientTreasury = errors.New("business engine: treasury cannot cover claim")
)

// Metrics receives one observation per operation. Implementations must not
// block; the prometheus recorder in observability/metrics is the canonical
// one.
type Metrics interface {
	ObserveOperation(op string, err error)
}

// Params carries the tunable economics enforced by the engine.
type Params struct {
	// UpdateCooldown is the minimum seconds between earnings settlements.
	UpdateCooldown uint32
	// SettlementWindow spreads batch sweeps; per-player offsets are derived
	// modulo this many seconds.
	SettlementWindow uint16
	// MaxClaimBps bounds the total paid out per claim epoch to this fraction
	// of the player's active investment.
	MaxClaimBps uint16
	// ClaimEpoch is the length in seconds of the claim epoch the bound
	// applies to.
	ClaimEpoch uint32
	// DepositFeeBps is the protocol's cut of every investment deposit. Zero
	// in production: sale payouts return the full invested amount, so a
	// deposit-side skim would leave the reserve short of its own payouts.
	// Protocol revenue comes from the exit-fee curve instead.
	DepositFeeBps uint16
}

// DefaultParams returns the production economics.
func DefaultParams() Params {
	return Params{
		UpdateCooldown:   3_600,
		SettlementWindow: 3_600,
		MaxClaimBps:      5_000,
		ClaimEpoch:       86_400,
		DepositFeeBps:    0,
	}
}

// Engine executes the externally callable operations over the ledger state.
type Engine struct {
	state     *state.Manager
	params    Params
	pauses    nativecommon.PauseView
	authority [20]byte
	metrics   Metrics
}

// NewEngine constructs a state machine with the provided economics.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// SetState wires the engine to the persistence layer. The engine stages a
// view of it per operation; the ownership registry consulted on slot
// mutations runs over the same staged view.
func (e *Engine) SetState(m *state.Manager) { e.state = m }

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetAuthority configures the address allowed to toggle the pause flag.
func (e *Engine) SetAuthority(addr [20]byte) {
	if e == nil {
		return
	}
	e.authority = addr
}

// SetMetrics configures the operation recorder. Passing nil disables it.
func (e *Engine) SetMetrics(m Metrics) {
	if e == nil {
		return
	}
	e.metrics = m
}

func (e *Engine) observe(op string, err error) {
	if e != nil && e.metrics != nil {
		e.metrics.ObserveOperation(op, err)
	}
}

// begin stages a state view and rejects the operation while the game is
// paused, either through the aggregate flag or an external pause view. All
// of the operation's reads and writes go through the staged view; nothing
// persists until Commit.
func (e *Engine) begin() (*state.Staged, *types.Treasury, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	st := e.state.Stage()
	t, err := st.GetTreasury()
	if err != nil {
		return nil, nil, err
	}
	if t.Paused {
		return nil, nil, nativecommon.ErrGamePaused
	}
	return st, t, nil
}

func (e *Engine) loadPlayer(st *state.Staged, owner [20]byte) (*types.Player, error) {
	p, err := st.GetPlayer(owner)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}

func (e *Engine) validateSlot(p *types.Player, slot uint8) error {
	if slot >= types.SlotCount {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	if slot >= p.UnlockedSlots {
		return fmt.Errorf("%w: %d of %d unlocked", ErrSlotLocked, slot, p.UnlockedSlots)
	}
	return nil
}

func refreshUnlockedSlots(p *types.Player) {
	if unlocked := catalog.UnlockedSlots(p.TotalInvested); unlocked > p.UnlockedSlots {
		p.UnlockedSlots = unlocked
	}
}

// CreatePlayer initialises a player record on first interaction.
func (e *Engine) CreatePlayer(owner [20]byte, now uint32) ([]events.Event, error) {
	evs, err := e.createPlayer(owner, now)
	e.observe("createPlayer", err)
	return evs, err
}

func (e *Engine) createPlayer(owner [20]byte, now uint32) ([]events.Event, error) {
	st, t, err := e.begin()
	if err != nil {
		return nil, err
	}
	existing, err := st.GetPlayer(owner)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPlayerExists
	}
	p := types.NewPlayer(owner, now, earnings.Offset(owner, e.params.SettlementWindow), catalog.UnlockedSlots(0))
	t.TotalPlayers++
	t.Version++
	if err := st.PutPlayer(p); err != nil {
		return nil, err
	}
	if err := st.PutTreasury(t); err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	return nil, nil
}

// CreateBusiness purchases a level-0 business into an empty or retired slot.
func (e *Engine) CreateBusiness(owner [20]byte, typ types.BusinessType, amount uint64, slot uint8, now uint32) ([]events.Event, error) {
	evs, err := e.createBusiness(owner, typ, amount, slot, 0, now)
	e.observe("createBusiness", err)
	return evs, err
}

// CreateBusinessWithLevel purchases a business directly at an upgrade level
// for the cumulative price of all levels through it.
func (e *Engine) CreateBusinessWithLevel(owner [20]byte, typ types.BusinessType, amount uint64, slot uint8, level uint8, now uint32) ([]events.Event, error) {
	evs, err := e.createBusiness(owner, typ, amount, slot, level, now)
	e.observe("createBusinessWithLevel", err)
	return evs, err
}

func (e *Engine) createBusiness(owner [20]byte, typ types.BusinessType, amount uint64, slot uint8, level uint8, now uint32) ([]events.Event, error) {
	st, t, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPlayer(st, owner)
	if err != nil {
		return nil, err
	}
	if err := e.validateSlot(p, slot); err != nil {
		return nil, err
	}
	if p.Slots[slot].ActiveBusiness() != nil {
		return nil, fmt.Errorf("%w: %d", ErrSlotOccupied, slot)
	}
	price, err := catalog.CumulativePrice(typ, level)
	if err != nil {
		return nil, err
	}
	entry, err := catalog.Get(typ, level)
	if err != nil {
		return nil, err
	}
	if amount != price {
		return nil, fmt.Errorf("%w: sent %d, catalog price %d", ErrWrongAmount, amount, price)
	}

	if t.NextTokenSerial == 0 {
		t.NextTokenSerial = 1
	}
	serial := t.NextTokenSerial
	t.NextTokenSerial++

	if err := treasury.Deposit(t, amount, e.params.DepositFeeBps); err != nil {
		return nil, err
	}
	t.TotalBusinesses++
	t.TokensMinted++

	b := &types.Business{
		Type:               typ,
		Level:              level,
		DailyRateBps:       entry.DailyRateBps,
		BaseInvested:       amount,
		CumulativeInvested: amount,
		CreatedAt:          now,
		Active:             true,
		TokenSerial:        serial,
	}
	p.Slots[slot].Business = b
	p.TotalInvested += amount
	refreshUnlockedSlots(p)

	token := &types.OwnershipToken{
		Owner:              owner,
		BusinessType:       typ,
		Level:              level,
		RateBps:            entry.DailyRateBps,
		CumulativeInvested: amount,
		MintedAt:           now,
		Serial:             serial,
	}
	reg := ownership.NewRegistry(st)
	if err := reg.Mint(token); err != nil {
		return nil, err
	}
	if err := reg.CreateLink(owner, slot, serial); err != nil {
		return nil, err
	}

	if err := st.PutPlayer(p); err != nil {
		return nil, err
	}
	if err := st.PutTreasury(t); err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}

	return []events.Event{
		events.BusinessCreated{
			Owner:        owner,
			Slot:         slot,
			BusinessType: typ,
			Level:        level,
			Amount:       amount,
			DailyRateBps: entry.DailyRateBps,
			TokenSerial:  serial,
		},
		events.OwnershipTokenMinted{
			Owner:        owner,
			Serial:       serial,
			BusinessType: typ,
			Level:        level,
		},
	}, nil
}

// UpgradeBusiness raises a business one level, paying the next level's
// catalog price.
func (e *Engine) UpgradeBusiness(owner [20]byte, slot uint8, now uint32) ([]events.Event, error) {
	evs, err := e.upgradeBusiness(owner, slot, now)
	e.observe("upgradeBusiness", err)
	return evs, err
}

func (e *Engine) upgradeBusiness(owner [20]byte, slot uint8, _ uint32) ([]events.Event, error) {
	st, t, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPlayer(st, owner)
	if err != nil {
		return nil, err
	}
	if err := e.validateSlot(p, slot); err != nil {
		return nil, err
	}
	b := p.Slots[slot].ActiveBusiness()
	if b == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoBusiness, slot)
	}
	reg := ownership.NewRegistry(st)
	if err := reg.VerifyHolder(b.TokenSerial, owner); err != nil {
		return nil, err
	}
	entry, err := catalog.Get(b.Type, b.Level+1)
	if err != nil {
		return nil, err
	}

	if err := treasury.Deposit(t, entry.Price, e.params.DepositFeeBps); err != nil {
		return nil, err
	}
	b.Level++
	b.DailyRateBps = entry.DailyRateBps
	b.CumulativeInvested += entry.Price
	p.TotalInvested += entry.Price
	refreshUnlockedSlots(p)

	if err := reg.UpdateBusinessMeta(b.TokenSerial, b.Level, b.DailyRateBps, b.CumulativeInvested); err != nil {
		return nil, err
	}
	if err := st.PutPlayer(p); err != nil {
		return nil, err
	}
	if err := st.PutTreasury(t); err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}

	return []events.Event{
		events.BusinessUpgraded{
			Owner:              owner,
			Slot:               slot,
			Level:              b.Level,
			Cost:               entry.Price,
			DailyRateBps:       b.DailyRateBps,
			CumulativeInvested: b.CumulativeInvested,
			TokenSerial:        b.TokenSerial,
		},
	}, nil
}

// SellBusiness settles outstanding earnings, pays the investment minus the
// decaying early-exit fee, burns the ownership token and retires the slot in
// place.
func (e *Engine) SellBusiness(owner [20]byte, slot uint8, now uint32) ([]events.Event, error) {
	evs, err := e.sellBusiness(owner, slot, now)
	e.observe("sellBusiness", err)
	return evs, err
}

func (e *Engine) sellBusiness(owner [20]byte, slot uint8, now uint32) ([]events.Event, error) {
	st, t, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPlayer(st, owner)
	if err != nil {
		return nil, err
	}
	if err := e.validateSlot(p, slot); err != nil {
		return nil, err
	}
	b := p.Slots[slot].ActiveBusiness()
	if b == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoBusiness, slot)
	}
	reg := ownership.NewRegistry(st)
	if err := reg.VerifyHolder(b.TokenSerial, owner); err != nil {
		return nil, err
	}

	// Credit the tail of the current accrual window before the business
	// stops earning.
	settled := earnings.ForceSettle(p, now)

	percent := fees.ComputeFee(b.DaysHeld(now), fees.TierDiscount(p.Slots[slot].Tier))
	feeAmount := fees.SaleFee(b.CumulativeInvested, percent)
	payout := b.CumulativeInvested - feeAmount

	if err := treasury.CollectFee(t, feeAmount); err != nil {
		return nil, err
	}
	if payout > 0 {
		if err := treasury.Withdraw(t, payout, "sale payout"); err != nil {
			return nil, err
		}
	}
	if err := reg.BurnLink(b.TokenSerial); err != nil {
		return nil, err
	}
	t.TokensBurned++
	t.Version++

	p.TotalInvested -= b.CumulativeInvested
	b.Active = false

	if err := st.PutPlayer(p); err != nil {
		return nil, err
	}
	if err := st.PutTreasury(t); err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}

	evs := make([]events.Event, 0, 3)
	if settled > 0 {
		evs = append(evs, events.EarningsUpdated{
			Owner:     owner,
			Delta:     settled,
			Pending:   p.PendingEarnings,
			SettledAt: p.LastSettledAt,
		})
	}
	evs = append(evs,
		events.BusinessSold{
			Owner:       owner,
			Slot:        slot,
			Payout:      payout,
			FeeAmount:   feeAmount,
			FeePercent:  percent,
			DaysHeld:    b.DaysHeld(now),
			TokenSerial: b.TokenSerial,
		},
		events.OwnershipTokenBurned{Owner: owner, Serial: b.TokenSerial},
	)
	return evs, nil
}

// UpdateEarnings settles the target player's accrual window. Any caller may
// invoke it (external batch sweeps do); the per-player cooldown is the only
// gate, so re-running a partially failed batch is safe.
func (e *Engine) UpdateEarnings(target [20]byte, now uint32) ([]events.Event, error) {
	evs, err := e.updateEarnings(target, now)
	e.observe("updateEarnings", err)
	return evs, err
}

func (e *Engine) updateEarnings(target [20]byte, now uint32) ([]events.Event, error) {
	st, _, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPlayer(st, target)
	if err != nil {
		return nil, err
	}
	delta, err := earnings.Settle(p, now, e.params.UpdateCooldown)
	if err != nil {
		return nil, err
	}
	if err := st.PutPlayer(p); err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	return []events.Event{
		events.EarningsUpdated{
			Owner:     target,
			Delta:     delta,
			Pending:   p.PendingEarnings,
			SettledAt: p.LastSettledAt,
		},
	}, nil
}

// ClaimEarnings pays out pending earnings from the pooled reserve, clamped
// to the anti-drain bound.
func (e *Engine) ClaimEarnings(owner [20]byte, now uint32) ([]events.Event, error) {
	evs, err := e.claimEarnings(owner, now)
	e.observe("claimEarnings", err)
	return evs, err
}

func (e *Engine) claimEarnings(owner [20]byte, now uint32) ([]events.Event, error) {
	st, t, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPlayer(st, owner)
	if err != nil {
		return nil, err
	}
	if p.PendingEarnings == 0 {
		return nil, earnings.ErrNoEarningsToClaim
	}
	earnings.RollClaimEpoch(p, now, e.params.ClaimEpoch)
	paid, clamped, err := earnings.ClampClaim(p, e.params.MaxClaimBps)
	if err != nil {
		return nil, err
	}
	if err := treasury.Withdraw(t, paid, "earnings claim"); err != nil {
		if errors.Is(err, treasury.ErrInsufficientReserve) {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientTreasury, err)
		}
		return nil, err
	}
	p.PendingEarnings -= paid
	p.ClaimedTotal += paid
	p.EpochClaimed += paid

	if err := st.PutPlayer(p); err != nil {
		return nil, err
	}
	if err := st.PutTreasury(t); err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	return []events.Event{
		events.EarningsClaimed{
			Owner:     owner,
			Paid:      paid,
			Remaining: p.PendingEarnings,
			Clamped:   clamped,
		},
	}, nil
}

// SetPaused toggles the aggregate pause flag. Only the configured authority
// may call it; it is the one mutation allowed while paused, otherwise the
// flag could never be cleared.
func (e *Engine) SetPaused(caller [20]byte, paused bool) error {
	var err error
	defer func() { e.observe("setPaused", err) }()
	if e == nil || e.state == nil {
		err = errNilState
		return err
	}
	if caller != e.authority {
		err = ErrUnauthorized
		return err
	}
	t, terr := e.state.GetTreasury()
	if terr != nil {
		err = terr
		return err
	}
	treasury.SetPaused(t, paused)
	err = e.state.PutTreasury(t)
	return err
}
