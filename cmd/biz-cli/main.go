package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"bizchain/config"
	"bizchain/core/events"
	"bizchain/core/state"
	"bizchain/core/types"
	"bizchain/crypto"
	"bizchain/native/business"
	"bizchain/native/catalog"
	"bizchain/native/ownership"
	"bizchain/storage"
)

const usage = `Usage: biz-cli [-config path] <command> [args]

Commands:
  create-player <address>
  create        <address> <type> <slot> <amount> [level]
  upgrade       <address> <slot>
  sell          <address> <slot>
  update        <address>
  claim         <address>
  info          <address>
  tokens        <address>
  verify        <serial> <address>
  treasury
  catalog
  pause
  resume

The CLI operates directly on the data directory and must not run while bizd
holds the database lock.`

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fatalf("load config: %v", err)
	}
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		fatalf("open database: %v", err)
	}
	defer db.Close()

	manager := state.NewManager(db)
	registry := ownership.NewRegistry(manager)
	engine := business.NewEngine(engineParams(cfg))
	engine.SetState(manager)
	authority, hasAuthority, err := cfg.Authority()
	if err != nil {
		fatalf("decode authority: %v", err)
	}
	if hasAuthority {
		engine.SetAuthority(authority)
	}

	now := uint32(time.Now().Unix())

	switch args[0] {
	case "create-player":
		owner := requireAddr(args, 1)
		emit(engine.CreatePlayer(owner, now))
	case "create":
		owner := requireAddr(args, 1)
		typ := requireType(args, 2)
		slot := requireUint8(args, 3, "slot")
		amount := requireUint64(args, 4, "amount")
		if len(args) > 5 {
			level := requireUint8(args, 5, "level")
			emit(engine.CreateBusinessWithLevel(owner, typ, amount, slot, level, now))
		} else {
			emit(engine.CreateBusiness(owner, typ, amount, slot, now))
		}
	case "upgrade":
		emit(engine.UpgradeBusiness(requireAddr(args, 1), requireUint8(args, 2, "slot"), now))
	case "sell":
		emit(engine.SellBusiness(requireAddr(args, 1), requireUint8(args, 2, "slot"), now))
	case "update":
		emit(engine.UpdateEarnings(requireAddr(args, 1), now))
	case "claim":
		emit(engine.ClaimEarnings(requireAddr(args, 1), now))
	case "info":
		printPlayer(manager, requireAddr(args, 1), now)
	case "tokens":
		printTokens(registry, requireAddr(args, 1))
	case "verify":
		serial := requireUint64(args, 1, "serial")
		owner := requireAddr(args, 2)
		if err := registry.VerifyHolder(serial, owner); err != nil {
			fatalf("verify: %v", err)
		}
		fmt.Printf("token %d held by %s\n", serial, formatAddr(owner))
	case "treasury":
		printTreasury(manager)
	case "catalog":
		printCatalog()
	case "pause", "resume":
		if !hasAuthority {
			fatalf("%s requires AuthorityAddress in the config", args[0])
		}
		if err := engine.SetPaused(authority, args[0] == "pause"); err != nil {
			fatalf("%s: %v", args[0], err)
		}
		fmt.Printf("game %sd\n", args[0])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
}

func engineParams(cfg *config.Config) business.Params {
	params := business.DefaultParams()
	if cfg.Economics.UpdateCooldownSeconds > 0 {
		params.UpdateCooldown = cfg.Economics.UpdateCooldownSeconds
	}
	params.SettlementWindow = cfg.Economics.SettlementWindowSeconds
	if cfg.Economics.MaxClaimBps > 0 {
		params.MaxClaimBps = cfg.Economics.MaxClaimBps
	}
	if cfg.Economics.ClaimEpochSeconds > 0 {
		params.ClaimEpoch = cfg.Economics.ClaimEpochSeconds
	}
	params.DepositFeeBps = cfg.Economics.DepositFeeBps
	return params
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "biz-cli: "+format+"\n", args...)
	os.Exit(1)
}

func requireArg(args []string, index int, name string) string {
	if index >= len(args) {
		fatalf("missing %s argument\n\n%s", name, usage)
	}
	return args[index]
}

func requireAddr(args []string, index int) [20]byte {
	raw := requireArg(args, index, "address")
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		fatalf("address %q: %v", raw, err)
	}
	var out [20]byte
	copy(out[:], addr.Bytes())
	return out
}

func requireType(args []string, index int) types.BusinessType {
	raw := requireArg(args, index, "type")
	for typ := types.BusinessType(0); typ < types.BusinessTypeCount; typ++ {
		if strings.EqualFold(typ.String(), raw) {
			return typ
		}
	}
	n, err := strconv.ParseUint(raw, 10, 8)
	if err != nil || !types.BusinessType(n).Valid() {
		fatalf("unknown business type %q", raw)
	}
	return types.BusinessType(n)
}

func requireUint8(args []string, index int, name string) uint8 {
	raw := requireArg(args, index, name)
	n, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		fatalf("%s %q: %v", name, raw, err)
	}
	return uint8(n)
}

func requireUint64(args []string, index int, name string) uint64 {
	raw := requireArg(args, index, name)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		fatalf("%s %q: %v", name, raw, err)
	}
	return n
}

func formatAddr(owner [20]byte) string {
	return crypto.MustNewAddress(crypto.BizPrefix, owner[:]).String()
}

type eventPayload interface {
	events.Event
	Event() *types.Event
}

func emit(evs []events.Event, err error) {
	if err != nil {
		fatalf("%v", err)
	}
	if len(evs) == 0 {
		fmt.Println("ok")
		return
	}
	for _, ev := range evs {
		payload, ok := ev.(eventPayload)
		if !ok {
			fmt.Println(ev.EventType())
			continue
		}
		rendered := payload.Event()
		keys := make([]string, 0, len(rendered.Attributes))
		for k := range rendered.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Printf("%s", rendered.Type)
		for _, k := range keys {
			fmt.Printf(" %s=%s", k, rendered.Attributes[k])
		}
		fmt.Println()
	}
}

func printPlayer(manager *state.Manager, owner [20]byte, now uint32) {
	p, err := manager.GetPlayer(owner)
	if err != nil {
		fatalf("load player: %v", err)
	}
	if p == nil {
		fatalf("player %s not found", formatAddr(owner))
	}
	fmt.Printf("player %s\n", formatAddr(owner))
	fmt.Printf("  totalInvested    %d\n", p.TotalInvested)
	fmt.Printf("  pendingEarnings  %d\n", p.PendingEarnings)
	fmt.Printf("  claimedTotal     %d\n", p.ClaimedTotal)
	fmt.Printf("  lastSettledAt    %d\n", p.LastSettledAt)
	fmt.Printf("  lastClaimedAt    %d\n", p.LastClaimedAt)
	fmt.Printf("  epochClaimed     %d\n", p.EpochClaimed)
	fmt.Printf("  settlementOffset %d\n", p.SettlementOffset)
	fmt.Printf("  unlockedSlots    %d\n", p.UnlockedSlots)
	for i := range p.Slots {
		slot := &p.Slots[i]
		if !slot.Occupied() {
			continue
		}
		b := slot.Business
		status := "retired"
		if b.Active {
			status = "active"
		}
		fmt.Printf("  slot %d (%s, %s): %s level %d rate %dbps invested %d serial %d daysHeld %d\n",
			i, slot.Tier, status, b.Type, b.Level, b.DailyRateBps, b.CumulativeInvested, b.TokenSerial, b.DaysHeld(now))
	}
}

func printTokens(registry *ownership.Registry, owner [20]byte) {
	serials, err := registry.TokensByOwner(owner)
	if err != nil {
		fatalf("load tokens: %v", err)
	}
	if len(serials) == 0 {
		fmt.Println("no tokens")
		return
	}
	for _, serial := range serials {
		token, err := registry.GetToken(serial)
		if err != nil {
			fatalf("load token %d: %v", serial, err)
		}
		fmt.Printf("token %d: %s level %d rate %dbps invested %d mintedAt %d\n",
			token.Serial, token.BusinessType, token.Level, token.RateBps, token.CumulativeInvested, token.MintedAt)
	}
}

func printTreasury(manager *state.Manager) {
	t, err := manager.GetTreasury()
	if err != nil {
		fatalf("load treasury: %v", err)
	}
	fmt.Printf("version            %d\n", t.Version)
	fmt.Printf("paused             %v\n", t.Paused)
	fmt.Printf("totalPlayers       %d\n", t.TotalPlayers)
	fmt.Printf("totalBusinesses    %d\n", t.TotalBusinesses)
	fmt.Printf("totalInvested      %d\n", t.TotalInvested)
	fmt.Printf("totalWithdrawn     %d\n", t.TotalWithdrawn)
	fmt.Printf("totalFeesCollected %d\n", t.TotalFeesCollected)
	fmt.Printf("reserve            %d\n", t.Reserve)
	fmt.Printf("protocolFees       %d\n", t.ProtocolFees)
	fmt.Printf("tokensMinted       %d\n", t.TokensMinted)
	fmt.Printf("tokensBurned       %d\n", t.TokensBurned)
	fmt.Printf("nextTokenSerial    %d\n", t.NextTokenSerial)
}

func printCatalog() {
	for _, rec := range catalog.Records() {
		fmt.Printf("%-12s level %d price %7d rate %dbps\n", rec.Type, rec.Level, rec.Price, rec.DailyRateBps)
	}
}
