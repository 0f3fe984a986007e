// Package ownership manages the link between externally held ownership
// tokens and business slots. Tokens move between wallets independently of
// slot state, so every mutating slot operation re-verifies the current
// holder at call time, and Reconcile reports the drift between what wallets
// hold and what slots reference.
package ownership

import (
	"errors"
	"fmt"
	"sort"

	"bizchain/core/types"
	nativecommon "bizchain/native/common"
)

const moduleName = "ownership"

var (
	ErrNilState       = errors.New("ownership registry: state not configured")
	ErrTokenNotFound  = errors.New("ownership registry: token not found")
	ErrDuplicateToken = errors.New("ownership registry: token already linked")
	ErrSlotOccupied   = errors.New("ownership registry: slot already linked")
	ErrAlreadyBurned  = errors.New("ownership registry: token already burned")
	// ErrHolderMismatch means the claimed player does not hold the token.
	// Callers treat it as a potential-attack signal.
	ErrHolderMismatch = errors.New("ownership registry: holder mismatch")
)

// Link binds a token serial to the slot it credentials.
type Link struct {
	Owner [20]byte
	Slot  uint8
}

// SlotLink is a link together with its serial, the reconcile input shape.
type SlotLink struct {
	Owner  [20]byte
	Slot   uint8
	Serial uint64
}

// HolderClaim pairs a token serial with the player claiming to hold it.
type HolderClaim struct {
	Serial  uint64
	Claimed [20]byte
}

type registryState interface {
	GetToken(serial uint64) (*types.OwnershipToken, error)
	PutToken(t *types.OwnershipToken) error
	GetLink(serial uint64) (*Link, error)
	PutLink(serial uint64, link *Link) error
	DeleteLink(serial uint64) error
	GetSlotLink(owner [20]byte, slot uint8) (uint64, bool, error)
	OwnerTokens(owner [20]byte) ([]uint64, error)
	AppendOwnerToken(owner [20]byte, serial uint64) error
	RemoveOwnerToken(owner [20]byte, serial uint64) error
}

// Registry persists ownership tokens and their slot links.
type Registry struct {
	st     registryState
	pauses nativecommon.PauseView
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st}
}

func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// Mint persists a fresh token record and indexes it under the holder's
// wallet. The serial must be unused.
func (r *Registry) Mint(token *types.OwnershipToken) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if token == nil {
		return ErrTokenNotFound
	}
	existing, err := r.st.GetToken(token.Serial)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: serial %d", ErrDuplicateToken, token.Serial)
	}
	if err := r.st.PutToken(token); err != nil {
		return err
	}
	return r.st.AppendOwnerToken(token.Owner, token.Serial)
}

// CreateLink binds a token to an (owner, slot) pair. The token must be held
// by the owner, unburned, and not already linked anywhere; the slot must be
// free.
func (r *Registry) CreateLink(owner [20]byte, slot uint8, serial uint64) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.VerifyHolder(serial, owner); err != nil {
		return err
	}
	existing, err := r.st.GetLink(serial)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: serial %d", ErrDuplicateToken, serial)
	}
	if _, occupied, err := r.st.GetSlotLink(owner, slot); err != nil {
		return err
	} else if occupied {
		return fmt.Errorf("%w: slot %d", ErrSlotOccupied, slot)
	}
	return r.st.PutLink(serial, &Link{Owner: owner, Slot: slot})
}

// BurnLink irreversibly burns a token and detaches it from its slot. It
// coincides with slot deactivation in the state machine.
func (r *Registry) BurnLink(serial uint64) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	token, err := r.st.GetToken(serial)
	if err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("%w: serial %d", ErrTokenNotFound, serial)
	}
	if token.Burned {
		return fmt.Errorf("%w: serial %d", ErrAlreadyBurned, serial)
	}
	token.Burned = true
	if err := r.st.PutToken(token); err != nil {
		return err
	}
	if err := r.st.DeleteLink(serial); err != nil {
		return err
	}
	return r.st.RemoveOwnerToken(token.Owner, serial)
}

// Transfer moves a token to a new wallet without touching its slot link,
// modelling the external NFT transfer the ledger cannot prevent. The
// resulting drift is what VerifyHolder and Reconcile exist for.
func (r *Registry) Transfer(serial uint64, newOwner [20]byte) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	token, err := r.st.GetToken(serial)
	if err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("%w: serial %d", ErrTokenNotFound, serial)
	}
	if token.Burned {
		return fmt.Errorf("%w: serial %d", ErrAlreadyBurned, serial)
	}
	if token.Owner == newOwner {
		return nil
	}
	if err := r.st.RemoveOwnerToken(token.Owner, serial); err != nil {
		return err
	}
	token.Owner = newOwner
	if err := r.st.PutToken(token); err != nil {
		return err
	}
	return r.st.AppendOwnerToken(newOwner, serial)
}

// UpdateBusinessMeta refreshes the token's mirror of its business after an
// upgrade.
func (r *Registry) UpdateBusinessMeta(serial uint64, level uint8, rateBps uint16, cumulativeInvested uint64) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	token, err := r.st.GetToken(serial)
	if err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("%w: serial %d", ErrTokenNotFound, serial)
	}
	if token.Burned {
		return fmt.Errorf("%w: serial %d", ErrAlreadyBurned, serial)
	}
	token.Level = level
	token.RateBps = rateBps
	token.CumulativeInvested = cumulativeInvested
	return r.st.PutToken(token)
}

// VerifyHolder checks that the claimed player currently holds the unburned
// token.
func (r *Registry) VerifyHolder(serial uint64, claimed [20]byte) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	token, err := r.st.GetToken(serial)
	if err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("%w: serial %d", ErrTokenNotFound, serial)
	}
	if token.Burned {
		return fmt.Errorf("%w: serial %d", ErrAlreadyBurned, serial)
	}
	if token.Owner != claimed {
		return fmt.Errorf("%w: serial %d", ErrHolderMismatch, serial)
	}
	return nil
}

// VerifyHolderBatch resolves many holder claims in one pass, returning a
// pass/fail result per entry in input order.
func (r *Registry) VerifyHolderBatch(claims []HolderClaim) []error {
	results := make([]error, len(claims))
	for i, claim := range claims {
		results[i] = r.VerifyHolder(claim.Serial, claim.Claimed)
	}
	return results
}

// GetToken exposes a token record for read paths.
func (r *Registry) GetToken(serial uint64) (*types.OwnershipToken, error) {
	if r == nil || r.st == nil {
		return nil, ErrNilState
	}
	token, err := r.st.GetToken(serial)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: serial %d", ErrTokenNotFound, serial)
	}
	return token, nil
}

// TokensByOwner returns the wallet snapshot used as reconcile input.
func (r *Registry) TokensByOwner(owner [20]byte) ([]uint64, error) {
	if r == nil || r.st == nil {
		return nil, ErrNilState
	}
	return r.st.OwnerTokens(owner)
}

// Reconcile is the read-only drift report between a wallet snapshot and the
// slot links claimed against it: serials held in-wallet but linked to no
// slot are orphaned (need re-sync), links whose serial is absent from the
// wallet are ghosts (slot should clear). Output is sorted for determinism;
// remediation is the caller's decision.
func Reconcile(walletSerials []uint64, links []SlotLink) (orphaned []uint64, ghosts []SlotLink) {
	linked := make(map[uint64]struct{}, len(links))
	for _, l := range links {
		linked[l.Serial] = struct{}{}
	}
	held := make(map[uint64]struct{}, len(walletSerials))
	for _, s := range walletSerials {
		held[s] = struct{}{}
	}
	for s := range held {
		if _, ok := linked[s]; !ok {
			orphaned = append(orphaned, s)
		}
	}
	for _, l := range links {
		if _, ok := held[l.Serial]; !ok {
			ghosts = append(ghosts, l)
		}
	}
	sort.Slice(orphaned, func(i, j int) bool { return orphaned[i] < orphaned[j] })
	sort.Slice(ghosts, func(i, j int) bool { return ghosts[i].Serial < ghosts[j].Serial })
	return orphaned, ghosts
}
