package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"bizchain/core/codec"
	"bizchain/core/types"
	"bizchain/native/ownership"
	"bizchain/storage"
)

// Manager persists the fixed-width ledger records in the backing key-value
// store. Keys are keccak256 of a prefixed identifier; record payloads are the
// codec's fixed-offset byte layouts, and the variable-length owner->serials
// index is RLP encoded.
type Manager struct {
	db storage.Database
	kv kvStore
}

// kvStore is the mutation surface the record accessors run against: the
// database directly, or a staged overlay.
type kvStore interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, kv: db}
}

// Staged is a manager view whose writes accumulate in memory. Reads observe
// the staged writes first and fall through to the underlying database, so a
// multi-record transition can read its own earlier mutations before anything
// is persisted. Commit flushes every staged write in one database batch;
// dropping the view without committing discards them all.
type Staged struct {
	Manager
	ov *overlay
}

// Stage opens a staged view over the manager's current contents.
func (m *Manager) Stage() *Staged {
	ov := &overlay{base: m.kv, index: make(map[string]int)}
	return &Staged{Manager: Manager{db: m.db, kv: ov}, ov: ov}
}

// Commit applies the staged writes atomically, in the order they were first
// made.
func (s *Staged) Commit() error {
	if len(s.ov.writes) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	for _, w := range s.ov.writes {
		var err error
		if w.delete {
			err = batch.Delete([]byte(w.key))
		} else {
			err = batch.Put([]byte(w.key), w.value)
		}
		if err != nil {
			return err
		}
	}
	return batch.Write()
}

type stagedWrite struct {
	key    string
	value  []byte
	delete bool
}

type overlay struct {
	base   kvStore
	writes []stagedWrite
	index  map[string]int
}

func (o *overlay) Get(key []byte) ([]byte, error) {
	if i, ok := o.index[string(key)]; ok {
		w := o.writes[i]
		if w.delete {
			return nil, storage.ErrKeyNotFound
		}
		return append([]byte(nil), w.value...), nil
	}
	return o.base.Get(key)
}

func (o *overlay) Put(key []byte, value []byte) error {
	o.record(key, append([]byte(nil), value...), false)
	return nil
}

func (o *overlay) Delete(key []byte) error {
	o.record(key, nil, true)
	return nil
}

func (o *overlay) record(key []byte, value []byte, del bool) {
	k := string(key)
	if i, ok := o.index[k]; ok {
		o.writes[i] = stagedWrite{key: k, value: value, delete: del}
		return
	}
	o.index[k] = len(o.writes)
	o.writes = append(o.writes, stagedWrite{key: k, value: value, delete: del})
}

var (
	playerPrefix     = []byte("player:")
	tokenPrefix      = []byte("token:")
	linkPrefix       = []byte("link:")
	slotLinkPrefix   = []byte("slotlink:")
	ownerIndexPrefix = []byte("ownertokens:")
	treasuryKey      = ethcrypto.Keccak256([]byte("treasury"))
)

func prefixedKey(prefix, id []byte) []byte {
	buf := make([]byte, len(prefix)+len(id))
	copy(buf, prefix)
	copy(buf[len(prefix):], id)
	return ethcrypto.Keccak256(buf)
}

func serialBytes(serial uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, serial)
	return buf
}

func playerKey(owner [20]byte) []byte {
	return prefixedKey(playerPrefix, owner[:])
}

func tokenKey(serial uint64) []byte {
	return prefixedKey(tokenPrefix, serialBytes(serial))
}

func linkKey(serial uint64) []byte {
	return prefixedKey(linkPrefix, serialBytes(serial))
}

func slotLinkKey(owner [20]byte, slot uint8) []byte {
	id := make([]byte, 21)
	copy(id, owner[:])
	id[20] = slot
	return prefixedKey(slotLinkPrefix, id)
}

func ownerIndexKey(owner [20]byte) []byte {
	return prefixedKey(ownerIndexPrefix, owner[:])
}

func (m *Manager) get(key []byte) ([]byte, error) {
	data, err := m.kv.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	return data, err
}

// GetPlayer loads a player record. A nil player with nil error means the
// record does not exist.
func (m *Manager) GetPlayer(owner [20]byte) (*types.Player, error) {
	data, err := m.get(playerKey(owner))
	if err != nil || data == nil {
		return nil, err
	}
	return codec.DecodePlayer(data)
}

// PutPlayer persists a player record.
func (m *Manager) PutPlayer(p *types.Player) error {
	encoded, err := codec.EncodePlayer(p)
	if err != nil {
		return err
	}
	return m.kv.Put(playerKey(p.Owner), encoded)
}

// GetTreasury loads the global aggregate, defaulting to a zero-value
// aggregate before genesis has written one.
func (m *Manager) GetTreasury() (*types.Treasury, error) {
	data, err := m.get(treasuryKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return &types.Treasury{}, nil
	}
	return codec.DecodeTreasury(data)
}

// PutTreasury persists the global aggregate.
func (m *Manager) PutTreasury(t *types.Treasury) error {
	encoded, err := codec.EncodeTreasury(t)
	if err != nil {
		return err
	}
	return m.kv.Put(treasuryKey, encoded)
}

// GetToken loads an ownership token record by serial. A nil token with nil
// error means the serial was never minted.
func (m *Manager) GetToken(serial uint64) (*types.OwnershipToken, error) {
	data, err := m.get(tokenKey(serial))
	if err != nil || data == nil {
		return nil, err
	}
	return codec.DecodeToken(data)
}

// PutToken persists an ownership token record.
func (m *Manager) PutToken(t *types.OwnershipToken) error {
	encoded, err := codec.EncodeToken(t)
	if err != nil {
		return err
	}
	return m.kv.Put(tokenKey(t.Serial), encoded)
}

// GetLink loads the slot link for a token serial.
func (m *Manager) GetLink(serial uint64) (*ownership.Link, error) {
	data, err := m.get(linkKey(serial))
	if err != nil || data == nil {
		return nil, err
	}
	link := new(ownership.Link)
	if err := rlp.DecodeBytes(data, link); err != nil {
		return nil, fmt.Errorf("state: decode link %d: %w", serial, err)
	}
	return link, nil
}

// PutLink persists a slot link and its reverse (owner, slot) lookup.
func (m *Manager) PutLink(serial uint64, link *ownership.Link) error {
	encoded, err := rlp.EncodeToBytes(link)
	if err != nil {
		return err
	}
	if err := m.kv.Put(linkKey(serial), encoded); err != nil {
		return err
	}
	return m.kv.Put(slotLinkKey(link.Owner, link.Slot), serialBytes(serial))
}

// DeleteLink removes a slot link and its reverse lookup.
func (m *Manager) DeleteLink(serial uint64) error {
	link, err := m.GetLink(serial)
	if err != nil {
		return err
	}
	if link == nil {
		return nil
	}
	if err := m.kv.Delete(slotLinkKey(link.Owner, link.Slot)); err != nil {
		return err
	}
	return m.kv.Delete(linkKey(serial))
}

// GetSlotLink returns the token serial linked to an (owner, slot) pair.
func (m *Manager) GetSlotLink(owner [20]byte, slot uint8) (uint64, bool, error) {
	data, err := m.get(slotLinkKey(owner, slot))
	if err != nil || data == nil {
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("%w: slot link payload length %d", codec.ErrCorruptRecord, len(data))
	}
	return binary.BigEndian.Uint64(data), true, nil
}

// OwnerTokens returns the serials currently held by a wallet, in insertion
// order.
func (m *Manager) OwnerTokens(owner [20]byte) ([]uint64, error) {
	data, err := m.get(ownerIndexKey(owner))
	if err != nil || data == nil {
		return nil, err
	}
	var serials []uint64
	if err := rlp.DecodeBytes(data, &serials); err != nil {
		return nil, fmt.Errorf("state: decode owner token index: %w", err)
	}
	return serials, nil
}

// AppendOwnerToken records a serial in the wallet index.
func (m *Manager) AppendOwnerToken(owner [20]byte, serial uint64) error {
	serials, err := m.OwnerTokens(owner)
	if err != nil {
		return err
	}
	for _, s := range serials {
		if s == serial {
			return nil
		}
	}
	serials = append(serials, serial)
	encoded, err := rlp.EncodeToBytes(serials)
	if err != nil {
		return err
	}
	return m.kv.Put(ownerIndexKey(owner), encoded)
}

// RemoveOwnerToken drops a serial from the wallet index.
func (m *Manager) RemoveOwnerToken(owner [20]byte, serial uint64) error {
	serials, err := m.OwnerTokens(owner)
	if err != nil {
		return err
	}
	filtered := serials[:0]
	for _, s := range serials {
		if s != serial {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == len(serials) {
		return nil
	}
	encoded, err := rlp.EncodeToBytes(filtered)
	if err != nil {
		return err
	}
	return m.kv.Put(ownerIndexKey(owner), encoded)
}
