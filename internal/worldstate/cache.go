// Package worldstate implements the read-through/write-behind cache over
// the external key/value backing store, with a revertable change log.
package worldstate

import (
	"encoding/binary"
	"encoding/gob"
	"bytes"

	"github.com/ledgercore/txruntime/internal/protocol"
)

// changeRecord is one entry in the revert log: the prior raw value for a
// key, recorded on every write to it.
type changeRecord struct {
	key      entryKey
	hadPrior bool
	prior    []byte
}

// Checkpoint is an opaque position in the change log. Checkpoint(0) is the
// state at cache construction or at the last Commit.
type Checkpoint int

// Cache is the WorldStateCache: a dirty map over Backing plus a linear
// change log supporting checkpoint/revert_to, per spec §4.C. It also
// tracks, per key, whether this is the first access in the current
// transaction (cold) or a repeat (warm), so the caller can charge gas
// accordingly; the cold/warm set is reset per transaction via
// BeginTransaction.
type Cache struct {
	backing Backing
	dirty   map[entryKey][]byte // latest raw value; nil means "deleted/absent"
	present map[entryKey]bool   // whether dirty[k] should be considered authoritative
	log     []changeRecord
	touched map[entryKey]bool // warm set for the current transaction
}

// NewCache wraps a backing store with an empty dirty map.
func NewCache(backing Backing) *Cache {
	return &Cache{
		backing: backing,
		dirty:   make(map[entryKey][]byte),
		present: make(map[entryKey]bool),
		touched: make(map[entryKey]bool),
	}
}

// BeginTransaction clears the cold/warm tracking set. Call once per
// transaction; the dirty map and change log persist across transactions
// within a block.
func (c *Cache) BeginTransaction() {
	c.touched = make(map[entryKey]bool)
}

// Checkpoint returns a position in the change log that Revert can later
// roll back to.
func (c *Cache) Checkpoint() Checkpoint {
	return Checkpoint(len(c.log))
}

// Revert undoes every change recorded since cp, restoring prior values.
// Gas already consumed is untouched; this only affects state.
func (c *Cache) Revert(cp Checkpoint) {
	for i := len(c.log) - 1; i >= int(cp); i-- {
		rec := c.log[i]
		if rec.hadPrior {
			c.dirty[rec.key] = rec.prior
			c.present[rec.key] = true
		} else {
			delete(c.dirty, rec.key)
			delete(c.present, rec.key)
		}
	}
	c.log = c.log[:cp]
}

// rawGet reads the raw bytes for an entry, falling through to the backing
// store on a cache miss, and reports whether this access is cold (first
// touch this transaction).
func (c *Cache) rawGet(addr protocol.Address, key []byte) (value []byte, present bool, cold bool, err error) {
	ek := mkKey(addr, key)
	cold = !c.touched[ek]
	c.touched[ek] = true

	if c.present[ek] {
		return c.dirty[ek], c.dirty[ek] != nil, cold, nil
	}
	v, ok, err := c.backing.Get(addr, key)
	if err != nil {
		return nil, false, cold, err
	}
	return v, ok, cold, nil
}

// rawSet records a new raw value, pushing a change-log entry so it can be
// reverted, and reports whether this access is cold.
func (c *Cache) rawSet(addr protocol.Address, key []byte, value []byte) (cold bool) {
	ek := mkKey(addr, key)
	cold = !c.touched[ek]
	c.touched[ek] = true

	var prior []byte
	var hadPrior bool
	if c.present[ek] {
		prior, hadPrior = c.dirty[ek], true
	} else {
		v, ok, _ := c.backing.Get(addr, key)
		prior, hadPrior = v, ok
	}
	c.log = append(c.log, changeRecord{key: ek, hadPrior: hadPrior, prior: prior})
	c.dirty[ek] = value
	c.present[ek] = true
	return cold
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeU64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// GetBalance returns an account's balance (0 if the account has never
// been touched) and whether this is a cold read.
func (c *Cache) GetBalance(addr protocol.Address) (uint64, bool, error) {
	v, _, cold, err := c.rawGet(addr, []byte{nsBalance})
	if err != nil {
		return 0, cold, err
	}
	return decodeU64(v), cold, nil
}

// SetBalance writes an account's balance.
func (c *Cache) SetBalance(addr protocol.Address, balance uint64) bool {
	return c.rawSet(addr, []byte{nsBalance}, encodeU64(balance))
}

// GetNonce returns an account's nonce.
func (c *Cache) GetNonce(addr protocol.Address) (uint64, bool, error) {
	v, _, cold, err := c.rawGet(addr, []byte{nsNonce})
	if err != nil {
		return 0, cold, err
	}
	return decodeU64(v), cold, nil
}

// SetNonce writes an account's nonce.
func (c *Cache) SetNonce(addr protocol.Address, nonce uint64) bool {
	return c.rawSet(addr, []byte{nsNonce}, encodeU64(nonce))
}

// GetCode returns a contract's code and CBI version, if deployed.
func (c *Cache) GetCode(addr protocol.Address) (code []byte, cbiVersion uint32, hasCode bool, cold bool, err error) {
	cv, _, cold1, err := c.rawGet(addr, []byte{nsCode})
	if err != nil {
		return nil, 0, false, cold1, err
	}
	if cv == nil {
		return nil, 0, false, cold1, nil
	}
	cbiRaw, _, cold2, err := c.rawGet(addr, []byte{nsCBI})
	if err != nil {
		return nil, 0, false, cold1 || cold2, err
	}
	return cv, uint32(decodeU64(cbiRaw)), true, cold1 || cold2, nil
}

// SetCode writes a contract's code and CBI version. Call only once per
// address; CommandExecutor enforces the immutability invariant.
func (c *Cache) SetCode(addr protocol.Address, code []byte, cbiVersion uint32) bool {
	cold1 := c.rawSet(addr, []byte{nsCode}, code)
	cold2 := c.rawSet(addr, []byte{nsCBI}, encodeU64(uint64(cbiVersion)))
	return cold1 || cold2
}

// GetStorage reads one contract storage cell.
func (c *Cache) GetStorage(addr protocol.Address, key []byte) ([]byte, bool, bool, error) {
	v, ok, cold, err := c.rawGet(addr, storageNSKey(key))
	return v, ok, cold, err
}

// SetStorage writes one contract storage cell.
func (c *Cache) SetStorage(addr protocol.Address, key, value []byte) bool {
	return c.rawSet(addr, storageNSKey(key), value)
}

func init() {
	gob.Register(Pool{})
	gob.Register(Deposit{})
}

func encodeGob(v interface{}) []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(v)
	return buf.Bytes()
}

func decodeGobPool(b []byte) (*Pool, bool) {
	if b == nil {
		return nil, false
	}
	var p Pool
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&p); err != nil {
		return nil, false
	}
	return &p, true
}

func decodeGobDeposit(b []byte) (*Deposit, bool) {
	if b == nil {
		return nil, false
	}
	var d Deposit
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&d); err != nil {
		return nil, false
	}
	return &d, true
}

// GetPool reads a pool keyed by its operator address.
func (c *Cache) GetPool(operator protocol.Address) (*Pool, bool, bool, error) {
	v, ok, cold, err := c.rawGet(operator, []byte{nsPoolMeta})
	if err != nil || !ok {
		return nil, false, cold, err
	}
	p, ok := decodeGobPool(v)
	return p, ok, cold, nil
}

// SetPool writes a pool's metadata (operator, commission rate, stakes).
func (c *Cache) SetPool(operator protocol.Address, p *Pool) bool {
	return c.rawSet(operator, []byte{nsPoolMeta}, encodeGob(*p))
}

// DeletePool removes a pool's metadata entirely.
func (c *Cache) DeletePool(operator protocol.Address) bool {
	return c.rawSet(operator, []byte{nsPoolMeta}, nil)
}

// GetDeposit reads a deposit keyed by (owner, pool).
func (c *Cache) GetDeposit(owner, pool protocol.Address) (*Deposit, bool, bool, error) {
	v, ok, cold, err := c.rawGet(owner, depositNSKey(pool))
	if err != nil || !ok {
		return nil, false, cold, err
	}
	d, ok := decodeGobDeposit(v)
	return d, ok, cold, nil
}

// SetDeposit writes a deposit's balance/flags.
func (c *Cache) SetDeposit(owner, pool protocol.Address, d *Deposit) bool {
	return c.rawSet(owner, depositNSKey(pool), encodeGob(*d))
}

// GetEpoch returns the current epoch counter (0 before the first
// NextEpoch).
func (c *Cache) GetEpoch() (uint64, error) {
	v, _, _, err := c.rawGet(protocolAddress, []byte{nsEpoch})
	if err != nil {
		return 0, err
	}
	return decodeU64(v), nil
}

// SetEpoch writes the epoch counter.
func (c *Cache) SetEpoch(epoch uint64) {
	c.rawSet(protocolAddress, []byte{nsEpoch}, encodeU64(epoch))
}

// GetValidatorSet returns the currently active validator set, in the order
// NextEpoch last wrote it.
func (c *Cache) GetValidatorSet() ([]protocol.Address, error) {
	v, ok, _, err := c.rawGet(protocolAddress, []byte{nsValidatorSet})
	if err != nil || !ok {
		return nil, err
	}
	var addrs []protocol.Address
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&addrs); err != nil {
		return nil, nil
	}
	return addrs, nil
}

// SetValidatorSet writes the active validator set.
func (c *Cache) SetValidatorSet(addrs []protocol.Address) {
	c.rawSet(protocolAddress, []byte{nsValidatorSet}, encodeGob(addrs))
}

// NewPool/NewAccount are re-exported constructors for callers outside this
// package (internal/command) that need to build fresh values.
func NewPool(operator protocol.Address, rate uint8) *Pool { return newPool(operator, rate) }
func NewAccount() *Account                                { return newAccount() }
