package worldstate

import "github.com/ledgercore/txruntime/internal/protocol"

// Account is the per-address record the transition core mutates.
type Account struct {
	Balance    uint64
	Nonce      uint64
	Code       []byte
	CBIVersion uint32
	HasCode    bool
	Storage    map[string][]byte
}

func newAccount() *Account {
	return &Account{Storage: make(map[string][]byte)}
}

func (a *Account) clone() *Account {
	cp := &Account{
		Balance:    a.Balance,
		Nonce:      a.Nonce,
		CBIVersion: a.CBIVersion,
		HasCode:    a.HasCode,
		Storage:    make(map[string][]byte, len(a.Storage)),
	}
	if a.Code != nil {
		cp.Code = append([]byte(nil), a.Code...)
	}
	for k, v := range a.Storage {
		cp.Storage[k] = append([]byte(nil), v...)
	}
	return cp
}

// Pool is a stakeable entity operated by one account.
type Pool struct {
	Operator       protocol.Address
	CommissionRate uint8
	// Stakes maps owner address to power. Ordering by
	// power descending is produced on demand via SortedStakes, never by
	// iterating the map directly, to keep output deterministic.
	Stakes     map[protocol.Address]uint64
	TotalPower uint64
}

func newPool(operator protocol.Address, rate uint8) *Pool {
	return &Pool{Operator: operator, CommissionRate: rate, Stakes: make(map[protocol.Address]uint64)}
}

func (p *Pool) clone() *Pool {
	cp := &Pool{Operator: p.Operator, CommissionRate: p.CommissionRate, TotalPower: p.TotalPower, Stakes: make(map[protocol.Address]uint64, len(p.Stakes))}
	for k, v := range p.Stakes {
		cp.Stakes[k] = v
	}
	return cp
}

// StakeEntry is one (owner, power) pair, used for deterministic ranking.
type StakeEntry struct {
	Owner protocol.Address
	Power uint64
}

// SortedStakes returns the pool's stakes ordered by power descending, then
// by owner address ascending to break ties deterministically.
func (p *Pool) SortedStakes() []StakeEntry {
	out := make([]StakeEntry, 0, len(p.Stakes))
	for owner, power := range p.Stakes {
		out = append(out, StakeEntry{Owner: owner, Power: power})
	}
	sortStakeEntries(out)
	return out
}

func sortStakeEntries(entries []StakeEntry) {
	// Simple insertion sort: stake lists are small (bounded by delegators
	// per pool) and this keeps the comparator inline and allocation-free.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && lessStake(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func lessStake(a, b StakeEntry) bool {
	if a.Power != b.Power {
		return a.Power > b.Power
	}
	for i := range a.Owner {
		if a.Owner[i] != b.Owner[i] {
			return a.Owner[i] < b.Owner[i]
		}
	}
	return false
}

// Deposit is an owner's stake-eligible balance in a specific pool.
type Deposit struct {
	Balance          uint64
	AutoStakeRewards bool
	// UnstakedLocked is power moved out of the pool but still epoch-locked,
	// becoming withdrawable once the epoch boundary configured at unstake
	// time is reached.
	UnstakedLocked uint64
	UnlockEpoch    uint64
}

func (d *Deposit) clone() *Deposit {
	cp := *d
	return &cp
}
