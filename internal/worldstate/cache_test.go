package worldstate

import (
	"testing"

	"github.com/ledgercore/txruntime/internal/protocol"
)

// memBacking is a trivial in-memory Backing for tests, standing in for
// the external versioned key/value store.
type memBacking struct {
	data map[string][]byte
}

func newMemBacking() *memBacking {
	return &memBacking{data: make(map[string][]byte)}
}

func memKey(addr protocol.Address, key []byte) string {
	return string(addr[:]) + "|" + string(key)
}

func (b *memBacking) Get(addr protocol.Address, key []byte) ([]byte, bool, error) {
	v, ok := b.data[memKey(addr, key)]
	return v, ok, nil
}

func (b *memBacking) Commit(batch Batch) error {
	for _, w := range batch.Writes {
		k := memKey(w.Address, w.Key)
		if w.Value == nil {
			delete(b.data, k)
			continue
		}
		b.data[k] = w.Value
	}
	return nil
}

func addrFrom(b byte) protocol.Address {
	var a protocol.Address
	a[0] = b
	return a
}

func TestBalanceRoundTripAndCommit(t *testing.T) {
	backing := newMemBacking()
	cache := NewCache(backing)
	addr := addrFrom(1)

	bal, cold, err := cache.GetBalance(addr)
	if err != nil || bal != 0 || !cold {
		t.Fatalf("fresh balance should be 0 and cold, got %d cold=%v err=%v", bal, cold, err)
	}

	cache.SetBalance(addr, 500)
	bal, _, _ = cache.GetBalance(addr)
	if bal != 500 {
		t.Fatalf("balance after set = %d, want 500", bal)
	}

	if err := cache.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	fresh := NewCache(backing)
	bal, _, _ = fresh.GetBalance(addr)
	if bal != 500 {
		t.Fatalf("balance after commit+reload = %d, want 500", bal)
	}
}

func TestColdThenWarmOnRepeatAccess(t *testing.T) {
	cache := NewCache(newMemBacking())
	addr := addrFrom(2)
	cache.BeginTransaction()

	_, cold1, _ := cache.GetBalance(addr)
	_, cold2, _ := cache.GetBalance(addr)
	if !cold1 {
		t.Fatal("first access in a transaction must be cold")
	}
	if cold2 {
		t.Fatal("second access in the same transaction must be warm")
	}

	cache.BeginTransaction()
	_, cold3, _ := cache.GetBalance(addr)
	if !cold3 {
		t.Fatal("a new transaction must reset the warm set")
	}
}

func TestCheckpointRevertRestoresPriorValue(t *testing.T) {
	cache := NewCache(newMemBacking())
	addr := addrFrom(3)
	cache.SetBalance(addr, 100)

	cp := cache.Checkpoint()
	cache.SetBalance(addr, 999)
	bal, _, _ := cache.GetBalance(addr)
	if bal != 999 {
		t.Fatalf("balance before revert = %d, want 999", bal)
	}

	cache.Revert(cp)
	bal, _, _ = cache.GetBalance(addr)
	if bal != 100 {
		t.Fatalf("balance after revert = %d, want 100", bal)
	}
}

func TestRevertRestoresAbsenceForNeverSeenKey(t *testing.T) {
	cache := NewCache(newMemBacking())
	addr := addrFrom(4)
	cp := cache.Checkpoint()

	cache.SetStorage(addr, []byte("k"), []byte("v"))
	_, present, _, _ := cache.GetStorage(addr, []byte("k"))
	if !present {
		t.Fatal("expected key present before revert")
	}

	cache.Revert(cp)
	_, present, _, _ = cache.GetStorage(addr, []byte("k"))
	if present {
		t.Fatal("key must be absent again after reverting past its first write")
	}
}

func TestPoolRoundTripAndSortedStakes(t *testing.T) {
	cache := NewCache(newMemBacking())
	operator := addrFrom(9)

	pool := NewPool(operator, 5)
	pool.Stakes[addrFrom(1)] = 100
	pool.Stakes[addrFrom(2)] = 300
	pool.Stakes[addrFrom(3)] = 300
	pool.TotalPower = 700
	cache.SetPool(operator, pool)

	got, ok, _, err := cache.GetPool(operator)
	if err != nil || !ok {
		t.Fatalf("expected pool present, err=%v", err)
	}
	if got.TotalPower != 700 || got.CommissionRate != 5 {
		t.Fatalf("unexpected pool contents: %+v", got)
	}

	sorted := got.SortedStakes()
	if len(sorted) != 3 {
		t.Fatalf("expected 3 stake entries, got %d", len(sorted))
	}
	// power descending; ties broken by address ascending.
	if sorted[0].Power != 300 || sorted[1].Power != 300 || sorted[2].Power != 100 {
		t.Fatalf("stakes not ordered by power descending: %+v", sorted)
	}
	if sorted[0].Owner != addrFrom(2) || sorted[1].Owner != addrFrom(3) {
		t.Fatalf("tie-break by address ascending failed: %+v", sorted)
	}
}

func TestDeletePoolRemovesEntry(t *testing.T) {
	cache := NewCache(newMemBacking())
	operator := addrFrom(7)
	cache.SetPool(operator, NewPool(operator, 0))
	cache.DeletePool(operator)

	_, ok, _, err := cache.GetPool(operator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("pool should be absent after delete")
	}
}

func TestEpochAndValidatorSetRoundTrip(t *testing.T) {
	cache := NewCache(newMemBacking())

	epoch, err := cache.GetEpoch()
	if err != nil || epoch != 0 {
		t.Fatalf("fresh epoch should be 0, got %d err=%v", epoch, err)
	}

	cache.SetEpoch(5)
	epoch, _ = cache.GetEpoch()
	if epoch != 5 {
		t.Fatalf("epoch after set = %d, want 5", epoch)
	}

	set := []protocol.Address{addrFrom(1), addrFrom(2)}
	cache.SetValidatorSet(set)
	got, err := cache.GetValidatorSet()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != addrFrom(1) || got[1] != addrFrom(2) {
		t.Fatalf("validator set round-trip mismatch: %+v", got)
	}
}
