package worldstate

import "github.com/ledgercore/txruntime/internal/protocol"

// WriteOp is one mutation destined for the backing store's batched commit.
type WriteOp struct {
	Address protocol.Address
	Key     []byte
	Value   []byte // nil Value means delete.
}

// Batch is an ordered set of writes committed atomically by the backing
// store.
type Batch struct {
	Writes []WriteOp
}

// Backing is the external, opaque key/value store the transition core
// consumes. Its implementation (versioned reads, Merkle-ish commitment) is
// out of scope for this core; Cache only relies on this contract.
type Backing interface {
	Get(addr protocol.Address, key []byte) (value []byte, present bool, err error)
	Commit(batch Batch) error
}
