package txruntime

import "github.com/ledgercore/txruntime/internal/worldstate"

// WorldState is the external backing-store contract a transition consumes
// and advances: an opaque key/value store providing versioned reads and
// batched, committed writes. Implementations (Merkle-ish commitment,
// on-disk versioning) live outside this module; the core only relies on
// this interface.
type WorldState = worldstate.Backing

// WriteOp is one mutation destined for a WorldState's batched commit.
type WriteOp = worldstate.WriteOp

// WriteBatch is an ordered set of writes a WorldState commits atomically.
type WriteBatch = worldstate.Batch
