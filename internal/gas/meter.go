// Package gas implements the master GasMeter and the Wasm opcode
// sub-meter that synchronizes with it at host-call boundaries.
package gas

import (
	"sync/atomic"

	"github.com/ledgercore/txruntime/internal/protocol"
)

// Outcome is the result of a charge attempt.
type Outcome uint8

const (
	Ok Outcome = iota
	Exhausted
)

// Meter accumulates gas consumption against a fixed limit. Once Exhausted
// is reported, the meter is latched: every subsequent charge is a no-op
// that again reports Exhausted, matching the teacher's GasTank behavior of
// clamping consumed to limit rather than letting it run past.
type Meter struct {
	limit    uint64
	consumed uint64
}

// NewMeter constructs a meter bounded by limit.
func NewMeter(limit uint64) *Meter {
	return &Meter{limit: limit}
}

// Charge attempts to consume n units of gas. It is safe to call
// concurrently, matching the teacher's choice of atomic counters even
// though intra-transaction execution is single-threaded by spec; the
// ModuleCache and any future concurrent host calls benefit from it being
// race-free regardless.
func (m *Meter) Charge(n uint64) Outcome {
	for {
		cur := atomic.LoadUint64(&m.consumed)
		if cur >= m.limit {
			return Exhausted
		}
		next := cur + n
		if next < cur || next > m.limit {
			// overflow or exceeds limit: latch at the limit and report exhaustion.
			atomic.StoreUint64(&m.consumed, m.limit)
			return Exhausted
		}
		if atomic.CompareAndSwapUint64(&m.consumed, cur, next) {
			return Ok
		}
	}
}

// TotalUsed returns the gas consumed so far.
func (m *Meter) TotalUsed() uint64 {
	return atomic.LoadUint64(&m.consumed)
}

// Remaining returns the gas left before exhaustion.
func (m *Meter) Remaining() uint64 {
	used := atomic.LoadUint64(&m.consumed)
	if used >= m.limit {
		return 0
	}
	return m.limit - used
}

// Limit returns the meter's configured cap.
func (m *Meter) Limit() uint64 {
	return m.limit
}

// Exhausted reports whether the meter is currently saturated.
func (m *Meter) Exhausted() bool {
	return atomic.LoadUint64(&m.consumed) >= m.limit
}

// ChargeOrErr is a convenience wrapper returning the protocol-level
// gas-exhaustion error instead of an Outcome enum, for call sites that
// want to propagate directly as a command failure.
func (m *Meter) ChargeOrErr(n uint64) error {
	if m.Charge(n) == Exhausted {
		return protocol.ErrExecutionProperGasExhausted
	}
	return nil
}

// SubMeter tracks opcode-level consumption inside a single Wasm instance
// invocation, counted locally by the Wasm metering middleware and
// reconciled against the master Meter only at host-call boundaries and on
// instance exit — mirroring the real runtime's
// init_wasmer_remaining_points / drop_wasmer_remaining_points pair so the
// master meter isn't touched on every single opcode.
type SubMeter struct {
	master         *Meter
	remainingAtSeed uint64
	seeded         bool
}

// NewSubMeter binds a sub-meter to the given master meter. It does not
// seed until Seed is called with the Wasm engine's initial point budget.
func NewSubMeter(master *Meter) *SubMeter {
	return &SubMeter{master: master}
}

// Seed records the Wasm engine's starting remaining-points budget, which
// is set to the master meter's current remaining gas.
func (s *SubMeter) Seed() uint64 {
	s.remainingAtSeed = s.master.Remaining()
	s.seeded = true
	return s.remainingAtSeed
}

// Sync reconciles points consumed inside the Wasm engine (observed as
// remainingNow, the engine's own remaining-points counter) against the
// master meter, charging the delta. Call this at every host-call boundary
// and once more at instance exit.
func (s *SubMeter) Sync(remainingNow uint64) Outcome {
	if !s.seeded {
		return Ok
	}
	var delta uint64
	if remainingNow < s.remainingAtSeed {
		delta = s.remainingAtSeed - remainingNow
	}
	s.remainingAtSeed = remainingNow
	return s.master.Charge(delta)
}
