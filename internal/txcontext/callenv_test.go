package txcontext

import (
	"bytes"
	"testing"

	"github.com/ledgercore/txruntime/internal/costmodel"
	"github.com/ledgercore/txruntime/internal/gas"
	"github.com/ledgercore/txruntime/internal/logging"
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

type memBacking struct{ data map[string][]byte }

func newMemBacking() *memBacking { return &memBacking{data: make(map[string][]byte)} }

func memKey(addr protocol.Address, key []byte) string {
	return string(addr[:]) + "|" + string(key)
}

func (b *memBacking) Get(addr protocol.Address, key []byte) ([]byte, bool, error) {
	v, ok := b.data[memKey(addr, key)]
	return v, ok, nil
}

func (b *memBacking) Commit(batch worldstate.Batch) error {
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

func newTestContext(params protocol.BlockchainParams) *TransitionContext {
	world := worldstate.NewCache(newMemBacking())
	meter := gas.NewMeter(1_000_000)
	return New(world, meter, params, nil, nil, nil, costmodel.Default(), 8, 64, logging.Nop())
}

func TestCallEnvAmountCallerCalleeArgs(t *testing.T) {
	caller := addrFrom(1)
	callee := addrFrom(2)
	ctx := newTestContext(protocol.BlockchainParams{})
	frame := &Frame{Caller: caller, Callee: callee, Value: 42, Method: "ping", Args: []byte("hi")}
	env := &callEnv{ctx: ctx, frame: frame}

	if env.Caller() != caller || env.ThisAddress() != callee {
		t.Fatal("caller/callee mismatch")
	}
	if env.Amount() != 42 {
		t.Fatalf("amount = %d, want 42", env.Amount())
	}
	if env.MethodName() != "ping" || !bytes.Equal(env.Args(), []byte("hi")) {
		t.Fatal("method/args mismatch")
	}
}

func TestCallEnvStorageRoundTrip(t *testing.T) {
	callee := addrFrom(3)
	ctx := newTestContext(protocol.BlockchainParams{})
	frame := &Frame{Callee: callee}
	env := &callEnv{ctx: ctx, frame: frame}

	if _, present, _, _ := env.GetStorage([]byte("k")); present {
		t.Fatal("key should be absent initially")
	}
	if _, err := env.SetStorage([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set storage: %v", err)
	}
	val, present, _, _ := env.GetStorage([]byte("k"))
	if !present || !bytes.Equal(val, []byte("v")) {
		t.Fatalf("expected stored value, got %q present=%v", val, present)
	}
}

func TestCallEnvBlockHashOnlyMatchesPreviousBlock(t *testing.T) {
	var prevHash protocol.Hash
	prevHash[0] = 0xFF
	ctx := newTestContext(protocol.BlockchainParams{BlockNumber: 10, PreviousBlockHash: prevHash})
	env := &callEnv{ctx: ctx, frame: &Frame{}}

	if got := env.BlockHash(9); got != prevHash {
		t.Fatalf("block_hash(9) = %x, want previous block hash", got)
	}
	if got := env.BlockHash(8); got != (protocol.Hash{}) {
		t.Fatal("block_hash for any block other than the immediate predecessor must be zero")
	}
}

func TestCallEnvTransferDefersACommand(t *testing.T) {
	ctx := newTestContext(protocol.BlockchainParams{})
	env := &callEnv{ctx: ctx, frame: &Frame{}}

	to := addrFrom(5)
	if err := env.Transfer(to, 100); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(ctx.Deferred) != 1 {
		t.Fatalf("expected 1 deferred command, got %d", len(ctx.Deferred))
	}
	if ctx.Deferred[0].Kind != protocol.CommandTransfer || ctx.Deferred[0].Transfer.To != to {
		t.Fatalf("unexpected deferred command: %+v", ctx.Deferred[0])
	}
}

func TestCallEnvDeferAppendsArbitraryCommand(t *testing.T) {
	ctx := newTestContext(protocol.BlockchainParams{})
	env := &callEnv{ctx: ctx, frame: &Frame{}}

	cmd := protocol.Command{Kind: protocol.CommandStakeDeposit, StakeDeposit: &protocol.StakeDepositCommand{Amount: 1}}
	if err := env.Defer(cmd); err != nil {
		t.Fatalf("defer: %v", err)
	}
	if len(ctx.Deferred) != 1 || ctx.Deferred[0].Kind != protocol.CommandStakeDeposit {
		t.Fatalf("unexpected deferred queue: %+v", ctx.Deferred)
	}
}

func TestCallEnvLogAppendsEntry(t *testing.T) {
	ctx := newTestContext(protocol.BlockchainParams{})
	env := &callEnv{ctx: ctx, frame: &Frame{}}

	env.Log([]byte("topic"), []byte("data"))
	if len(ctx.CurrentLogs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(ctx.CurrentLogs))
	}
	if !bytes.Equal(ctx.CurrentLogs[0].Topic, []byte("topic")) {
		t.Fatal("log topic mismatch")
	}
}

func TestCallEnvCallRejectsMissingCode(t *testing.T) {
	target := addrFrom(6)
	ctx := newTestContext(protocol.BlockchainParams{})
	frame := &Frame{Callee: addrFrom(1)}
	if err := ctx.PushFrame(frame); err != nil {
		t.Fatalf("push frame: %v", err)
	}
	env := &callEnv{ctx: ctx, frame: frame}

	if _, _, err := env.Call(target, "anything", nil, 0, 0); err == nil {
		t.Fatal("calling a target with no deployed code must fail")
	}
}

func TestCallEnvCallRejectsIncompatibleCBIVersion(t *testing.T) {
	target := addrFrom(7)
	ctx := newTestContext(protocol.BlockchainParams{})
	ctx.World.SetCode(target, []byte{0}, protocol.CBIVersionAdam+1)

	frame := &Frame{Callee: addrFrom(1)}
	if err := ctx.PushFrame(frame); err != nil {
		t.Fatalf("push frame: %v", err)
	}
	env := &callEnv{ctx: ctx, frame: frame}

	if _, _, err := env.Call(target, "anything", nil, 0, 0); err != protocol.ErrIncompatibleCBIVersion {
		t.Fatalf("expected ErrIncompatibleCBIVersion, got %v", err)
	}
}

func TestPushFrameEnforcesMaxCallDepth(t *testing.T) {
	ctx := newTestContext(protocol.BlockchainParams{})
	ctx.MaxCallDepth = 2

	if err := ctx.PushFrame(&Frame{}); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := ctx.PushFrame(&Frame{}); err != nil {
		t.Fatalf("second push: %v", err)
	}
	if err := ctx.PushFrame(&Frame{}); err != protocol.ErrRecursiveCallDepthExceeded {
		t.Fatalf("expected depth-exceeded error, got %v", err)
	}
}
