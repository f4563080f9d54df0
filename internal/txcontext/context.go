// Package txcontext implements TransitionContext, the mutable
// per-transaction state shared between CommandExecutor and the Wasm
// sandbox: world-state cache, gas meter, logs, deferred queue, and the
// internal call stack (spec §4.H).
package txcontext

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"

	"github.com/ledgercore/txruntime/internal/costmodel"
	"github.com/ledgercore/txruntime/internal/gas"
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/wasmvm"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

// Frame is one entry of the internal call stack: the caller, callee,
// value, method, and args of an active (possibly nested) contract call.
type Frame struct {
	Caller protocol.Address
	Callee protocol.Address
	Value  uint64
	Method string
	Args   []byte
	Return []byte
}

// TransitionContext is created at transaction start, exclusively owned by
// the phase driver, and temporarily lent to a running Wasm instance via
// the callEnv adapter that RunContract builds for the instance. Per spec
// §9, there is no persistent shared-ownership design: a call's callEnv
// lifetime is bounded by ContractInstance.Call.
type TransitionContext struct {
	World  *worldstate.Cache
	Gas    *gas.Meter
	Params protocol.BlockchainParams

	Engine      *wasmer.Engine
	Store       *wasmer.Store
	ModuleCache *wasmvm.ModuleCache
	Schedule    *costmodel.Schedule
	MaxCallDepth int
	MemoryLimitPages uint32
	Log         *zap.SugaredLogger

	// CurrentLogs accumulates the active command's log entries.
	CurrentLogs []protocol.LogEntry
	// Deferred holds commands enqueued by the active Call, to run
	// immediately after it returns (spec §4.J).
	Deferred []protocol.Command

	stack []*Frame
}

// New builds a context for one transaction. The caller (PhaseDriver)
// retains exclusive ownership; it is not safe for concurrent use.
func New(world *worldstate.Cache, meter *gas.Meter, params protocol.BlockchainParams, engine *wasmer.Engine, store *wasmer.Store, cache *wasmvm.ModuleCache, schedule *costmodel.Schedule, maxCallDepth int, memoryLimitPages uint32, log *zap.SugaredLogger) *TransitionContext {
	return &TransitionContext{
		World: world, Gas: meter, Params: params,
		Engine: engine, Store: store, ModuleCache: cache, Schedule: schedule,
		MaxCallDepth: maxCallDepth, MemoryLimitPages: memoryLimitPages, Log: log,
	}
}

// BeginCommand resets the per-command log and deferred-command
// accumulators; call once before dispatching each top-level command.
func (c *TransitionContext) BeginCommand() {
	c.CurrentLogs = nil
	c.Deferred = nil
}

// RevertChanges reverts the world-state cache to cp and discards logs
// produced since, per spec §4.H.
func (c *TransitionContext) RevertChanges(cp worldstate.Checkpoint) {
	c.World.Revert(cp)
	c.CurrentLogs = nil
}

// PushFrame enters a new call frame, enforcing the recursion-depth bound.
func (c *TransitionContext) PushFrame(f *Frame) error {
	if len(c.stack) >= c.MaxCallDepth {
		return protocol.ErrRecursiveCallDepthExceeded
	}
	c.stack = append(c.stack, f)
	return nil
}

// PopFrame leaves the current call frame.
func (c *TransitionContext) PopFrame() {
	if len(c.stack) == 0 {
		return
	}
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *TransitionContext) topFrame() *Frame {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// RunContract constructs a ContractInstance for the top-of-stack frame's
// callee and invokes its method, returning the method's return bytes.
// This is the single path both CommandExecutor's top-level Call and the
// host `call` import (reentrant calls) go through.
func (c *TransitionContext) RunContract(code []byte, cbiVersion uint32) ([]byte, uint64, error) {
	frame := c.topFrame()
	if frame == nil {
		return nil, 0, fmt.Errorf("txcontext: RunContract with no active frame")
	}
	env := &callEnv{ctx: c, frame: frame}
	instance, err := wasmvm.NewContractInstance(c.Engine, c.Store, c.ModuleCache, code, cbiVersion, env, c.Gas, c.Schedule, c.Log)
	if err != nil {
		return nil, 0, err
	}
	result := instance.Call(frame.Method)
	if result.Err != nil {
		return nil, result.GasUsed, result.Err
	}
	return frame.Return, result.GasUsed, nil
}
