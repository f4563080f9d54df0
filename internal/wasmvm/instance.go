package wasmvm

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"

	"github.com/ledgercore/txruntime/internal/costmodel"
	"github.com/ledgercore/txruntime/internal/gas"
	"github.com/ledgercore/txruntime/internal/protocol"
)

// ContractInstance is a one-shot, ready-to-invoke Wasm instance owning a
// HostEnvironment, per spec §4.G. It is constructed, called at most once,
// then discarded.
type ContractInstance struct {
	store    *wasmer.Store
	module   *wasmer.Module
	instance *wasmer.Instance
	env      *HostEnvironment
	log      *zap.SugaredLogger
}

// NewContractInstance compiles (or fetches from cache) the given code and
// instantiates it against a fresh HostEnvironment bound to ctx.
func NewContractInstance(engine *wasmer.Engine, store *wasmer.Store, cache *ModuleCache, code []byte, cbiVersion uint32, ctx HostContext, meter *gas.Meter, schedule *costmodel.Schedule, log *zap.SugaredLogger) (*ContractInstance, error) {
	module, err := cache.GetOrCompile(code, cbiVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrDeployInvalidContract, err)
	}

	env := NewHostEnvironment(ctx, meter, schedule, log)
	imports := BuildImportObject(store, module, env)

	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrContractTrap, err)
	}
	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("%w: missing exported memory: %v", protocol.ErrContractTrap, err)
	}
	env.BindMemory(mem)

	return &ContractInstance{store: store, module: module, instance: instance, env: env, log: log}, nil
}

// CallResult is what Call yields: per spec §4.G, (updated context is
// implicit via ctx mutation, gas consumed, optional error).
type CallResult struct {
	GasUsed    uint64
	ReturnData []byte
	Err        error
}

// Call invokes the exported method named by the active call frame.
// Seeds the sub-meter, invokes, resynchronizes gas on return or trap, and
// treats any trap as Failed with gas-to-the-trap still consumed.
func (ci *ContractInstance) Call(method string) CallResult {
	fn, err := ci.instance.Exports.GetFunction(method)
	if err != nil || fn == nil {
		return CallResult{Err: protocol.ErrMethodNotFound}
	}

	ci.env.sub.Seed()

	result := func() (res CallResult) {
		defer func() {
			if r := recover(); r != nil {
				if _, isGasTrap := r.(gasTrapSignal); isGasTrap {
					res = CallResult{Err: protocol.ErrExecutionProperGasExhausted}
					return
				}
				res = CallResult{Err: fmt.Errorf("%w: %v", protocol.ErrContractTrap, r)}
			}
		}()
		_, callErr := fn()
		if callErr != nil {
			return CallResult{Err: fmt.Errorf("%w: %v", protocol.ErrContractTrap, callErr)}
		}
		return CallResult{}
	}()

	// Resynchronize gas at instance exit. Wasmer-go v1's bindings don't
	// expose the metering middleware's remaining-points counter directly
	// (see internal/gas grounding notes); host calls have already kept the
	// sub-meter in lockstep at each boundary, so the final Sync is a no-op
	// reconciliation against the meter's own remaining count.
	if ci.env.sub.Sync(ci.env.meter.Remaining()) == gas.Exhausted && result.Err == nil {
		result.Err = protocol.ErrExecutionProperGasExhausted
	}

	result.GasUsed = ci.env.meter.TotalUsed()
	return result
}
