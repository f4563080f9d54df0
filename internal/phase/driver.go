// Package phase implements PhaseDriver: the three-phase transaction
// pipeline (pre-charge, commands, charge) described in spec §4.J.
package phase

import (
	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"

	"github.com/ledgercore/txruntime/internal/command"
	"github.com/ledgercore/txruntime/internal/costmodel"
	"github.com/ledgercore/txruntime/internal/gas"
	"github.com/ledgercore/txruntime/internal/metrics"
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/receipt"
	"github.com/ledgercore/txruntime/internal/txcontext"
	"github.com/ledgercore/txruntime/internal/wasmvm"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

// Driver runs transactions against a shared world-state cache and module
// cache, reusing the Wasm engine/store across the block.
type Driver struct {
	Engine           *wasmer.Engine
	Store            *wasmer.Store
	ModuleCache      *wasmvm.ModuleCache
	Schedule         *costmodel.Schedule
	MaxCallDepth     int
	MemoryLimitPages uint32
	Log              *zap.SugaredLogger
	Metrics          *metrics.Registry
}

// New builds a Driver. log may be nil, in which case a no-op logger is
// used; reg may be nil to disable metrics recording.
func New(engine *wasmer.Engine, store *wasmer.Store, moduleCache *wasmvm.ModuleCache, schedule *costmodel.Schedule, maxCallDepth int, memoryLimitPages uint32, log *zap.SugaredLogger, reg *metrics.Registry) *Driver {
	return &Driver{
		Engine: engine, Store: store, ModuleCache: moduleCache, Schedule: schedule,
		MaxCallDepth: maxCallDepth, MemoryLimitPages: memoryLimitPages, Log: log, Metrics: reg,
	}
}

func kinds(cmds []protocol.Command) []protocol.CommandKind {
	out := make([]protocol.CommandKind, len(cmds))
	for i, c := range cmds {
		out[i] = c.Kind
	}
	return out
}

// RunTransaction executes one transaction's three phases against world,
// returning its TransactionReceipt. A NextEpoch command's internal error
// panics past this call (see command.execNextEpoch); callers driving a
// block must recover at the block boundary.
func (d *Driver) RunTransaction(world *worldstate.Cache, params protocol.BlockchainParams, tx protocol.Transaction) protocol.TransactionReceipt {
	world.BeginTransaction()

	// Phase 1: pre-charge.
	currentNonce, _, err := world.GetNonce(tx.Signer)
	if err != nil {
		return receipt.FinishAborted(kinds(tx.Commands))
	}
	if tx.Nonce < currentNonce {
		return receipt.FinishAborted(kinds(tx.Commands))
	}
	if tx.Nonce > currentNonce {
		return receipt.FinishAborted(kinds(tx.Commands))
	}

	preChargeAmount := tx.GasLimit*tx.MaxBaseFeePerGas + tx.PriorityFeePerGas*tx.GasLimit
	balance, _, err := world.GetBalance(tx.Signer)
	if err != nil {
		return receipt.FinishAborted(kinds(tx.Commands))
	}
	if balance < preChargeAmount {
		return receipt.FinishAborted(kinds(tx.Commands))
	}

	world.SetBalance(tx.Signer, balance-preChargeAmount)
	world.SetNonce(tx.Signer, currentNonce+1)

	// Phase 2: commands.
	meter := gas.NewMeter(tx.GasLimit)
	ctx := txcontext.New(world, meter, params, d.Engine, d.Store, d.ModuleCache, d.Schedule, d.MaxCallDepth, d.MemoryLimitPages, d.Log)
	executor := command.New(ctx, tx.Signer, d.Log, d.Metrics)

	rb := receipt.New()
	failed := false
	for _, cmd := range tx.Commands {
		if failed {
			rb.Append(protocol.CommandReceipt{Kind: cmd.Kind, ExitCode: protocol.ExitNotExecuted})
			continue
		}
		r := executor.Execute(cmd)
		rb.Append(r)
		if r.ExitCode != protocol.ExitSuccess {
			failed = true
		}
	}

	// Phase 3: charge.
	actualGasUsed := meter.TotalUsed()
	actualCost := params.BaseFee*actualGasUsed + tx.PriorityFeePerGas*actualGasUsed
	refund := preChargeAmount - actualCost
	if actualCost > preChargeAmount {
		// The pre-charge bound (gas_limit*max_base_fee+priority*gas_limit)
		// is, by construction, always >= any possible actual cost; this
		// branch only guards against a misconfigured max_base_fee below
		// the block's actual base fee.
		refund = 0
		actualCost = preChargeAmount
	}

	postBalance, _, _ := world.GetBalance(tx.Signer)
	world.SetBalance(tx.Signer, postBalance+refund)

	baseFeePortion := params.BaseFee * actualGasUsed
	priorityPortion := actualCost - baseFeePortion
	if priorityPortion > actualCost {
		priorityPortion = 0
	}

	treasuryBal, _, _ := world.GetBalance(params.TreasuryAddress)
	world.SetBalance(params.TreasuryAddress, treasuryBal+baseFeePortion)
	proposerBal, _, _ := world.GetBalance(params.ProposerAddress)
	world.SetBalance(params.ProposerAddress, proposerBal+priorityPortion)

	txReceipt := rb.Finish(d.Schedule.PreChargeBase, d.Schedule.ChargeBase)
	if d.Metrics != nil {
		d.Metrics.GasUsed.Observe(float64(txReceipt.GasUsed))
	}
	return txReceipt
}

// RunBlock runs every transaction in order against world and returns the
// block's aggregate receipt.
func (d *Driver) RunBlock(world *worldstate.Cache, params protocol.BlockchainParams, txs []protocol.Transaction) protocol.BlockReceipt {
	bb := receipt.NewBlock()
	for _, tx := range txs {
		bb.Append(d.RunTransaction(world, params, tx))
	}
	return bb.Finish()
}
