// Package command implements CommandExecutor: the per-command-kind
// dispatch table described in spec §4.I. Every path begins with a
// world-state checkpoint, charges a base cost, validates, mutates, and
// produces a receipt; on any error it reverts to the checkpoint and
// emits a Failed receipt with the gas consumed so far.
package command

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/ledgercore/txruntime/internal/costmodel"
	"github.com/ledgercore/txruntime/internal/metrics"
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/txcontext"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

// Executor dispatches commands against a TransitionContext on behalf of a
// single signer.
type Executor struct {
	ctx      *txcontext.TransitionContext
	schedule *costmodel.Schedule
	signer   protocol.Address
	log      *zap.SugaredLogger
	metrics  *metrics.Registry
}

// New builds an Executor bound to ctx for the signer of the enclosing
// transaction. reg may be nil to disable metrics recording.
func New(ctx *txcontext.TransitionContext, signer protocol.Address, log *zap.SugaredLogger, reg *metrics.Registry) *Executor {
	return &Executor{ctx: ctx, schedule: ctx.Schedule, signer: signer, log: log, metrics: reg}
}

func (x *Executor) observe(r protocol.CommandReceipt) {
	if x.metrics == nil {
		return
	}
	x.metrics.CommandsTotal.WithLabelValues(r.Kind.String(), strconv.Itoa(int(r.ExitCode))).Inc()
}

// Execute dispatches one command and returns its receipt, including the
// receipts of any commands it deferred (merged per spec §4.J).
func (x *Executor) Execute(cmd protocol.Command) protocol.CommandReceipt {
	r := x.execute(cmd)
	x.observe(r)
	return r
}

func (x *Executor) execute(cmd protocol.Command) protocol.CommandReceipt {
	x.ctx.BeginCommand()
	cp := x.ctx.World.Checkpoint()
	gasBefore := x.ctx.Gas.TotalUsed()

	base := x.schedule.CommandCost(cmd.Kind)
	if err := x.ctx.Gas.ChargeOrErr(base); err != nil {
		return x.fail(cmd.Kind, cp, gasBefore)
	}

	var execErr error
	switch cmd.Kind {
	case protocol.CommandTransfer:
		execErr = x.execTransfer(cmd.Transfer)
	case protocol.CommandDeploy:
		execErr = x.execDeploy(cmd.Deploy)
	case protocol.CommandCall:
		return x.execCallWithDeferred(cmd.Call, cp, gasBefore)
	case protocol.CommandCreatePool:
		execErr = x.execCreatePool(cmd.CreatePool)
	case protocol.CommandSetPoolSettings:
		execErr = x.execSetPoolSettings(cmd.SetPoolSettings)
	case protocol.CommandDeletePool:
		execErr = x.execDeletePool()
	case protocol.CommandCreateDeposit:
		execErr = x.execCreateDeposit(cmd.CreateDeposit)
	case protocol.CommandSetDepositSettings:
		execErr = x.execSetDepositSettings(cmd.SetDepositSettings)
	case protocol.CommandTopUpDeposit:
		execErr = x.execTopUpDeposit(cmd.TopUpDeposit)
	case protocol.CommandWithdrawDeposit:
		execErr = x.execWithdrawDeposit(cmd.WithdrawDeposit)
	case protocol.CommandStakeDeposit:
		execErr = x.execStakeDeposit(cmd.StakeDeposit)
	case protocol.CommandUnstakeDeposit:
		execErr = x.execUnstakeDeposit(cmd.UnstakeDeposit)
	case protocol.CommandNextEpoch:
		execErr = x.execNextEpoch()
	default:
		execErr = protocol.ErrInvalidCommand
	}

	if execErr != nil {
		return x.fail(cmd.Kind, cp, gasBefore)
	}
	return protocol.CommandReceipt{
		Kind:     cmd.Kind,
		ExitCode: protocol.ExitSuccess,
		GasUsed:  x.ctx.Gas.TotalUsed() - gasBefore,
		Logs:     x.ctx.CurrentLogs,
	}
}

// fail reverts to cp and returns a Failed receipt. Gas already consumed
// (up through gasBefore..now) is not refunded, per spec §4.C/§7.
func (x *Executor) fail(kind protocol.CommandKind, cp worldstate.Checkpoint, gasBefore uint64) protocol.CommandReceipt {
	x.ctx.RevertChanges(cp)
	return protocol.CommandReceipt{
		Kind:     kind,
		ExitCode: protocol.ExitFailed,
		GasUsed:  x.ctx.Gas.TotalUsed() - gasBefore,
	}
}
