package command

import (
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/txcontext"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

// execCallWithDeferred loads the target's code, checks CBI compatibility,
// runs the contract, and then runs any commands it deferred immediately
// afterward, merging each deferred receipt in turn into the Call's own
// receipt (gas added, exit code and return bytes overwritten, so the last
// deferred command's outcome stands) per the rule in spec §4.J / §8
// invariant 7. The assumption
// (shared with the original runtime) is that a deferred command never
// itself emits a further deferred command.
//
// If the merged outcome is Failed, every write since cp is reverted,
// including the parent call's own otherwise-successful writes — per the
// S4 scenario in spec §8, a failing deferred command propagates failure
// (and rollback) to the whole Call.
func (x *Executor) execCallWithDeferred(c *protocol.CallCommand, cp worldstate.Checkpoint, gasBefore uint64) protocol.CommandReceipt {
	if c == nil {
		return x.fail(protocol.CommandCall, cp, gasBefore)
	}

	code, cbiVersion, hasCode, _, err := x.ctx.World.GetCode(c.Target)
	if err != nil || !hasCode {
		return x.fail(protocol.CommandCall, cp, gasBefore)
	}
	if !protocol.IsCBICompatible(cbiVersion) {
		return x.fail(protocol.CommandCall, cp, gasBefore)
	}

	frame := &txcontext.Frame{Caller: x.signer, Callee: c.Target, Value: c.Amount, Method: c.Method, Args: c.Args}
	if err := x.ctx.PushFrame(frame); err != nil {
		return x.fail(protocol.CommandCall, cp, gasBefore)
	}

	returnData, _, callErr := x.ctx.RunContract(code, cbiVersion)
	x.ctx.PopFrame()

	if callErr != nil {
		return x.fail(protocol.CommandCall, cp, gasBefore)
	}

	receipt := protocol.CommandReceipt{
		Kind:     protocol.CommandCall,
		ExitCode: protocol.ExitSuccess,
		GasUsed:  x.ctx.Gas.TotalUsed() - gasBefore,
		Return:   returnData,
		Logs:     x.ctx.CurrentLogs,
	}

	deferred := x.ctx.Deferred
	x.ctx.Deferred = nil
	for _, dcmd := range deferred {
		dReceipt := x.Execute(dcmd)
		receipt.GasUsed = saturatingAdd(receipt.GasUsed, dReceipt.GasUsed)
		receipt.ExitCode = dReceipt.ExitCode
		receipt.Return = dReceipt.Return
	}

	if receipt.ExitCode == protocol.ExitFailed {
		x.ctx.RevertChanges(cp)
		receipt.Logs = nil
	}

	return receipt
}

func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}
