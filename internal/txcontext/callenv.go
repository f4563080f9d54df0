package txcontext

import (
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/wasmvm"
)

var _ wasmvm.HostContext = (*callEnv)(nil)

// callEnv adapts a TransitionContext plus one active call Frame into the
// narrow wasmvm.HostContext interface a HostEnvironment needs. It exists
// only for the duration of one ContractInstance.Call, matching the
// "exclusively owned, temporarily lent, reclaimed on return" lifecycle
// named in spec §3/§9.
type callEnv struct {
	ctx   *TransitionContext
	frame *Frame
}

func (e *callEnv) Balance(addr protocol.Address) (uint64, error) {
	bal, _, err := e.ctx.World.GetBalance(addr)
	return bal, err
}

func (e *callEnv) Amount() uint64 { return e.frame.Value }

func (e *callEnv) BlockNumber() uint64 { return e.ctx.Params.BlockNumber }

func (e *callEnv) BlockTimestamp() uint64 { return e.ctx.Params.Timestamp }

func (e *callEnv) BlockHash(n uint64) protocol.Hash {
	if e.ctx.Params.BlockNumber > 0 && n == e.ctx.Params.BlockNumber-1 {
		return e.ctx.Params.PreviousBlockHash
	}
	return protocol.Hash{}
}

func (e *callEnv) Caller() protocol.Address { return e.frame.Caller }

func (e *callEnv) ThisAddress() protocol.Address { return e.frame.Callee }

func (e *callEnv) MethodName() string { return e.frame.Method }

func (e *callEnv) Args() []byte { return e.frame.Args }

func (e *callEnv) SetReturn(data []byte) { e.frame.Return = data }

func (e *callEnv) GetStorage(key []byte) ([]byte, bool, bool, error) {
	return e.ctx.World.GetStorage(e.frame.Callee, key)
}

func (e *callEnv) SetStorage(key, value []byte) (bool, error) {
	cold := e.ctx.World.SetStorage(e.frame.Callee, key, value)
	return cold, nil
}

// Transfer schedules a Transfer command to run as part of this call's
// deferred composition, per spec §4.F's "schedules an internal transfer
// command" wording — it shares the same merge-after-return rule as an
// explicit defer() call.
func (e *callEnv) Transfer(to protocol.Address, amount uint64) error {
	e.ctx.Deferred = append(e.ctx.Deferred, protocol.Command{
		Kind:     protocol.CommandTransfer,
		Transfer: &protocol.TransferCommand{To: to, Amount: amount},
	})
	return nil
}

func (e *callEnv) Defer(cmd protocol.Command) error {
	e.ctx.Deferred = append(e.ctx.Deferred, cmd)
	return nil
}

func (e *callEnv) Log(topic, data []byte) {
	e.ctx.CurrentLogs = append(e.ctx.CurrentLogs, protocol.LogEntry{Topic: topic, Data: data})
}

// Call performs a reentrant internal call: push a new frame for target,
// run it to completion, and pop. Depth is bounded by
// TransitionContext.PushFrame.
func (e *callEnv) Call(target protocol.Address, method string, args []byte, amount uint64, gasLimit uint64) ([]byte, uint64, error) {
	code, cbiVersion, hasCode, _, err := e.ctx.World.GetCode(target)
	if err != nil {
		return nil, 0, err
	}
	if !hasCode {
		return nil, 0, protocol.ErrInvalidCommand
	}
	if !protocol.IsCBICompatible(cbiVersion) {
		return nil, 0, protocol.ErrIncompatibleCBIVersion
	}

	newFrame := &Frame{Caller: e.frame.Callee, Callee: target, Value: amount, Method: method, Args: args}
	if err := e.ctx.PushFrame(newFrame); err != nil {
		return nil, 0, err
	}
	defer e.ctx.PopFrame()

	return e.ctx.RunContract(code, cbiVersion)
}
