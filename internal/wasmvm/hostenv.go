package wasmvm

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"

	"github.com/ledgercore/txruntime/internal/costmodel"
	"github.com/ledgercore/txruntime/internal/crypto"
	"github.com/ledgercore/txruntime/internal/gas"
	"github.com/ledgercore/txruntime/internal/protocol"
)

// Status codes returned to contract code by host functions, mirroring the
// teacher's ErrCodeSuccess/ErrCodeFailure/... convention in host_functions.go.
const (
	StatusSuccess int32 = iota
	StatusFailure
	StatusInvalidMemoryAccess
	StatusBufferTooSmall
	StatusOutOfGas
	StatusBadArgument
)

// HostContext is the narrow view of a TransitionContext a HostEnvironment
// needs. It is satisfied by an adapter built per call frame in
// internal/txcontext, kept as an interface here so wasmvm never imports
// txcontext (txcontext imports wasmvm to drive reentrant calls).
type HostContext interface {
	Balance(addr protocol.Address) (uint64, error)
	Amount() uint64
	BlockNumber() uint64
	BlockHash(n uint64) protocol.Hash
	BlockTimestamp() uint64
	Caller() protocol.Address
	ThisAddress() protocol.Address
	MethodName() string
	Args() []byte
	GetStorage(key []byte) (value []byte, present bool, cold bool, err error)
	SetStorage(key, value []byte) (cold bool, err error)
	Transfer(to protocol.Address, amount uint64) error
	Call(target protocol.Address, method string, args []byte, amount uint64, gasLimit uint64) ([]byte, uint64, error)
	Defer(cmd protocol.Command) error
	Log(topic, data []byte)
	SetReturn(data []byte)
}

// HostEnvironment bridges a running Wasm instance to a HostContext,
// charging host operations directly to the transaction's master gas meter
// before they take effect, per spec §4.F. Reading the call's amount, block
// number, timestamp, caller, own address, method name and args is not
// charged.
type HostEnvironment struct {
	ctx      HostContext
	meter    *gas.Meter
	sub      *gas.SubMeter
	schedule *costmodel.Schedule
	memory   *wasmer.Memory
	log      *zap.SugaredLogger
}

var _ wasmer.IntoCEnvironment = (*HostEnvironment)(nil)

// IntoCEnvironment satisfies wasmer-go's environment plumbing; no extra
// finalization is required here.
func (e *HostEnvironment) IntoCEnvironment() interface{} { return e }

// NewHostEnvironment builds an environment bound to one call frame's
// context and the transaction's master gas meter.
func NewHostEnvironment(ctx HostContext, meter *gas.Meter, schedule *costmodel.Schedule, log *zap.SugaredLogger) *HostEnvironment {
	return &HostEnvironment{ctx: ctx, meter: meter, sub: gas.NewSubMeter(meter), schedule: schedule, log: log}
}

// BindMemory attaches the instance's exported linear memory once it is
// available, analogous to the teacher's OnInstantiated hook.
func (e *HostEnvironment) BindMemory(mem *wasmer.Memory) {
	e.memory = mem
}

// gasTrapSignal is panicked by chargeOrTrap on exhaustion and recovered in
// ContractInstance.Call, which is how a failed charge "signals a trap that
// unwinds the Wasm instance cleanly" per spec §4.F, instead of the
// callback returning control to the contract with a bad status code that
// it could ignore.
type gasTrapSignal struct{}

func (e *HostEnvironment) chargeOrTrap(n uint64) {
	if e.meter.Charge(n) == gas.Exhausted {
		panic(gasTrapSignal{})
	}
}

func (e *HostEnvironment) readMemory(ptr, length int32) ([]byte, error) {
	if e.memory == nil {
		return nil, fmt.Errorf("host env: memory not bound")
	}
	data := e.memory.Data()
	if ptr < 0 || length < 0 || int(ptr)+int(length) > len(data) {
		return nil, fmt.Errorf("host env: out of bounds memory access")
	}
	out := make([]byte, length)
	copy(out, data[ptr:int(ptr)+int(length)])
	return out, nil
}

func (e *HostEnvironment) writeMemory(ptr int32, value []byte) error {
	if e.memory == nil {
		return fmt.Errorf("host env: memory not bound")
	}
	data := e.memory.Data()
	if ptr < 0 || int(ptr)+len(value) > len(data) {
		return fmt.Errorf("host env: out of bounds memory access")
	}
	copy(data[ptr:int(ptr)+len(value)], value)
	return nil
}

// --- host-callable operations (called by wasmvm function wrappers in funcs.go) ---

func (e *HostEnvironment) hostGet(keyPtr, keyLen, valOutPtr, valOutCap int32) int32 {
	key, err := e.readMemory(keyPtr, keyLen)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	value, present, cold, err := e.ctx.GetStorage(key)
	if err != nil {
		return StatusFailure
	}
	e.chargeOrTrap(e.schedule.StorageCost(cold, false, uint64(len(value))))
	if !present {
		return StatusFailure
	}
	if int32(len(value)) > valOutCap {
		return StatusBufferTooSmall
	}
	if err := e.writeMemory(valOutPtr, value); err != nil {
		return StatusInvalidMemoryAccess
	}
	return int32(len(value))
}

func (e *HostEnvironment) hostSet(keyPtr, keyLen, valPtr, valLen int32) int32 {
	key, err := e.readMemory(keyPtr, keyLen)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	value, err := e.readMemory(valPtr, valLen)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	_, _, cold, err := e.ctx.GetStorage(key)
	if err != nil {
		return StatusFailure
	}
	e.chargeOrTrap(e.schedule.StorageCost(cold, true, uint64(len(value))))
	if _, err := e.ctx.SetStorage(key, value); err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

func (e *HostEnvironment) hostBalance(addrPtr, addrLen int32) (uint64, int32) {
	raw, err := e.readMemory(addrPtr, addrLen)
	if err != nil || len(raw) != 32 {
		return 0, StatusInvalidMemoryAccess
	}
	var addr protocol.Address
	copy(addr[:], raw)
	e.chargeOrTrap(e.schedule.HostCallBase)
	bal, err := e.ctx.Balance(addr)
	if err != nil {
		return 0, StatusFailure
	}
	return bal, StatusSuccess
}

func (e *HostEnvironment) hostAmount() uint64 {
	return e.ctx.Amount()
}

func (e *HostEnvironment) hostBlockNumber() uint64 {
	return e.ctx.BlockNumber()
}

func (e *HostEnvironment) hostBlockTimestamp() uint64 {
	return e.ctx.BlockTimestamp()
}

func (e *HostEnvironment) hostBlockHash(n uint64, outPtr int32) int32 {
	e.chargeOrTrap(e.schedule.HostCallBase)
	h := e.ctx.BlockHash(n)
	if err := e.writeMemory(outPtr, h[:]); err != nil {
		return StatusInvalidMemoryAccess
	}
	return StatusSuccess
}

func (e *HostEnvironment) hostCaller(outPtr int32) int32 {
	addr := e.ctx.Caller()
	if err := e.writeMemory(outPtr, addr[:]); err != nil {
		return StatusInvalidMemoryAccess
	}
	return StatusSuccess
}

func (e *HostEnvironment) hostThisAddress(outPtr int32) int32 {
	addr := e.ctx.ThisAddress()
	if err := e.writeMemory(outPtr, addr[:]); err != nil {
		return StatusInvalidMemoryAccess
	}
	return StatusSuccess
}

func (e *HostEnvironment) hostMethodName(outPtr, outCap int32) int32 {
	name := []byte(e.ctx.MethodName())
	if int32(len(name)) > outCap {
		return StatusBufferTooSmall
	}
	if err := e.writeMemory(outPtr, name); err != nil {
		return StatusInvalidMemoryAccess
	}
	return int32(len(name))
}

func (e *HostEnvironment) hostArgs(outPtr, outCap int32) int32 {
	args := e.ctx.Args()
	if int32(len(args)) > outCap {
		return StatusBufferTooSmall
	}
	if err := e.writeMemory(outPtr, args); err != nil {
		return StatusInvalidMemoryAccess
	}
	return int32(len(args))
}

func (e *HostEnvironment) hostReturn(ptr, length int32) int32 {
	data, err := e.readMemory(ptr, length)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	e.chargeOrTrap(uint64(length) * e.schedule.PerByteReturn)
	e.ctx.SetReturn(data)
	return StatusSuccess
}

func (e *HostEnvironment) hostTransfer(toPtr, toLen int32, amount uint64) int32 {
	raw, err := e.readMemory(toPtr, toLen)
	if err != nil || len(raw) != 32 {
		return StatusInvalidMemoryAccess
	}
	var to protocol.Address
	copy(to[:], raw)
	e.chargeOrTrap(e.schedule.HostCallBase)
	if err := e.ctx.Transfer(to, amount); err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

func (e *HostEnvironment) hostCall(targetPtr, targetLen, methodPtr, methodLen, argsPtr, argsLen int32, amount, gasLimit uint64, outPtr, outCap int32) int32 {
	rawTarget, err := e.readMemory(targetPtr, targetLen)
	if err != nil || len(rawTarget) != 32 {
		return StatusInvalidMemoryAccess
	}
	var target protocol.Address
	copy(target[:], rawTarget)

	methodRaw, err := e.readMemory(methodPtr, methodLen)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	args, err := e.readMemory(argsPtr, argsLen)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	e.chargeOrTrap(e.schedule.HostCallBase)
	ret, gasUsed, err := e.ctx.Call(target, string(methodRaw), args, amount, gasLimit)
	_ = gasUsed // the nested call already charged the master meter directly.
	if err != nil {
		return StatusFailure
	}
	if int32(len(ret)) > outCap {
		return StatusBufferTooSmall
	}
	if err := e.writeMemory(outPtr, ret); err != nil {
		return StatusInvalidMemoryAccess
	}
	return int32(len(ret))
}

func (e *HostEnvironment) hostDefer(kind int32, payloadPtr, payloadLen int32) int32 {
	payload, err := e.readMemory(payloadPtr, payloadLen)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	cmd, err := decodeDeferredCommand(protocol.CommandKind(kind), payload)
	if err != nil {
		return StatusBadArgument
	}
	e.chargeOrTrap(e.schedule.HostCallBase)
	if err := e.ctx.Defer(cmd); err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

func (e *HostEnvironment) hostLog(topicPtr, topicLen, dataPtr, dataLen int32) int32 {
	topic, err := e.readMemory(topicPtr, topicLen)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	data, err := e.readMemory(dataPtr, dataLen)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	e.chargeOrTrap(uint64(len(topic)+len(data)) * e.schedule.PerByteLog)
	e.ctx.Log(topic, data)
	return StatusSuccess
}

func (e *HostEnvironment) hostCryptoSHA256(ptr, length, outPtr int32) int32 {
	data, err := e.readMemory(ptr, length)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	e.chargeOrTrap(e.schedule.CryptoSHA256)
	h := crypto.SHA256(data)
	if err := e.writeMemory(outPtr, h[:]); err != nil {
		return StatusInvalidMemoryAccess
	}
	return StatusSuccess
}

func (e *HostEnvironment) hostCryptoKeccak256(ptr, length, outPtr int32) int32 {
	data, err := e.readMemory(ptr, length)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	e.chargeOrTrap(e.schedule.CryptoKeccak256)
	h := crypto.Keccak256(data)
	if err := e.writeMemory(outPtr, h[:]); err != nil {
		return StatusInvalidMemoryAccess
	}
	return StatusSuccess
}

func (e *HostEnvironment) hostCryptoEd25519Verify(pubKeyPtr, msgPtr, msgLen, sigPtr int32) int32 {
	pubRaw, err := e.readMemory(pubKeyPtr, 32)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	msg, err := e.readMemory(msgPtr, msgLen)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	sigRaw, err := e.readMemory(sigPtr, 64)
	if err != nil {
		return StatusInvalidMemoryAccess
	}
	e.chargeOrTrap(e.schedule.CryptoEd25519Verify)
	var pub [32]byte
	var sig [64]byte
	copy(pub[:], pubRaw)
	copy(sig[:], sigRaw)
	if crypto.Ed25519Verify(pub, msg, sig) {
		return StatusSuccess
	}
	return StatusFailure
}
