// Package costmodel is the static gas schedule: a pure function table from
// operation shape to gas cost. Every cost here is a constant or a linear
// function of an input size, never dependent on machine state.
package costmodel

import "github.com/ledgercore/txruntime/internal/protocol"

// Schedule is a fully-populated, immutable gas schedule. The zero value is
// not usable; construct with Default().
type Schedule struct {
	// Per-command base costs.
	CommandBase map[protocol.CommandKind]uint64

	// Per-byte costs.
	PerByteCalldata uint64
	PerByteCode     uint64
	PerByteStorage  uint64
	PerByteReturn   uint64
	PerByteLog      uint64

	// Storage access, cold (first touch in a transaction) vs warm.
	StorageReadCold  uint64
	StorageReadWarm  uint64
	StorageWriteCold uint64
	StorageWriteWarm uint64

	// Account touches.
	NewAccountTouch uint64

	// Wasm opcode classes, used by the metering middleware.
	OpcodeBase    uint64
	OpcodeMemory  uint64
	OpcodeControl uint64

	// Host call fixed overhead (call/crypto/etc, before per-byte add-ons).
	HostCallBase uint64

	// Cryptographic primitives.
	CryptoSHA256     uint64
	CryptoKeccak256  uint64
	CryptoEd25519Verify uint64

	// Phase overhead.
	PreChargeBase uint64
	ChargeBase    uint64

	// Protocol-only operations.
	NextEpochBudget uint64

	// UnstakeLockEpochs is how many epochs an unstaked amount remains
	// locked before WithdrawDeposit can reach it.
	UnstakeLockEpochs uint64

	// RewardPerVote is the flat per-vote mint rate NextEpoch applies to
	// each validator's performance record.
	RewardPerVote uint64
}

// Default returns the protocol's reference gas schedule. Values are scaled
// from the teacher's per-host-function constants (storage base 100,
// per-byte 1) into a complete table covering every command and host call
// this core implements.
func Default() *Schedule {
	return &Schedule{
		CommandBase: map[protocol.CommandKind]uint64{
			protocol.CommandTransfer:           21000,
			protocol.CommandDeploy:             200000,
			protocol.CommandCall:               25000,
			protocol.CommandCreatePool:         50000,
			protocol.CommandSetPoolSettings:    10000,
			protocol.CommandDeletePool:         15000,
			protocol.CommandCreateDeposit:      40000,
			protocol.CommandSetDepositSettings: 8000,
			protocol.CommandTopUpDeposit:       12000,
			protocol.CommandWithdrawDeposit:    15000,
			protocol.CommandStakeDeposit:       18000,
			protocol.CommandUnstakeDeposit:     18000,
			protocol.CommandNextEpoch:          0,
		},
		PerByteCalldata: 4,
		PerByteCode:     20,
		PerByteStorage:  5,
		PerByteReturn:   3,
		PerByteLog:      8,

		StorageReadCold:  2000,
		StorageReadWarm:  100,
		StorageWriteCold: 5000,
		StorageWriteWarm: 500,

		NewAccountTouch: 25000,

		OpcodeBase:    1,
		OpcodeMemory:  3,
		OpcodeControl: 2,

		HostCallBase: 100,

		CryptoSHA256:        60,
		CryptoKeccak256:     60,
		CryptoEd25519Verify: 3000,

		PreChargeBase: 21000,
		ChargeBase:    5000,

		NextEpochBudget: 10_000_000,

		UnstakeLockEpochs: 1,
		RewardPerVote:     1000,
	}
}

// CommandCost returns the base gas for a command kind, plus payload-size
// dependent surcharges the caller computes separately via the PerByte*
// fields. Unknown kinds cost nothing extra beyond whatever the caller adds.
func (s *Schedule) CommandCost(kind protocol.CommandKind) uint64 {
	return s.CommandBase[kind]
}

// StorageCost returns the cost of one storage access, by cold/warm and
// read/write, amortized over n bytes touched.
func (s *Schedule) StorageCost(cold, write bool, nBytes uint64) uint64 {
	var base uint64
	switch {
	case write && cold:
		base = s.StorageWriteCold
	case write && !cold:
		base = s.StorageWriteWarm
	case !write && cold:
		base = s.StorageReadCold
	default:
		base = s.StorageReadWarm
	}
	return base + nBytes*s.PerByteStorage
}
