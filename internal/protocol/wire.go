package protocol

import (
	"encoding/binary"
	"fmt"
)

// This file implements the bespoke binary, length-prefixed, field-tagged
// wire scheme named in spec §6, used both for the deferred-command
// payload contracts hand to the host and for command payload encoding.
// There is no protobuf here: the teacher's only
// protobuf usage referenced a generated package that was never checked
// into the repository, so this core defines its own scheme instead (see
// DESIGN.md).

func putU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putBytes(buf []byte, b []byte) []byte {
	buf = putU64(buf, uint64(len(b)))
	return append(buf, b...)
}

func takeU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, fmt.Errorf("wire: truncated u64")
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

func takeBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := takeU64(b)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, fmt.Errorf("wire: truncated byte field")
	}
	return rest[:n], rest[n:], nil
}

// EncodeCommandPayload serializes the variant-specific payload of a
// command (not the tag byte — callers that need the tag, e.g. a deferred
// host call, carry CommandKind out of band).
func EncodeCommandPayload(cmd Command) ([]byte, error) {
	var buf []byte
	switch cmd.Kind {
	case CommandTransfer:
		buf = append(buf, cmd.Transfer.To[:]...)
		buf = putU64(buf, cmd.Transfer.Amount)
	case CommandDeploy:
		buf = putU64(buf, uint64(cmd.Deploy.CBIVersion))
		buf = putBytes(buf, cmd.Deploy.Code)
	case CommandCall:
		buf = append(buf, cmd.Call.Target[:]...)
		buf = putBytes(buf, []byte(cmd.Call.Method))
		buf = putBytes(buf, cmd.Call.Args)
		buf = putU64(buf, cmd.Call.Amount)
	case CommandCreatePool:
		buf = append(buf, byte(cmd.CreatePool.CommissionRate))
	case CommandSetPoolSettings:
		buf = append(buf, byte(cmd.SetPoolSettings.CommissionRate))
	case CommandDeletePool, CommandNextEpoch:
		// no payload
	case CommandCreateDeposit:
		buf = append(buf, cmd.CreateDeposit.Pool[:]...)
		buf = putU64(buf, cmd.CreateDeposit.Balance)
		buf = append(buf, boolByte(cmd.CreateDeposit.AutoStakeRewards))
	case CommandSetDepositSettings:
		buf = append(buf, cmd.SetDepositSettings.Pool[:]...)
		buf = append(buf, boolByte(cmd.SetDepositSettings.AutoStakeRewards))
	case CommandTopUpDeposit:
		buf = append(buf, cmd.TopUpDeposit.Pool[:]...)
		buf = putU64(buf, cmd.TopUpDeposit.Amount)
	case CommandWithdrawDeposit:
		buf = append(buf, cmd.WithdrawDeposit.Pool[:]...)
		buf = putU64(buf, cmd.WithdrawDeposit.Amount)
	case CommandStakeDeposit:
		buf = append(buf, cmd.StakeDeposit.Pool[:]...)
		buf = putU64(buf, cmd.StakeDeposit.Amount)
	case CommandUnstakeDeposit:
		buf = append(buf, cmd.UnstakeDeposit.Pool[:]...)
		buf = putU64(buf, cmd.UnstakeDeposit.Amount)
	default:
		return nil, fmt.Errorf("wire: unknown command kind %d", cmd.Kind)
	}
	return buf, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// DecodeCommandPayload parses the variant payload for kind out of b. Only
// Transfer, Deploy, Call, DeletePool and NextEpoch are decoded; any other
// kind returns an error.
func DecodeCommandPayload(kind CommandKind, b []byte) (Command, error) {
	cmd := Command{Kind: kind}
	var addr Address
	switch kind {
	case CommandTransfer:
		if len(b) < 32 {
			return cmd, fmt.Errorf("wire: truncated transfer")
		}
		copy(addr[:], b[:32])
		amount, _, err := takeU64(b[32:])
		if err != nil {
			return cmd, err
		}
		cmd.Transfer = &TransferCommand{To: addr, Amount: amount}
	case CommandDeploy:
		cbi, rest, err := takeU64(b)
		if err != nil {
			return cmd, err
		}
		code, _, err := takeBytes(rest)
		if err != nil {
			return cmd, err
		}
		cmd.Deploy = &DeployCommand{Code: code, CBIVersion: uint32(cbi)}
	case CommandCall:
		if len(b) < 32 {
			return cmd, fmt.Errorf("wire: truncated call")
		}
		copy(addr[:], b[:32])
		rest := b[32:]
		method, rest, err := takeBytes(rest)
		if err != nil {
			return cmd, err
		}
		args, rest, err := takeBytes(rest)
		if err != nil {
			return cmd, err
		}
		amount, _, err := takeU64(rest)
		if err != nil {
			return cmd, err
		}
		cmd.Call = &CallCommand{Target: addr, Method: string(method), Args: args, Amount: amount}
	case CommandDeletePool, CommandNextEpoch:
		// no payload
	default:
		return cmd, fmt.Errorf("wire: unsupported deferred command kind %d", kind)
	}
	return cmd, nil
}
