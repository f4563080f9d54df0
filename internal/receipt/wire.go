package receipt

import (
	"encoding/binary"
	"fmt"

	"github.com/ledgercore/txruntime/internal/protocol"
)

// Two receipt wire versions coexist per spec §6. V1 is the original,
// minimal encoding (exit code + gas used per command, no return bytes or
// logs — receipts predate contract calls in the source this was modeled
// on). V2 adds return bytes and logs once calls could produce them. Both
// use the same length-prefixed, big-endian scheme as protocol/wire.go.

const (
	ReceiptWireV1 = 1
	ReceiptWireV2 = 2
)

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
		return 0, nil, fmt.Errorf("receipt wire: truncated u64")
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

func takeBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := takeU64(b)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, fmt.Errorf("receipt wire: truncated byte field")
	}
	return rest[:n], rest[n:], nil
}

// EncodeTransactionReceipt serializes a TransactionReceipt under the given
// wire version.
func EncodeTransactionReceipt(version int, r protocol.TransactionReceipt) ([]byte, error) {
	var buf []byte
	buf = putU64(buf, uint64(len(r.Commands)))
	for _, c := range r.Commands {
		buf = append(buf, byte(c.Kind), byte(c.ExitCode))
		buf = putU64(buf, c.GasUsed)
		if version >= ReceiptWireV2 {
			buf = putBytes(buf, c.Return)
			buf = putU64(buf, uint64(len(c.Logs)))
			for _, l := range c.Logs {
				buf = putBytes(buf, l.Topic)
				buf = putBytes(buf, l.Data)
			}
		}
	}
	buf = putU64(buf, r.GasUsed)
	buf = append(buf, byte(r.ExitCode))
	return buf, nil
}

// DecodeTransactionReceipt parses a TransactionReceipt encoded under the
// given wire version.
func DecodeTransactionReceipt(version int, b []byte) (protocol.TransactionReceipt, error) {
	var out protocol.TransactionReceipt
	n, rest, err := takeU64(b)
	if err != nil {
		return out, err
	}
	out.Commands = make([]protocol.CommandReceipt, 0, n)
	for i := uint64(0); i < n; i++ {
		if len(rest) < 2 {
			return out, fmt.Errorf("receipt wire: truncated command receipt header")
		}
		c := protocol.CommandReceipt{Kind: protocol.CommandKind(rest[0]), ExitCode: protocol.ExitCode(rest[1])}
		rest = rest[2:]
		c.GasUsed, rest, err = takeU64(rest)
		if err != nil {
			return out, err
		}
		if version >= ReceiptWireV2 {
			c.Return, rest, err = takeBytes(rest)
			if err != nil {
				return out, err
			}
			var logCount uint64
			logCount, rest, err = takeU64(rest)
			if err != nil {
				return out, err
			}
			c.Logs = make([]protocol.LogEntry, 0, logCount)
			for j := uint64(0); j < logCount; j++ {
				var topic, data []byte
				topic, rest, err = takeBytes(rest)
				if err != nil {
					return out, err
				}
				data, rest, err = takeBytes(rest)
				if err != nil {
					return out, err
				}
				c.Logs = append(c.Logs, protocol.LogEntry{Topic: topic, Data: data})
			}
		}
		out.Commands = append(out.Commands, c)
	}
	out.GasUsed, rest, err = takeU64(rest)
	if err != nil {
		return out, err
	}
	if len(rest) < 1 {
		return out, fmt.Errorf("receipt wire: truncated transaction exit code")
	}
	out.ExitCode = protocol.ExitCode(rest[0])
	return out, nil
}

// EncodeBlockReceipt serializes a BlockReceipt under the given wire
// version.
func EncodeBlockReceipt(version int, r protocol.BlockReceipt) ([]byte, error) {
	var buf []byte
	buf = putU64(buf, uint64(len(r.Transactions)))
	for _, t := range r.Transactions {
		enc, err := EncodeTransactionReceipt(version, t)
		if err != nil {
			return nil, err
		}
		buf = putBytes(buf, enc)
	}
	buf = putU64(buf, r.GasUsed)
	buf = append(buf, byte(r.ExitCode))
	return buf, nil
}

// DecodeBlockReceipt parses a BlockReceipt encoded under the given wire
// version.
func DecodeBlockReceipt(version int, b []byte) (protocol.BlockReceipt, error) {
	var out protocol.BlockReceipt
	n, rest, err := takeU64(b)
	if err != nil {
		return out, err
	}
	out.Transactions = make([]protocol.TransactionReceipt, 0, n)
	for i := uint64(0); i < n; i++ {
		var enc []byte
		enc, rest, err = takeBytes(rest)
		if err != nil {
			return out, err
		}
		t, err := DecodeTransactionReceipt(version, enc)
		if err != nil {
			return out, err
		}
		out.Transactions = append(out.Transactions, t)
	}
	out.GasUsed, rest, err = takeU64(rest)
	if err != nil {
		return out, err
	}
	if len(rest) < 1 {
		return out, fmt.Errorf("receipt wire: truncated block exit code")
	}
	out.ExitCode = protocol.ExitCode(rest[0])
	return out, nil
}
