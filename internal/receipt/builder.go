// Package receipt implements ReceiptBuilder: per-command receipt
// accumulation in command order, NotExecuted tail production, and
// block-level finalization, per spec §4.K.
package receipt

import "github.com/ledgercore/txruntime/internal/protocol"

// Builder accumulates one transaction's command receipts in order.
type Builder struct {
	commands []protocol.CommandReceipt
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Append records one command's receipt.
func (b *Builder) Append(r protocol.CommandReceipt) {
	b.commands = append(b.commands, r)
}

// FillNotExecuted appends one NotExecuted placeholder (gas_used=0) for
// each kind in kinds, in order. FinishAborted uses it for a transaction
// whose commands never ran.
func (b *Builder) FillNotExecuted(kinds []protocol.CommandKind) {
	for _, k := range kinds {
		b.Append(protocol.CommandReceipt{Kind: k, ExitCode: protocol.ExitNotExecuted})
	}
}

// Finish builds the TransactionReceipt: gas_used is the sum of every
// command's gas_used plus preChargeGas and chargeGas; exit_code is
// Success iff no command receipt is Failed.
func (b *Builder) Finish(preChargeGas, chargeGas uint64) protocol.TransactionReceipt {
	total := preChargeGas + chargeGas
	exit := protocol.ExitSuccess
	for _, c := range b.commands {
		total += c.GasUsed
		if c.ExitCode == protocol.ExitFailed {
			exit = protocol.ExitFailed
		}
	}
	return protocol.TransactionReceipt{Commands: b.commands, GasUsed: total, ExitCode: exit}
}

// FinishAborted builds the TransactionReceipt for a transaction that
// failed pre-charge: every command is NotExecuted, and the whole
// transaction's exit code is Failed.
func FinishAborted(kinds []protocol.CommandKind) protocol.TransactionReceipt {
	b := New()
	b.FillNotExecuted(kinds)
	return protocol.TransactionReceipt{Commands: b.commands, GasUsed: 0, ExitCode: protocol.ExitFailed}
}

// BlockBuilder accumulates per-transaction receipts into a BlockReceipt.
type BlockBuilder struct {
	txs []protocol.TransactionReceipt
}

// NewBlock returns an empty BlockBuilder.
func NewBlock() *BlockBuilder {
	return &BlockBuilder{}
}

// Append records one transaction's receipt.
func (bb *BlockBuilder) Append(r protocol.TransactionReceipt) {
	bb.txs = append(bb.txs, r)
}

// Finish builds the BlockReceipt: gas_used is the sum of every
// transaction's gas_used; exit_code is Success iff every transaction
// succeeded.
func (bb *BlockBuilder) Finish() protocol.BlockReceipt {
	var total uint64
	exit := protocol.ExitSuccess
	for _, t := range bb.txs {
		total += t.GasUsed
		if t.ExitCode != protocol.ExitSuccess {
			exit = protocol.ExitFailed
		}
	}
	return protocol.BlockReceipt{Transactions: bb.txs, GasUsed: total, ExitCode: exit}
}
