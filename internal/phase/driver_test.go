package phase

import (
	"testing"

	"github.com/ledgercore/txruntime/internal/costmodel"
	"github.com/ledgercore/txruntime/internal/logging"
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

type memBacking struct{ data map[string][]byte }

func newMemBacking() *memBacking { return &memBacking{data: make(map[string][]byte)} }

func memKey(addr protocol.Address, key []byte) string {
	return string(addr[:]) + "|" + string(key)
}

func (b *memBacking) Get(addr protocol.Address, key []byte) ([]byte, bool, error) {
	v, ok := b.data[memKey(addr, key)]
	return v, ok, nil
}

func (b *memBacking) Commit(batch worldstate.Batch) error {
	for _, w := range batch.Writes {
		k := memKey(w.Address, w.Key)
		if w.Value == nil {
			delete(b.data, k)
			continue
		}
		b.data[k] = w.Value
	}
	return nil
}

func addrFrom(b byte) protocol.Address {
	var a protocol.Address
	a[0] = b
	return a
}

func newDriver() *Driver {
	return New(nil, nil, nil, costmodel.Default(), 8, 64, logging.Nop(), nil)
}

func TestRunTransactionSimpleTransfer(t *testing.T) {
	signer := addrFrom(1)
	recipient := addrFrom(2)
	world := worldstate.NewCache(newMemBacking())
	world.SetBalance(signer, 1_000_000)

	d := newDriver()
	tx := protocol.Transaction{
		Signer:            signer,
		Nonce:             0,
		GasLimit:          90_000,
		MaxBaseFeePerGas:  10,
		PriorityFeePerGas: 1,
		Commands: []protocol.Command{
			{Kind: protocol.CommandTransfer, Transfer: &protocol.TransferCommand{To: recipient, Amount: 500}},
		},
	}
	params := protocol.BlockchainParams{BaseFee: 10, ProposerAddress: addrFrom(9), TreasuryAddress: addrFrom(8)}

	r := d.RunTransaction(world, params, tx)
	if r.ExitCode != protocol.ExitSuccess {
		t.Fatalf("expected success, got %+v", r)
	}

	recipientBal, _, _ := world.GetBalance(recipient)
	if recipientBal != 500 {
		t.Fatalf("recipient balance = %d, want 500", recipientBal)
	}

	nonce, _, _ := world.GetNonce(signer)
	if nonce != 1 {
		t.Fatalf("nonce after transaction = %d, want 1", nonce)
	}

	treasuryBal, _, _ := world.GetBalance(params.TreasuryAddress)
	proposerBal, _, _ := world.GetBalance(params.ProposerAddress)
	if treasuryBal == 0 {
		t.Fatal("treasury should have received the base fee portion")
	}
	if proposerBal == 0 {
		t.Fatal("proposer should have received the priority fee portion")
	}

	senderBal, _, _ := world.GetBalance(signer)
	spent := 1_000_000 - senderBal
	if spent < 500 {
		t.Fatalf("sender should have paid at least the transfer amount, spent %d", spent)
	}
}

func TestRunTransactionAbortsOnInsufficientBalanceForPreCharge(t *testing.T) {
	signer := addrFrom(3)
	recipient := addrFrom(4)
	world := worldstate.NewCache(newMemBacking())
	world.SetBalance(signer, 10)

	d := newDriver()
	tx := protocol.Transaction{
		Signer:           signer,
		Nonce:            0,
		GasLimit:         100_000,
		MaxBaseFeePerGas: 10,
		Commands: []protocol.Command{
			{Kind: protocol.CommandTransfer, Transfer: &protocol.TransferCommand{To: recipient, Amount: 1}},
		},
	}

	r := d.RunTransaction(world, protocol.BlockchainParams{BaseFee: 10}, tx)
	if r.ExitCode != protocol.ExitFailed {
		t.Fatalf("expected aborted/failed receipt, got %+v", r)
	}
	for _, c := range r.Commands {
		if c.ExitCode != protocol.ExitNotExecuted || c.GasUsed != 0 {
			t.Fatalf("an aborted transaction's commands must all be NotExecuted with zero gas: %+v", c)
		}
	}

	bal, _, _ := world.GetBalance(signer)
	if bal != 10 {
		t.Fatalf("an aborted pre-charge must not touch the signer's balance, got %d", bal)
	}
	nonce, _, _ := world.GetNonce(signer)
	if nonce != 0 {
		t.Fatal("an aborted pre-charge must not advance the nonce")
	}
}

func TestRunTransactionAbortsOnNonceMismatch(t *testing.T) {
	signer := addrFrom(5)
	world := worldstate.NewCache(newMemBacking())
	world.SetBalance(signer, 1_000_000)
	world.SetNonce(signer, 3)

	d := newDriver()
	tx := protocol.Transaction{
		Signer:           signer,
		Nonce:            1,
		GasLimit:         100_000,
		MaxBaseFeePerGas: 10,
	}

	r := d.RunTransaction(world, protocol.BlockchainParams{BaseFee: 10}, tx)
	if r.ExitCode != protocol.ExitFailed {
		t.Fatalf("expected aborted receipt on nonce mismatch, got %+v", r)
	}
}

func TestRunTransactionFailedCommandStopsSubsequentCommands(t *testing.T) {
	signer := addrFrom(6)
	recipient := addrFrom(7)
	world := worldstate.NewCache(newMemBacking())
	world.SetBalance(signer, 1_000_000)

	d := newDriver()
	tx := protocol.Transaction{
		Signer:           signer,
		Nonce:            0,
		GasLimit:         100_000,
		MaxBaseFeePerGas: 10,
		Commands: []protocol.Command{
			{Kind: protocol.CommandTransfer, Transfer: &protocol.TransferCommand{To: recipient, Amount: 10_000_000}},
			{Kind: protocol.CommandTransfer, Transfer: &protocol.TransferCommand{To: recipient, Amount: 1}},
		},
	}

	r := d.RunTransaction(world, protocol.BlockchainParams{BaseFee: 10}, tx)
	if r.ExitCode != protocol.ExitFailed {
		t.Fatalf("expected failed receipt, got %+v", r)
	}
	if len(r.Commands) != 2 {
		t.Fatalf("expected 2 command receipts, got %d", len(r.Commands))
	}
	if r.Commands[0].ExitCode != protocol.ExitFailed {
		t.Fatalf("first command should have failed: %+v", r.Commands[0])
	}
	if r.Commands[1].ExitCode != protocol.ExitNotExecuted || r.Commands[1].GasUsed != 0 {
		t.Fatalf("second command should be NotExecuted with zero gas: %+v", r.Commands[1])
	}
}

func TestRunBlockAggregatesTransactionReceipts(t *testing.T) {
	signer := addrFrom(10)
	recipient := addrFrom(11)
	world := worldstate.NewCache(newMemBacking())
	world.SetBalance(signer, 10_000_000)

	d := newDriver()
	tx1 := protocol.Transaction{
		Signer: signer, Nonce: 0, GasLimit: 100_000, MaxBaseFeePerGas: 10,
		Commands: []protocol.Command{{Kind: protocol.CommandTransfer, Transfer: &protocol.TransferCommand{To: recipient, Amount: 100}}},
	}
	tx2 := protocol.Transaction{
		Signer: signer, Nonce: 1, GasLimit: 100_000, MaxBaseFeePerGas: 10,
		Commands: []protocol.Command{{Kind: protocol.CommandTransfer, Transfer: &protocol.TransferCommand{To: recipient, Amount: 200}}},
	}

	block := d.RunBlock(world, protocol.BlockchainParams{BaseFee: 10}, []protocol.Transaction{tx1, tx2})
	if block.ExitCode != protocol.ExitSuccess {
		t.Fatalf("expected block success, got %+v", block)
	}
	if len(block.Transactions) != 2 {
		t.Fatalf("expected 2 transaction receipts, got %d", len(block.Transactions))
	}
	recipientBal, _, _ := world.GetBalance(recipient)
	if recipientBal != 300 {
		t.Fatalf("recipient balance after block = %d, want 300", recipientBal)
	}
}

func TestRunTransactionNextEpochPanicsOnInternalError(t *testing.T) {
	defer func() {
		r := recover()
		if r != protocol.ErrNextEpochFailed {
			t.Fatalf("expected ErrNextEpochFailed panic, got %v", r)
		}
	}()

	signer := addrFrom(12)
	world := worldstate.NewCache(newMemBacking())
	world.SetBalance(signer, 1_000_000)

	d := newDriver()
	tx := protocol.Transaction{
		Signer: signer, Nonce: 0, GasLimit: 1,
		Commands: []protocol.Command{{Kind: protocol.CommandNextEpoch}},
	}
	params := protocol.BlockchainParams{
		ValidatorPerformance: []protocol.ValidatorPerformance{{Validator: addrFrom(13), Votes: 1}},
	}

	d.RunTransaction(world, params, tx)
	t.Fatal("expected a panic before reaching this point")
}
