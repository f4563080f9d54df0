package command

import "github.com/ledgercore/txruntime/internal/protocol"

// execTransfer debits the signer, credits the recipient, charging extra
// when the recipient's balance is cold, i.e. first touched in this
// transaction (spec §4.I).
func (x *Executor) execTransfer(t *protocol.TransferCommand) error {
	if t == nil {
		return protocol.ErrInvalidInput
	}
	senderBal, _, err := x.ctx.World.GetBalance(x.signer)
	if err != nil {
		return err
	}
	if senderBal < t.Amount {
		return protocol.ErrInsufficientBalance
	}

	_, recipientCold, err := x.ctx.World.GetBalance(t.To)
	if err != nil {
		return err
	}
	if recipientCold {
		if err := x.ctx.Gas.ChargeOrErr(x.schedule.NewAccountTouch); err != nil {
			return err
		}
	}

	recipientBal, _, err := x.ctx.World.GetBalance(t.To)
	if err != nil {
		return err
	}

	x.ctx.World.SetBalance(x.signer, senderBal-t.Amount)
	x.ctx.World.SetBalance(t.To, recipientBal+t.Amount)
	return nil
}
