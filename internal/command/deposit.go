package command

import (
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

// execCreateDeposit opens a new (signer, pool) deposit, debiting the
// signer's balance by the initial amount. Fails if the pool does not
// exist or a deposit already exists for this pair.
func (x *Executor) execCreateDeposit(c *protocol.CreateDepositCommand) error {
	if c == nil {
		return protocol.ErrInvalidInput
	}
	if _, ok, _, err := x.ctx.World.GetPool(c.Pool); err != nil {
		return err
	} else if !ok {
		return protocol.ErrPoolNotExists
	}
	if _, ok, _, err := x.ctx.World.GetDeposit(x.signer, c.Pool); err != nil {
		return err
	} else if ok {
		return protocol.ErrDepositAlreadyExists
	}

	bal, _, err := x.ctx.World.GetBalance(x.signer)
	if err != nil {
		return err
	}
	if bal < c.Balance {
		return protocol.ErrInsufficientBalance
	}

	x.ctx.World.SetBalance(x.signer, bal-c.Balance)
	x.ctx.World.SetDeposit(x.signer, c.Pool, &worldstate.Deposit{
		Balance:          c.Balance,
		AutoStakeRewards: c.AutoStakeRewards,
	})
	return nil
}

// execSetDepositSettings updates the auto-stake-rewards flag only.
func (x *Executor) execSetDepositSettings(c *protocol.SetDepositSettingsCommand) error {
	if c == nil {
		return protocol.ErrInvalidInput
	}
	d, ok, _, err := x.ctx.World.GetDeposit(x.signer, c.Pool)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.ErrDepositNotExists
	}
	d.AutoStakeRewards = c.AutoStakeRewards
	x.ctx.World.SetDeposit(x.signer, c.Pool, d)
	return nil
}

// execTopUpDeposit debits the signer's balance and increases the deposit's
// unstaked balance.
func (x *Executor) execTopUpDeposit(c *protocol.TopUpDepositCommand) error {
	if c == nil {
		return protocol.ErrInvalidInput
	}
	d, ok, _, err := x.ctx.World.GetDeposit(x.signer, c.Pool)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.ErrDepositNotExists
	}
	bal, _, err := x.ctx.World.GetBalance(x.signer)
	if err != nil {
		return err
	}
	if bal < c.Amount {
		return protocol.ErrInsufficientBalance
	}

	x.ctx.World.SetBalance(x.signer, bal-c.Amount)
	d.Balance += c.Amount
	x.ctx.World.SetDeposit(x.signer, c.Pool, d)
	return nil
}

// execWithdrawDeposit returns unstaked, unlocked balance to the signer's
// account. Only the portion never staked, or unstaked and past its lock
// epoch, is eligible; staked power is untouched.
func (x *Executor) execWithdrawDeposit(c *protocol.WithdrawDepositCommand) error {
	if c == nil {
		return protocol.ErrInvalidInput
	}
	d, ok, _, err := x.ctx.World.GetDeposit(x.signer, c.Pool)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.ErrDepositNotExists
	}

	currentEpoch, err := x.ctx.World.GetEpoch()
	if err != nil {
		return err
	}

	available := d.Balance
	if d.UnstakedLocked > 0 && currentEpoch >= d.UnlockEpoch {
		available += d.UnstakedLocked
	}
	if available < c.Amount {
		return protocol.ErrInsufficientStake
	}

	// Spend the never-staked balance first, then the now-unlocked portion.
	remaining := c.Amount
	if d.Balance >= remaining {
		d.Balance -= remaining
		remaining = 0
	} else {
		remaining -= d.Balance
		d.Balance = 0
	}
	if remaining > 0 {
		d.UnstakedLocked -= remaining
		if d.UnstakedLocked == 0 {
			d.UnlockEpoch = 0
		}
	}

	bal, _, err := x.ctx.World.GetBalance(x.signer)
	if err != nil {
		return err
	}
	x.ctx.World.SetBalance(x.signer, bal+c.Amount)
	x.ctx.World.SetDeposit(x.signer, c.Pool, d)
	return nil
}

// execStakeDeposit moves power from a deposit's unstaked balance into the
// pool's stake table.
func (x *Executor) execStakeDeposit(c *protocol.StakeDepositCommand) error {
	if c == nil {
		return protocol.ErrInvalidInput
	}
	d, ok, _, err := x.ctx.World.GetDeposit(x.signer, c.Pool)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.ErrDepositNotExists
	}
	if d.Balance < c.Amount {
		return protocol.ErrInsufficientStake
	}
	pool, ok, _, err := x.ctx.World.GetPool(c.Pool)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.ErrPoolNotExists
	}

	d.Balance -= c.Amount
	pool.Stakes[x.signer] += c.Amount
	pool.TotalPower += c.Amount

	x.ctx.World.SetDeposit(x.signer, c.Pool, d)
	x.ctx.World.SetPool(c.Pool, pool)
	return nil
}

// execUnstakeDeposit moves power from the pool's stake table back into the
// deposit, locked until the configured epoch boundary.
func (x *Executor) execUnstakeDeposit(c *protocol.UnstakeDepositCommand) error {
	if c == nil {
		return protocol.ErrInvalidInput
	}
	pool, ok, _, err := x.ctx.World.GetPool(c.Pool)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.ErrPoolNotExists
	}
	staked := pool.Stakes[x.signer]
	if staked < c.Amount {
		return protocol.ErrInsufficientStake
	}

	d, ok, _, err := x.ctx.World.GetDeposit(x.signer, c.Pool)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.ErrDepositNotExists
	}
	currentEpoch, err := x.ctx.World.GetEpoch()
	if err != nil {
		return err
	}

	staked -= c.Amount
	if staked == 0 {
		delete(pool.Stakes, x.signer)
	} else {
		pool.Stakes[x.signer] = staked
	}
	pool.TotalPower -= c.Amount

	d.UnstakedLocked += c.Amount
	d.UnlockEpoch = currentEpoch + x.schedule.UnstakeLockEpochs

	x.ctx.World.SetPool(c.Pool, pool)
	x.ctx.World.SetDeposit(x.signer, c.Pool, d)
	return nil
}
