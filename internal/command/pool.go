package command

import (
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

// execCreatePool opens a new pool operated by the signer. Fails if the
// signer already operates one, or the commission rate is out of [0,100].
func (x *Executor) execCreatePool(c *protocol.CreatePoolCommand) error {
	if c == nil || c.CommissionRate > 100 {
		return protocol.ErrInvalidPoolPolicy
	}
	if _, ok, _, err := x.ctx.World.GetPool(x.signer); err != nil {
		return err
	} else if ok {
		return protocol.ErrPoolAlreadyExists
	}
	x.ctx.World.SetPool(x.signer, worldstate.NewPool(x.signer, c.CommissionRate))
	return nil
}

// execSetPoolSettings updates the signer's pool commission rate.
func (x *Executor) execSetPoolSettings(c *protocol.SetPoolSettingsCommand) error {
	if c == nil || c.CommissionRate > 100 {
		return protocol.ErrInvalidPoolPolicy
	}
	pool, ok, _, err := x.ctx.World.GetPool(x.signer)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.ErrPoolNotExists
	}
	pool.CommissionRate = c.CommissionRate
	x.ctx.World.SetPool(x.signer, pool)
	return nil
}

// execDeletePool closes the signer's pool. Fails if any stake remains.
func (x *Executor) execDeletePool() error {
	pool, ok, _, err := x.ctx.World.GetPool(x.signer)
	if err != nil {
		return err
	}
	if !ok {
		return protocol.ErrPoolNotExists
	}
	if pool.TotalPower > 0 || len(pool.Stakes) > 0 {
		return protocol.ErrInvalidPoolPolicy
	}
	x.ctx.World.DeletePool(x.signer)
	return nil
}
