package command

import (
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

// execNextEpoch is the protocol-only epoch boundary: it distributes
// rewards per validator_performance, applies auto-stake-rewards,
// advances the epoch counter, and rotates the active validator set.
//
// Per the decision recorded in the design ledger, any internal error here
// is fatal to block production rather than representable as a Failed
// receipt, since this command is protocol-generated and never user
// input: it panics with protocol.ErrNextEpochFailed and relies on the
// phase driver to let that unwind the block.
func (x *Executor) execNextEpoch() error {
	epoch, err := x.ctx.World.GetEpoch()
	if err != nil {
		panic(protocol.ErrNextEpochFailed)
	}

	type rotated struct {
		operator protocol.Address
		power    uint64
	}
	var active []rotated

	for _, vp := range x.ctx.Params.ValidatorPerformance {
		pool, ok, _, err := x.ctx.World.GetPool(vp.Validator)
		if err != nil {
			panic(protocol.ErrNextEpochFailed)
		}
		if !ok {
			continue
		}

		reward := vp.Votes * x.schedule.RewardPerVote
		if reward > 0 {
			if err := x.distributeReward(vp.Validator, pool, reward); err != nil {
				panic(protocol.ErrNextEpochFailed)
			}
			pool, ok, _, err = x.ctx.World.GetPool(vp.Validator)
			if err != nil || !ok {
				panic(protocol.ErrNextEpochFailed)
			}
		}

		active = append(active, rotated{operator: vp.Validator, power: pool.TotalPower})
	}

	for i := 1; i < len(active); i++ {
		for j := i; j > 0 && lessRotated(active[j], active[j-1]); j-- {
			active[j], active[j-1] = active[j-1], active[j]
		}
	}
	set := make([]protocol.Address, len(active))
	for i, r := range active {
		set[i] = r.operator
	}
	x.ctx.World.SetValidatorSet(set)
	x.ctx.World.SetEpoch(epoch + 1)

	if err := x.ctx.Gas.ChargeOrErr(x.schedule.NextEpochBudget); err != nil {
		panic(protocol.ErrNextEpochFailed)
	}
	return nil
}

func lessRotated(a, b struct {
	operator protocol.Address
	power    uint64
}) bool {
	if a.power != b.power {
		return a.power > b.power
	}
	for i := range a.operator {
		if a.operator[i] != b.operator[i] {
			return a.operator[i] < b.operator[i]
		}
	}
	return false
}

// distributeReward splits reward into an operator commission and a
// staker share distributed proportionally to stake power, crediting each
// staker's stake or deposit balance depending on its auto-stake-rewards
// flag. Rounding remainder from the proportional split goes to the
// lowest-power staker (the last entry in SortedStakes order), keeping the
// split deterministic.
func (x *Executor) distributeReward(operator protocol.Address, pool *worldstate.Pool, reward uint64) error {
	commission := reward * uint64(pool.CommissionRate) / 100
	net := reward - commission

	operatorBal, _, err := x.ctx.World.GetBalance(operator)
	if err != nil {
		return err
	}
	x.ctx.World.SetBalance(operator, operatorBal+commission)

	if pool.TotalPower == 0 || net == 0 {
		x.ctx.World.SetPool(operator, pool)
		return nil
	}

	entries := pool.SortedStakes()
	var distributed uint64
	for i, e := range entries {
		var share uint64
		if i == len(entries)-1 {
			share = net - distributed
		} else {
			share = net * e.Power / pool.TotalPower
			distributed += share
		}
		if share == 0 {
			continue
		}

		d, ok, _, err := x.ctx.World.GetDeposit(e.Owner, operator)
		if err != nil {
			return err
		}
		if !ok {
			d = &worldstate.Deposit{}
		}
		if d.AutoStakeRewards {
			pool.Stakes[e.Owner] += share
			pool.TotalPower += share
		} else {
			d.Balance += share
		}
		x.ctx.World.SetDeposit(e.Owner, operator, d)
	}

	x.ctx.World.SetPool(operator, pool)
	return nil
}
