// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chef

import (
	"math/big"

	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/core"
)

// Deposit stakes amount of the pool's token from caller, paying out any pending reward first.
// A zero amount only harvests.
func (c *Chef) Deposit(blockNum uint32, caller core.Address, pid uint64, amount *big.Int) error {
	logger.Debug("depositing", "block", blockNum, "caller", caller, "pid", pid, "amount", amount)

	err := c.atomically("deposit", func() error {
		if err := checkAmount(amount); err != nil {
			return err
		}
		p, err := c.updatePool(blockNum, pid)
		if err != nil {
			return err
		}
		acc, err := c.accounts.Get(pid, caller)
		if err != nil {
			return err
		}
		if err := c.harvest(pid, caller, acc, p); err != nil {
			return err
		}

		if amount.Sign() > 0 {
			tok, err := c.stakeToken(p.StakeToken)
			if err != nil {
				return err
			}
			if err := tok.TransferFrom(c.addr, caller, c.addr, amount); err != nil {
				return err
			}
			acc.Amount.Add(acc.Amount, amount)
			p.TotalStaked.Add(p.TotalStaked, amount)
			if err := c.pools.Set(pid, p); err != nil {
				return err
			}
		}

		if err := acc.Settle(p.AccRewardPerShare); err != nil {
			return err
		}
		if err := c.accounts.Set(pid, caller, acc); err != nil {
			return err
		}
		c.emit(&Event{Kind: EventDeposit, Pool: pid, Account: caller, Amount: new(big.Int).Set(amount)})
		return nil
	})
	if err != nil {
		logger.Info("deposit failed", "caller", caller, "pid", pid, "error", err)
		return err
	}

	logger.Info("deposited", "caller", caller, "pid", pid, "amount", amount)
	return nil
}

// Withdraw returns amount of staked tokens to caller, paying out any pending reward first.
func (c *Chef) Withdraw(blockNum uint32, caller core.Address, pid uint64, amount *big.Int) error {
	logger.Debug("withdrawing", "block", blockNum, "caller", caller, "pid", pid, "amount", amount)

	err := c.atomically("withdraw", func() error {
		if err := checkAmount(amount); err != nil {
			return err
		}
		if _, err := c.pools.Get(pid); err != nil {
			return err
		}
		acc, err := c.accounts.Get(pid, caller)
		if err != nil {
			return err
		}
		if acc.Amount.Cmp(amount) < 0 {
			return reverts.NewInsufficientBalance("withdraw: not good")
		}

		p, err := c.updatePool(blockNum, pid)
		if err != nil {
			return err
		}
		if err := c.harvest(pid, caller, acc, p); err != nil {
			return err
		}

		if amount.Sign() > 0 {
			acc.Amount.Sub(acc.Amount, amount)
			p.TotalStaked.Sub(p.TotalStaked, amount)
			if err := c.pools.Set(pid, p); err != nil {
				return err
			}
			tok, err := c.stakeToken(p.StakeToken)
			if err != nil {
				return err
			}
			if err := tok.Transfer(c.addr, caller, amount); err != nil {
				return err
			}
		}

		if err := acc.Settle(p.AccRewardPerShare); err != nil {
			return err
		}
		if err := c.accounts.Set(pid, caller, acc); err != nil {
			return err
		}
		c.emit(&Event{Kind: EventWithdraw, Pool: pid, Account: caller, Amount: new(big.Int).Set(amount)})
		return nil
	})
	if err != nil {
		logger.Info("withdraw failed", "caller", caller, "pid", pid, "error", err)
		return err
	}

	logger.Info("withdrew", "caller", caller, "pid", pid, "amount", amount)
	return nil
}

// EmergencyWithdraw returns caller's whole stake without accruing, forfeiting pending rewards.
func (c *Chef) EmergencyWithdraw(caller core.Address, pid uint64) error {
	logger.Debug("emergency withdrawing", "caller", caller, "pid", pid)

	var amount *big.Int
	err := c.atomically("emergency_withdraw", func() error {
		p, err := c.pools.Get(pid)
		if err != nil {
			return err
		}
		acc, err := c.accounts.Get(pid, caller)
		if err != nil {
			return err
		}
		amount = acc.Amount

		acc.Amount = new(big.Int)
		acc.RewardDebt = new(big.Int)
		if err := c.accounts.Set(pid, caller, acc); err != nil {
			return err
		}
		p.TotalStaked.Sub(p.TotalStaked, amount)
		if err := c.pools.Set(pid, p); err != nil {
			return err
		}

		if amount.Sign() > 0 {
			tok, err := c.stakeToken(p.StakeToken)
			if err != nil {
				return err
			}
			if err := tok.Transfer(c.addr, caller, amount); err != nil {
				return err
			}
		}
		c.emit(&Event{Kind: EventEmergencyWithdraw, Pool: pid, Account: caller, Amount: new(big.Int).Set(amount)})
		return nil
	})
	if err != nil {
		logger.Info("emergency withdraw failed", "caller", caller, "pid", pid, "error", err)
		return err
	}

	logger.Info("emergency withdrew", "caller", caller, "pid", pid, "amount", amount)
	return nil
}
